package diagram

import (
	"github.com/ritzau/modeldia/pkg/logging"
)

// Port layout of a "Database - Table" shape:
//
//	0 - 1 - 2 - 3 - 4
//	5    title      6
//	-----------------
//	12             13
//	14             15
//	     ...
//	7 - 8 - 9 -10 -11
//
// Column i owns ports 12+2i (left) and 13+2i (right).

// spareOrder is the cycle of border ports used when a relation end is not
// attached to a column
var spareOrder = [...]int{2, 1, 3, 9, 8, 10}

// fieldPort returns the left port of the column at index
func fieldPort(index int) int {
	return 12 + 2*index
}

// maxPosition bounds the random table coordinates
const maxPosition = 80

// Point is a diagram coordinate in centimetres
type Point struct {
	X, Y float64
}

// TableObject is a table placed on the diagram
type TableObject struct {
	Table
	ID       int
	Position Point
	Color    string

	fieldIndex map[string]int
	nextSpare  int
}

// port returns the connection point for an endpoint on this table. Columns
// get their own port; primary keys, many-to-many ends and unknown fields take
// the next spare border port.
func (t *TableObject) port(ep Endpoint) int {
	if ep.Field != "" && !ep.PrimaryKey && !ep.ManyToMany {
		if idx, ok := t.fieldIndex[ep.Field]; ok {
			return fieldPort(idx)
		}
	}
	p := spareOrder[t.nextSpare%len(spareOrder)]
	t.nextSpare++
	return p
}

// RelationObject is a relation placed on the diagram
type RelationObject struct {
	Relation
	ID        int
	StartID   int
	EndID     int
	StartPort int
	EndPort   int
}

// Document is a prepared diagram, ready for encoding
type Document struct {
	Tables    []*TableObject
	Relations []*RelationObject
	Skipped   []Relation // Relations with an endpoint missing from the tables
}

// Prepare assigns ids, positions, colours and ports. Tables get ids 0..n-1 in
// order, relations continue the sequence. A relation whose endpoint is not
// among the tables is skipped without using up an id or a port.
// Relations without a colour take the line colour of their start table's group.
func Prepare(tables []Table, relations []Relation, rnd Rand, palette *Palette) *Document {
	doc := &Document{}
	byEntity := make(map[string]*TableObject, len(tables))
	nextID := 0

	for _, t := range tables {
		obj := &TableObject{
			Table: t,
			ID:    nextID,
			Position: Point{
				X: rnd.Float64() * maxPosition,
				Y: rnd.Float64() * maxPosition,
			},
			Color:      palette.GroupColor(t.Group),
			fieldIndex: make(map[string]int, len(t.Fields)),
		}
		for i, f := range t.Fields {
			key := f.Key
			if key == "" {
				key = f.Name
			}
			obj.fieldIndex[key] = i
		}
		nextID++
		byEntity[t.Entity] = obj
		doc.Tables = append(doc.Tables, obj)
	}

	for _, rel := range relations {
		start, ok := byEntity[rel.Start.Entity]
		if !ok {
			logging.Trace("relation skipped", "start", rel.Start.Entity, "end", rel.End.Entity, "missing", rel.Start.Entity)
			doc.Skipped = append(doc.Skipped, rel)
			continue
		}
		end, ok := byEntity[rel.End.Entity]
		if !ok {
			logging.Trace("relation skipped", "start", rel.Start.Entity, "end", rel.End.Entity, "missing", rel.End.Entity)
			doc.Skipped = append(doc.Skipped, rel)
			continue
		}

		obj := &RelationObject{
			Relation: rel,
			ID:       nextID,
			StartID:  start.ID,
			EndID:    end.ID,
		}
		if obj.Color == "" {
			obj.Color = palette.LineColor(start.Group)
		}
		obj.StartPort = start.port(rel.Start)
		obj.EndPort = end.port(rel.End)
		nextID++
		doc.Relations = append(doc.Relations, obj)
	}

	return doc
}
