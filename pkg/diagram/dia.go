package diagram

import (
	"fmt"
	"io"
	"strconv"
)

// Object types understood by Dia
const (
	TableType     = "Database - Table"
	ReferenceType = "Database - Reference"
	BezierType    = "Standard - BezierLine"
)

// Line styles and arrows
const (
	lineSolid  = 0
	lineDotted = 4
	arrowNone  = 0
	arrowFull  = 3
)

// Value is a typed Dia attribute value
type Value interface {
	element() *Element
}

// Boolean encodes as true/false
type Boolean bool

func (v Boolean) element() *Element {
	return NewElement("dia:boolean", "val", strconv.FormatBool(bool(v)))
}

// String encodes as a text node wrapped in '#'
type String string

func (v String) element() *Element {
	e := NewElement("dia:string")
	e.Text = "#" + string(v) + "#"
	return e
}

// Real encodes with 18 decimals
type Real float64

func (v Real) element() *Element {
	return NewElement("dia:real", "val", fmt.Sprintf("%.18f", float64(v)))
}

// Enum encodes as its decimal value
type Enum int

func (v Enum) element() *Element {
	return NewElement("dia:enum", "val", strconv.Itoa(int(v)))
}

// PointValue encodes as "x.xx,y.xx"
type PointValue Point

func (v PointValue) element() *Element {
	return NewElement("dia:point", "val", fmt.Sprintf("%.2f,%.2f", v.X, v.Y))
}

// Rectangle encodes as "x1,y1;x2,y2" with two decimals
type Rectangle struct {
	TopLeft, BottomRight Point
}

func (v Rectangle) element() *Element {
	return NewElement("dia:rectangle", "val", fmt.Sprintf("%.2f,%.2f;%.2f,%.2f",
		v.TopLeft.X, v.TopLeft.Y, v.BottomRight.X, v.BottomRight.Y))
}

// Color is RRGGBB without '#'
type Color string

func (v Color) element() *Element {
	return NewElement("dia:color", "val", "#"+string(v))
}

// Font encodes as family, style and name attributes
type Font struct {
	Family string
	Style  int
	Name   string
}

func (v Font) element() *Element {
	return NewElement("dia:font", "family", v.Family, "style", strconv.Itoa(v.Style), "name", v.Name)
}

var (
	normalFont  = Font{Family: "monospace", Style: 0, Name: "Courier"}
	nameFont    = Font{Family: "sans", Style: 80, Name: "Helvetica-Bold"}
	commentFont = Font{Family: "sans", Style: 8, Name: "Helvetica-Oblique"}
)

// Attribute builds a named dia:attribute holding one value
func Attribute(name string, value Value) *Element {
	return NewElement("dia:attribute", "name", name).Add(value.element())
}

func objectID(id int) string {
	return "O" + strconv.Itoa(id)
}

func columnElement(c Column) *Element {
	return NewElement("dia:composite", "type", "table_attribute").Add(
		Attribute("name", String(c.Name)),
		Attribute("type", String(c.Type)),
		Attribute("comment", String(c.Comment)),
		Attribute("primary_key", Boolean(c.PrimaryKey)),
		Attribute("nullable", Boolean(c.Nullable)),
		Attribute("unique", Boolean(c.Unique)),
	)
}

func tableElement(t *TableObject) *Element {
	obj := NewElement("dia:object", "type", TableType, "version", "0", "id", objectID(t.ID))
	obj.Sub("dia:attribute", "name", "meta").Sub("dia:composite", "type", "dict")
	obj.Add(
		Attribute("elem_corner", PointValue(t.Position)),
		Attribute("name", String(t.Name)),
		Attribute("visible_comment", Boolean(false)),
		Attribute("tagging_comment", Boolean(false)),
		Attribute("underline_primary_key", Boolean(true)),
		Attribute("bold_primary_keys", Boolean(false)),

		Attribute("normal_font", normalFont),
		Attribute("name_font", nameFont),
		Attribute("comment_font", commentFont),
		Attribute("normal_font_height", Real(0.8)),
		Attribute("name_font_height", Real(0.7)),
		Attribute("comment_font_height", Real(0.7)),

		Attribute("line_width", Real(0.1)),
		Attribute("text_colour", Color("000000")),
		Attribute("line_colour", Color("000000")),
		Attribute("fill_colour", Color(t.Color)),
	)

	attrs := obj.Sub("dia:attribute", "name", "attributes")
	for _, c := range t.Fields {
		attrs.Add(columnElement(c))
	}
	return obj
}

func relationElement(r *RelationObject, bezier bool) *Element {
	kind, endHandle := ReferenceType, "1"
	if bezier {
		kind, endHandle = BezierType, "3"
	}
	obj := NewElement("dia:object", "type", kind, "version", "0", "id", objectID(r.ID))

	style := Enum(lineSolid)
	if r.Dotted {
		style = Enum(lineDotted)
	}

	if bezier {
		obj.Add(Attribute("line_style", style))
		corners := obj.Sub("dia:attribute", "name", "corner_types")
		corners.Sub("dia:enum", "val", "0")
		corners.Sub("dia:enum", "val", "0")
		points := obj.Sub("dia:attribute", "name", "bez_points")
		for range 4 {
			points.Sub("dia:point", "val", "0.0,0.0")
		}
	} else {
		obj.Sub("dia:attribute", "name", "line_style").Add(
			style.element(),
			NewElement("dia:real", "val", "1"),
		)
		obj.Add(
			Attribute("start_point_desc", String(r.StartLabel)),
			Attribute("end_point_desc", String(r.EndLabel)),
			Attribute("corner_radius", Real(0)),
			Attribute("normal_font", normalFont),
			Attribute("normal_font_height", Real(0.7)),
			Attribute("text_colour", Color(r.Color)),
			Attribute("orth_autoroute", Boolean(true)),
		)
	}

	conns := obj.Sub("dia:connections")
	conns.Sub("dia:connection", "handle", "0", "to", objectID(r.StartID), "connection", strconv.Itoa(r.StartPort))
	conns.Sub("dia:connection", "handle", endHandle, "to", objectID(r.EndID), "connection", strconv.Itoa(r.EndPort))

	arrow := Enum(arrowNone)
	if r.Directional {
		arrow = Enum(arrowFull)
	}
	obj.Add(
		Attribute("end_arrow", arrow),
		Attribute("end_arrow_length", Real(0.25)),
		Attribute("end_arrow_width", Real(0.25)),
		Attribute("line_colour", Color(r.Color)),
		Attribute("line_width", Real(0.1)),
	)
	return obj
}

// Build returns the Dia document tree for doc: the empty diagram with every
// table and then every relation appended to its layer.
func Build(doc *Document, bezier bool) (*Element, error) {
	root, layer, err := emptyDocument()
	if err != nil {
		return nil, err
	}
	for _, t := range doc.Tables {
		layer.Add(tableElement(t))
	}
	for _, r := range doc.Relations {
		layer.Add(relationElement(r, bezier))
	}
	return root, nil
}

// Write encodes doc as a Dia XML document
func Write(w io.Writer, doc *Document, bezier bool) error {
	root, err := Build(doc, bezier)
	if err != nil {
		return err
	}
	return WriteDocument(w, root)
}
