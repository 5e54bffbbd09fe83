package analysis

import (
	"sort"

	"github.com/ritzau/modeldia/pkg/diagram"
	"github.com/ritzau/modeldia/pkg/model"
)

// Options controls how models are turned into records
type Options struct {
	VerboseNames   bool            // Display verbose names instead of identifiers
	ExcludeColumns map[string]bool // Field names (or verbose names) to leave out
	SortFields     bool            // Primary keys first, then by name
	Inheritance    bool            // Draw inheritance links
}

// Relation end labels
const (
	LabelOne  = "1"
	LabelMany = "n"

	InheritMultiTable = "multi-table"
	InheritAbstract   = "abstract"
	InheritProxy      = "proxy"
)

func (o Options) columnExcluded(f *model.Field) bool {
	if len(o.ExcludeColumns) == 0 {
		return false
	}
	return o.ExcludeColumns[f.Name] || o.ExcludeColumns[VerboseFieldName(f)]
}

// ModelFields returns the column records of a model: the primary key first
// (concrete models only), then the other local fields including those
// inherited from abstract bases. Many-to-many fields are not columns.
func ModelFields(m *model.Model, opts Options) []diagram.Column {
	var columns []diagram.Column
	for _, f := range m.LocalFields() {
		if opts.columnExcluded(f) {
			continue
		}
		columns = append(columns, diagram.Column{
			Key:        f.Name,
			Name:       FieldName(f, opts.VerboseNames),
			Type:       f.Type,
			Comment:    VerboseFieldName(f),
			PrimaryKey: f.PrimaryKey,
			Nullable:   f.Null,
			Unique:     f.Unique,
		})
	}

	if opts.SortFields {
		sort.SliceStable(columns, func(i, j int) bool {
			if columns[i].PrimaryKey != columns[j].PrimaryKey {
				return columns[i].PrimaryKey
			}
			return columns[i].Name < columns[j].Name
		})
	}
	return columns
}

// ModelRelations returns the relations drawn from a model. Each relation is
// drawn once, from the side declaring it. Parent links are left to
// ModelInheritance and fields inherited from abstract bases are drawn from
// the abstract model.
func ModelRelations(m *model.Model, opts Options) []diagram.Relation {
	var relations []diagram.Relation

	for _, f := range m.LocalFields() {
		if !f.IsRelation() || f.ParentLink || f.Inherited || opts.columnExcluded(f) {
			continue
		}
		rel := f.Relation
		if rel.ToModel == nil {
			continue
		}
		switch rel.Kind {
		case model.RelationForeignKey:
			relations = append(relations, relation(m, f, LabelMany, LabelOne, false, true))
		case model.RelationOneToOne:
			relations = append(relations, relation(m, f, LabelOne, LabelOne, false, false))
		}
	}

	if m.Proxy {
		return relations
	}
	for _, f := range m.ManyToMany {
		if f.Inherited || opts.columnExcluded(f) || f.Relation == nil || f.Relation.ToModel == nil {
			continue
		}
		switch f.Relation.Kind {
		case model.RelationManyToMany:
			// an explicit intermediate model draws the relation with its own foreign keys
			if !f.Relation.AutoThrough {
				continue
			}
			relations = append(relations, relation(m, f, LabelMany, LabelMany, false, false))
		case model.RelationGeneric:
			relations = append(relations, relation(m, f, LabelMany, LabelMany, true, false))
		}
	}
	return relations
}

func relation(m *model.Model, f *model.Field, startLabel, endLabel string, dotted, directional bool) diagram.Relation {
	end := diagram.Endpoint{Entity: f.Relation.ToModel.Label()}
	if target := f.Relation.TargetField(); target != nil {
		end.Field = target.Name
		end.PrimaryKey = target.PrimaryKey
	}
	start := diagram.Endpoint{Entity: m.Label(), Field: f.Name, PrimaryKey: f.PrimaryKey}
	switch f.Relation.Kind {
	case model.RelationManyToMany, model.RelationGeneric:
		start.ManyToMany = true
	}
	return diagram.Relation{
		Start:       start,
		End:         end,
		StartLabel:  startLabel,
		EndLabel:    endLabel,
		Dotted:      dotted,
		Directional: directional,
	}
}

// ModelInheritance returns one dotted arrow per direct parent, labelled with
// the kind of inheritance
func ModelInheritance(m *model.Model) []diagram.Relation {
	var relations []diagram.Relation
	for _, p := range m.Parents {
		label := InheritMultiTable
		switch {
		case m.Proxy:
			label = InheritProxy
		case p.Abstract:
			label = InheritAbstract
		}
		relations = append(relations, diagram.Relation{
			Start:       diagram.Endpoint{Entity: m.Label()},
			End:         diagram.Endpoint{Entity: p.Label()},
			StartLabel:  "",
			EndLabel:    label,
			Dotted:      true,
			Directional: true,
		})
	}
	return relations
}

// Build turns the models into table and relation records. Relations are
// listed model by model, inheritance links after each model's relations.
func Build(models []*model.Model, opts Options) ([]diagram.Table, []diagram.Relation) {
	tables := make([]diagram.Table, 0, len(models))
	var relations []diagram.Relation

	for _, m := range models {
		tables = append(tables, diagram.Table{
			Entity: m.Label(),
			Group:  m.AppLabel(),
			Name:   ModelName(m, opts.VerboseNames),
			Fields: ModelFields(m, opts),
		})
	}
	for _, m := range models {
		relations = append(relations, ModelRelations(m, opts)...)
		if opts.Inheritance {
			relations = append(relations, ModelInheritance(m)...)
		}
	}
	return tables, relations
}
