package inspect

import (
	"fmt"
	"sort"

	"ariga.io/atlas/sql/schema"

	"github.com/ritzau/modeldia/pkg/logging"
	"github.com/ritzau/modeldia/pkg/model"
)

// Convert turns an inspected realm into a resolved registry: schemas become
// apps, tables become models and columns become fields. Foreign keys into
// schemas outside the realm are left out.
func Convert(realm *schema.Realm, opts Options) (*model.Registry, error) {
	reg := model.NewRegistry()

	schemas := append([]*schema.Schema(nil), realm.Schemas...)
	sort.SliceStable(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })

	known := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		known[appLabel(s)] = true
	}

	for _, s := range schemas {
		app := &model.App{Label: appLabel(s)}
		tables := append([]*schema.Table(nil), s.Tables...)
		sort.SliceStable(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

		for _, t := range tables {
			app.Models = append(app.Models, convertTable(s, t, known))
		}
		reg.AddApp(app)
		logging.Debug("converted schema", "schema", app.Label, "tables", len(tables))
	}

	if opts.CollapseJoinTables {
		collapseJoinTables(reg, realm, known)
	}

	if err := reg.Resolve(); err != nil {
		return nil, fmt.Errorf("resolving inspected models: %w", err)
	}
	return reg, nil
}

func appLabel(s *schema.Schema) string {
	if s == nil || s.Name == "" {
		return "main"
	}
	return s.Name
}

// schemaLabel returns the app label of the schema owning t
func schemaLabel(owner *schema.Schema, t *schema.Table) string {
	if t.Schema != nil {
		return appLabel(t.Schema)
	}
	return appLabel(owner)
}

func tableLabel(owner *schema.Schema, t *schema.Table) string {
	return schemaLabel(owner, t) + "." + t.Name
}

func convertTable(s *schema.Schema, t *schema.Table, known map[string]bool) *model.Model {
	m := &model.Model{
		Name:        t.Name,
		VerboseName: comment(t.Attrs),
		Unmanaged:   true,
	}

	pk := primaryKeyColumns(t)
	unique := uniqueColumns(t)
	fks := singleColumnForeignKeys(s, t, known)

	for _, c := range t.Columns {
		f := &model.Field{
			Name:        c.Name,
			Type:        columnType(c),
			VerboseName: comment(c.Attrs),
			PrimaryKey:  pk[c.Name],
			Unique:      unique[c.Name],
		}
		if c.Type != nil {
			f.Null = c.Type.Null
		}

		if fk, ok := fks[c.Name]; ok {
			ref := fk.RefTable
			f.Relation = &model.Relation{
				Kind:    model.RelationForeignKey,
				To:      tableLabel(s, ref),
				ToField: fk.RefColumns[0].Name,
			}
			if f.Unique {
				f.Relation.Kind = model.RelationOneToOne
			}
			// a primary key referencing the primary key of another table is a parent link
			if f.PrimaryKey && len(pk) == 1 && ref != t && isSinglePrimaryKey(ref, fk.RefColumns[0].Name) {
				f.ParentLink = true
				f.Relation.Kind = model.RelationOneToOne
				m.Bases = append(m.Bases, f.Relation.To)
			}
		}
		m.Fields = append(m.Fields, f)
	}
	return m
}

// primaryKeyColumns returns the names of the primary key columns
func primaryKeyColumns(t *schema.Table) map[string]bool {
	cols := make(map[string]bool)
	if t.PrimaryKey == nil {
		return cols
	}
	for _, p := range t.PrimaryKey.Parts {
		if p.C != nil {
			cols[p.C.Name] = true
		}
	}
	return cols
}

// uniqueColumns returns the columns that are unique on their own: a
// single-column primary key or unique index
func uniqueColumns(t *schema.Table) map[string]bool {
	cols := make(map[string]bool)
	if t.PrimaryKey != nil && len(t.PrimaryKey.Parts) == 1 && t.PrimaryKey.Parts[0].C != nil {
		cols[t.PrimaryKey.Parts[0].C.Name] = true
	}
	for _, idx := range t.Indexes {
		if idx.Unique && len(idx.Parts) == 1 && idx.Parts[0].C != nil {
			cols[idx.Parts[0].C.Name] = true
		}
	}
	return cols
}

// singleColumnForeignKeys maps columns to the foreign key they form alone.
// Composite keys cannot be drawn as a single field and are left out, as are
// keys referencing a schema that is not converted.
func singleColumnForeignKeys(s *schema.Schema, t *schema.Table, known map[string]bool) map[string]*schema.ForeignKey {
	fks := make(map[string]*schema.ForeignKey)
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 || len(fk.RefColumns) != 1 || fk.RefTable == nil {
			logging.Debug("skipping composite foreign key", "table", tableLabel(s, t), "constraint", fk.Symbol)
			continue
		}
		if !known[schemaLabel(s, fk.RefTable)] {
			logging.Debug("skipping foreign key into unselected schema", "table", tableLabel(s, t),
				"constraint", fk.Symbol, "references", tableLabel(s, fk.RefTable))
			continue
		}
		if _, dup := fks[fk.Columns[0].Name]; dup {
			continue
		}
		fks[fk.Columns[0].Name] = fk
	}
	return fks
}

func isSinglePrimaryKey(t *schema.Table, column string) bool {
	return t.PrimaryKey != nil && len(t.PrimaryKey.Parts) == 1 &&
		t.PrimaryKey.Parts[0].C != nil && t.PrimaryKey.Parts[0].C.Name == column
}

func comment(attrs []schema.Attr) string {
	for _, a := range attrs {
		if c, ok := a.(*schema.Comment); ok {
			return c.Text
		}
	}
	return ""
}

// columnType returns the column type as written in the database, or a
// readable form of the parsed type when the raw form is unknown (HCL documents)
func columnType(c *schema.Column) string {
	if c.Type == nil {
		return ""
	}
	if c.Type.Raw != "" {
		return c.Type.Raw
	}
	switch t := c.Type.Type.(type) {
	case *schema.IntegerType:
		if t.Unsigned {
			return t.T + " unsigned"
		}
		return t.T
	case *schema.StringType:
		if t.Size > 0 {
			return fmt.Sprintf("%s(%d)", t.T, t.Size)
		}
		return t.T
	case *schema.BoolType:
		return t.T
	case *schema.FloatType:
		return t.T
	case *schema.DecimalType:
		if t.Precision > 0 {
			return fmt.Sprintf("%s(%d,%d)", t.T, t.Precision, t.Scale)
		}
		return t.T
	case *schema.TimeType:
		return t.T
	case *schema.BinaryType:
		return t.T
	case *schema.JSONType:
		return t.T
	case *schema.EnumType:
		return t.T
	case *schema.UUIDType:
		return t.T
	case *schema.SpatialType:
		return t.T
	case *schema.UnsupportedType:
		return t.T
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", c.Type.Type)
}

// collapseJoinTables replaces pure join tables with many-to-many fields. A
// join table has exactly two foreign key columns, plus optionally a
// surrogate primary key; the relation is declared on the first referenced model.
func collapseJoinTables(reg *model.Registry, realm *schema.Realm, known map[string]bool) {
	for _, s := range realm.Schemas {
		for _, t := range s.Tables {
			first, second, ok := joinTableRefs(s, t, known)
			if !ok {
				continue
			}
			join, err := reg.Model(tableLabel(s, t))
			if err != nil {
				continue
			}
			owner, err := reg.Model(first)
			if err != nil {
				continue
			}
			join.AutoCreated = true
			owner.ManyToMany = append(owner.ManyToMany, &model.Field{
				Model: owner,
				Name:  t.Name,
				Type:  "ManyToManyField",
				Relation: &model.Relation{
					Kind:    model.RelationManyToMany,
					To:      second,
					Through: join.Label(),
				},
			})
			logging.Debug("collapsed join table", "table", join.Label(), "from", first, "to", second)
		}
	}
}

// joinTableRefs returns the labels of the two tables a join table links
func joinTableRefs(s *schema.Schema, t *schema.Table, known map[string]bool) (string, string, bool) {
	fks := singleColumnForeignKeys(s, t, known)
	if len(fks) != 2 {
		return "", "", false
	}

	var refs []string
	for _, c := range t.Columns {
		fk, isFK := fks[c.Name]
		switch {
		case isFK:
			refs = append(refs, tableLabel(s, fk.RefTable))
		case isSurrogateKey(t, c):
		default:
			return "", "", false
		}
	}
	if len(refs) != 2 {
		return "", "", false
	}
	return refs[0], refs[1], true
}

func isSurrogateKey(t *schema.Table, c *schema.Column) bool {
	return c.Name == "id" && isSinglePrimaryKey(t, c.Name)
}
