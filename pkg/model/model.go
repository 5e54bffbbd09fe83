package model

import "strings"

// RelationKind represents the type of a relation field
type RelationKind string

const (
	RelationForeignKey RelationKind = "foreign_key"  // n:1 (ForeignKey)
	RelationOneToOne   RelationKind = "one_to_one"   // 1:1 (OneToOneField)
	RelationManyToMany RelationKind = "many_to_many" // n:n (ManyToManyField)
	RelationGeneric    RelationKind = "generic"      // generic n:n (GenericRelation)
)

// App groups models under a common label (an application or a database schema)
type App struct {
	Label  string   `json:"label"`
	Models []*Model `json:"models"`
}

// Model describes a single data model and its fields
type Model struct {
	App         *App   `json:"-"`
	Name        string `json:"name"`                   // Object name (e.g., "Person")
	VerboseName string `json:"verbose_name,omitempty"` // Display name used with verbose names

	Abstract    bool `json:"abstract,omitempty"`     // Abstract base, never a table on its own
	Proxy       bool `json:"proxy,omitempty"`        // Proxy of its single concrete parent
	AutoCreated bool `json:"auto_created,omitempty"` // Implicit many-to-many join model
	Unmanaged   bool `json:"unmanaged,omitempty"`    // Read from an existing table, never given an implicit primary key

	// Bases as declared, resolved into Parents by Registry.Resolve
	Bases   []string `json:"bases,omitempty"`
	Parents []*Model `json:"-"`

	// Fields holds column fields in declaration order: the primary key comes
	// first once resolved, inherited abstract fields follow.
	Fields []*Field `json:"fields"`

	// ManyToMany holds many-to-many and generic relation fields, which are not columns
	ManyToMany []*Field `json:"many_to_many,omitempty"`
}

// Label returns the "app.Model" label of the model
func (m *Model) Label() string {
	if m.App == nil {
		return m.Name
	}
	return m.App.Label + "." + m.Name
}

// AppLabel returns the label of the app owning the model
func (m *Model) AppLabel() string {
	if m.App == nil {
		return ""
	}
	return m.App.Label
}

// IsConcrete returns true for models backed by their own table
func (m *Model) IsConcrete() bool {
	return !m.Abstract && !m.Proxy
}

// LocalFields returns the column fields of the model. Proxy models have none.
func (m *Model) LocalFields() []*Field {
	if m.Proxy {
		return nil
	}
	return m.Fields
}

// PrimaryKey returns the primary key field, or nil for abstract and proxy models
func (m *Model) PrimaryKey() *Field {
	if m.Abstract {
		return nil
	}
	for _, f := range m.LocalFields() {
		if f.PrimaryKey {
			return f
		}
	}
	if m.Proxy {
		for _, p := range m.ConcreteParents() {
			return p.PrimaryKey()
		}
	}
	return nil
}

// FieldByName looks up a column or many-to-many field by name
func (m *Model) FieldByName(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	for _, f := range m.ManyToMany {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ConcreteParents returns the parents that are not abstract
func (m *Model) ConcreteParents() []*Model {
	var parents []*Model
	for _, p := range m.Parents {
		if !p.Abstract {
			parents = append(parents, p)
		}
	}
	return parents
}

// AbstractFields returns the fields contributed by abstract ancestors
func (m *Model) AbstractFields() []*Field {
	var fields []*Field
	for _, p := range m.Parents {
		if !p.Abstract {
			continue
		}
		fields = append(fields, p.declaredFields()...)
		fields = append(fields, p.AbstractFields()...)
	}
	return fields
}

func (m *Model) declaredFields() []*Field {
	var fields []*Field
	for _, f := range m.Fields {
		if !f.Inherited {
			fields = append(fields, f)
		}
	}
	return fields
}

// Field describes a single model field
type Field struct {
	Model       *Model `json:"-"`
	Name        string `json:"name"`
	Type        string `json:"type"` // Field class or column type (e.g., "CharField", "varchar(255)")
	VerboseName string `json:"verbose_name,omitempty"`

	PrimaryKey bool `json:"primary_key,omitempty"`
	Null       bool `json:"null,omitempty"`
	Unique     bool `json:"unique,omitempty"`

	ParentLink bool `json:"parent_link,omitempty"` // Link to a multi-table parent ("<parent>_ptr")
	Inherited  bool `json:"inherited,omitempty"`   // Copied from an abstract ancestor

	Relation *Relation `json:"relation,omitempty"`
}

// IsRelation returns true if the field points at another model
func (f *Field) IsRelation() bool {
	return f.Relation != nil
}

// Relation describes where a relation field points
type Relation struct {
	Kind         RelationKind `json:"kind"`
	To           string       `json:"to"`                 // "self", "Name" or "app.Name"
	ToModel      *Model       `json:"-"`                  // Resolved target
	ToField      string       `json:"to_field,omitempty"` // Target field name, defaults to the primary key
	Through      string       `json:"through,omitempty"`  // Explicit intermediate model for many-to-many
	ThroughModel *Model       `json:"-"`
	AutoThrough  bool         `json:"auto_through,omitempty"` // Intermediate table is implicit
}

// TargetField resolves the field on the target model the relation points at
func (r *Relation) TargetField() *Field {
	if r.ToModel == nil {
		return nil
	}
	if r.ToField != "" {
		if f := r.ToModel.FieldByName(r.ToField); f != nil {
			return f
		}
	}
	return r.ToModel.PrimaryKey()
}

// KindFromType derives the relation kind from an ORM field class name
func KindFromType(fieldType string) (RelationKind, bool) {
	switch strings.TrimSpace(fieldType) {
	case "ForeignKey", "ParentalKey":
		return RelationForeignKey, true
	case "OneToOneField":
		return RelationOneToOne, true
	case "ManyToManyField", "ParentalManyToManyField":
		return RelationManyToMany, true
	case "GenericRelation":
		return RelationGeneric, true
	}
	return "", false
}
