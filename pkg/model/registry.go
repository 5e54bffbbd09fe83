package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when an app or model label cannot be resolved
var ErrNotFound = errors.New("not found")

// Registry holds every known app and resolves the references between models.
// It serves as the common metadata model for all sources (manifests, database inspection).
type Registry struct {
	Apps []*App `json:"apps"`

	apps     map[string]*App
	resolved bool
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		apps: make(map[string]*App),
	}
}

// AddApp adds an app to the registry. Apps with an existing label are merged.
func (r *Registry) AddApp(app *App) *App {
	if existing, ok := r.apps[app.Label]; ok {
		for _, m := range app.Models {
			m.App = existing
			existing.Models = append(existing.Models, m)
		}
		r.resolved = false
		return existing
	}
	for _, m := range app.Models {
		m.App = app
	}
	r.apps[app.Label] = app
	r.Apps = append(r.Apps, app)
	r.resolved = false
	return app
}

// AddModel adds a model to the app with the given label, creating the app if needed
func (r *Registry) AddModel(appLabel string, m *Model) {
	app, ok := r.apps[appLabel]
	if !ok {
		app = r.AddApp(&App{Label: appLabel})
	}
	m.App = app
	app.Models = append(app.Models, m)
	r.resolved = false
}

// App returns the app with the given label
func (r *Registry) App(label string) (*App, error) {
	app, ok := r.apps[label]
	if !ok {
		return nil, fmt.Errorf("app %q: %w", label, ErrNotFound)
	}
	return app, nil
}

// AppLabels returns all app labels, sorted
func (r *Registry) AppLabels() []string {
	labels := make([]string, 0, len(r.Apps))
	for _, app := range r.Apps {
		labels = append(labels, app.Label)
	}
	sort.Strings(labels)
	return labels
}

// Model looks up a model by its "app.Name" label
func (r *Registry) Model(label string) (*Model, error) {
	appLabel, name, ok := strings.Cut(label, ".")
	if !ok {
		return nil, fmt.Errorf("model %q: label must be app.Name: %w", label, ErrNotFound)
	}
	return r.lookup(appLabel, name)
}

func (r *Registry) lookup(appLabel, name string) (*Model, error) {
	app, ok := r.apps[appLabel]
	if !ok {
		return nil, fmt.Errorf("model %s.%s: app %q: %w", appLabel, name, appLabel, ErrNotFound)
	}
	for _, m := range app.Models {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("model %s.%s: %w", appLabel, name, ErrNotFound)
}

// resolveRef resolves "self", "Name" or "app.Name" relative to the model m
func (r *Registry) resolveRef(m *Model, ref string) (*Model, error) {
	switch {
	case ref == "self":
		return m, nil
	case strings.Contains(ref, "."):
		return r.Model(ref)
	default:
		return r.lookup(m.AppLabel(), ref)
	}
}

// Models returns every model of every app in registration order
func (r *Registry) Models() []*Model {
	var models []*Model
	for _, app := range r.Apps {
		models = append(models, app.Models...)
	}
	return models
}

// Resolve wires up parents, relation targets, implicit primary keys and
// inherited abstract fields. It is idempotent.
func (r *Registry) Resolve() error {
	if r.resolved {
		return nil
	}
	if err := r.checkDuplicates(); err != nil {
		return err
	}
	models := r.Models()

	for _, m := range models {
		m.Parents = m.Parents[:0]
		for _, base := range m.Bases {
			parent, err := r.resolveRef(m, base)
			if err != nil {
				return fmt.Errorf("resolving base of %s: %w", m.Label(), err)
			}
			if parent == m {
				return fmt.Errorf("model %s inherits from itself", m.Label())
			}
			m.Parents = append(m.Parents, parent)
		}
		if len(m.ConcreteParents()) > 1 {
			return fmt.Errorf("model %s has more than one concrete parent", m.Label())
		}
		if m.Proxy && len(m.ConcreteParents()) != 1 {
			return fmt.Errorf("proxy model %s must have exactly one concrete parent", m.Label())
		}
		for _, f := range m.Fields {
			f.Model = m
		}
		for _, f := range m.ManyToMany {
			f.Model = m
		}
	}

	if err := checkInheritanceCycles(models); err != nil {
		return err
	}

	for _, m := range models {
		if !m.IsConcrete() {
			continue
		}
		declared := withoutInherited(m.Fields)
		m.Fields = append(inheritedCopies(m, declared), declared...)
		ensurePrimaryKey(m)
	}

	for _, m := range models {
		for _, f := range append(append([]*Field{}, m.Fields...), m.ManyToMany...) {
			if f.Relation == nil {
				continue
			}
			if err := r.resolveRelation(m, f); err != nil {
				return err
			}
		}
	}

	r.resolved = true
	return nil
}

func (r *Registry) resolveRelation(m *Model, f *Field) error {
	rel := f.Relation
	target, err := r.resolveRef(m, rel.To)
	if err != nil {
		return fmt.Errorf("field %s.%s: %w", m.Label(), f.Name, err)
	}
	rel.ToModel = target

	if rel.ToField != "" && !target.Abstract && target.FieldByName(rel.ToField) == nil {
		return fmt.Errorf("field %s.%s: target field %s.%s: %w",
			m.Label(), f.Name, target.Label(), rel.ToField, ErrNotFound)
	}
	if rel.ToField == "" {
		if pk := target.PrimaryKey(); pk != nil {
			rel.ToField = pk.Name
		}
	}

	if rel.Kind == RelationManyToMany {
		if rel.Through == "" {
			rel.AutoThrough = true
			rel.ThroughModel = nil
		} else {
			through, err := r.resolveRef(m, rel.Through)
			if err != nil {
				return fmt.Errorf("field %s.%s: through: %w", m.Label(), f.Name, err)
			}
			rel.ThroughModel = through
			rel.AutoThrough = through.AutoCreated
		}
	}
	return nil
}

// checkDuplicates rejects apps declaring the same model name twice
func (r *Registry) checkDuplicates() error {
	for _, app := range r.Apps {
		seen := make(map[string]bool, len(app.Models))
		for _, m := range app.Models {
			if seen[m.Name] {
				return fmt.Errorf("duplicate model %s.%s", app.Label, m.Name)
			}
			seen[m.Name] = true
		}
	}
	return nil
}

// ensurePrimaryKey moves the primary key to the front, adding the implicit
// "id" key or the "<parent>_ptr" parent link when none is declared.
// Unmanaged models and models already having a field of that name get no key.
func ensurePrimaryKey(m *Model) {
	for i, f := range m.Fields {
		if f.PrimaryKey {
			if i > 0 {
				fields := append([]*Field{f}, m.Fields[:i]...)
				m.Fields = append(fields, m.Fields[i+1:]...)
			}
			f.Unique = true
			return
		}
	}
	if m.Unmanaged {
		return
	}

	var pk *Field
	if parents := m.ConcreteParents(); len(parents) == 1 {
		parent := parents[0]
		pk = &Field{
			Model:      m,
			Name:       strings.ToLower(parent.Name) + "_ptr",
			Type:       "OneToOneField",
			PrimaryKey: true,
			Unique:     true,
			ParentLink: true,
			Relation:   &Relation{Kind: RelationOneToOne, To: parent.Label()},
		}
	} else {
		pk = &Field{
			Model:       m,
			Name:        "id",
			Type:        "AutoField",
			VerboseName: "ID",
			PrimaryKey:  true,
			Unique:      true,
		}
	}
	if m.FieldByName(pk.Name) != nil {
		return
	}
	m.Fields = append([]*Field{pk}, m.Fields...)
}

// inheritedCopies copies the fields of abstract ancestors into m. Fields
// redeclared on m itself win.
func inheritedCopies(m *Model, declared []*Field) []*Field {
	var copies []*Field
	seen := make(map[string]bool)
	for _, f := range declared {
		seen[f.Name] = true
	}
	for _, f := range m.AbstractFields() {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		c := *f
		c.Model = m
		c.Inherited = true
		if f.Relation != nil {
			rel := *f.Relation
			// "self" on an abstract base points at the concrete model
			if rel.To == "self" {
				rel.To = m.Label()
			} else if !strings.Contains(rel.To, ".") {
				rel.To = f.Model.AppLabel() + "." + rel.To
			}
			c.Relation = &rel
		}
		copies = append(copies, &c)
	}
	return copies
}

func withoutInherited(fields []*Field) []*Field {
	kept := make([]*Field, 0, len(fields))
	for _, f := range fields {
		if !f.Inherited {
			kept = append(kept, f)
		}
	}
	return kept
}

func checkInheritanceCycles(models []*Model) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*Model]int)
	var visit func(m *Model) error
	visit = func(m *Model) error {
		switch state[m] {
		case visiting:
			return fmt.Errorf("inheritance cycle through %s", m.Label())
		case done:
			return nil
		}
		state[m] = visiting
		for _, p := range m.Parents {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[m] = done
		return nil
	}
	for _, m := range models {
		if err := visit(m); err != nil {
			return err
		}
	}
	return nil
}
