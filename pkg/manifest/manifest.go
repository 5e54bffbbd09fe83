// Package manifest loads model declarations from YAML or JSON manifest files.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ritzau/modeldia/pkg/finder"
	"github.com/ritzau/modeldia/pkg/logging"
	"github.com/ritzau/modeldia/pkg/model"
)

// File is the top-level document of a manifest
type File struct {
	Apps []AppSpec `yaml:"apps"`
}

// AppSpec declares an app and its models
type AppSpec struct {
	Label  string      `yaml:"label"`
	Models []ModelSpec `yaml:"models"`
}

// ModelSpec declares a single model
type ModelSpec struct {
	Name        string      `yaml:"name"`
	VerboseName string      `yaml:"verbose_name"`
	Abstract    bool        `yaml:"abstract"`
	Proxy       bool        `yaml:"proxy"`
	Bases       []string    `yaml:"bases"`
	Fields      []FieldSpec `yaml:"fields"`
}

// FieldSpec declares a single field. Relation fields set To.
type FieldSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Kind        string `yaml:"kind"` // Overrides the relation kind derived from Type
	VerboseName string `yaml:"verbose_name"`
	PrimaryKey  bool   `yaml:"primary_key"`
	Null        bool   `yaml:"nullable"`
	Unique      bool   `yaml:"unique"`
	ParentLink  bool   `yaml:"parent_link"`
	To          string `yaml:"to"`
	ToField     string `yaml:"to_field"`
	Through     string `yaml:"through"`
}

// kindAliases maps the accepted "kind" spellings to relation kinds
var kindAliases = map[string]model.RelationKind{
	"fk":           model.RelationForeignKey,
	"foreign_key":  model.RelationForeignKey,
	"foreignkey":   model.RelationForeignKey,
	"o2o":          model.RelationOneToOne,
	"one_to_one":   model.RelationOneToOne,
	"onetoone":     model.RelationOneToOne,
	"m2m":          model.RelationManyToMany,
	"many_to_many": model.RelationManyToMany,
	"manytomany":   model.RelationManyToMany,
	"generic":      model.RelationGeneric,
}

// defaultTypes is the field class used when a relation field omits its type
var defaultTypes = map[model.RelationKind]string{
	model.RelationForeignKey: "ForeignKey",
	model.RelationOneToOne:   "OneToOneField",
	model.RelationManyToMany: "ManyToManyField",
	model.RelationGeneric:    "GenericRelation",
}

// Load reads every manifest at path (a file or a directory) into a resolved registry
func Load(path string) (*model.Registry, error) {
	files, err := finder.FindManifestFiles(path)
	if err != nil {
		return nil, fmt.Errorf("finding manifests: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no model manifests found under %s", path)
	}

	reg := model.NewRegistry()
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("opening manifest: %w", err)
		}
		err = Decode(f, name, reg)
		f.Close()
		if err != nil {
			return nil, err
		}
		logging.Debug("loaded manifest", "file", name)
	}

	if err := reg.Resolve(); err != nil {
		return nil, fmt.Errorf("resolving models: %w", err)
	}
	return reg, nil
}

// Decode parses one manifest document and adds its apps to reg.
// The registry is left unresolved.
func Decode(r io.Reader, source string, reg *model.Registry) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc File
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty manifest", source)
		}
		return fmt.Errorf("%s: %w", source, err)
	}

	for _, as := range doc.Apps {
		app, err := convertApp(as)
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		for _, m := range app.Models {
			if _, err := reg.Model(app.Label + "." + m.Name); err == nil {
				return fmt.Errorf("%s: model %s.%s is already declared", source, app.Label, m.Name)
			}
		}
		reg.AddApp(app)
	}
	return nil
}

func convertApp(as AppSpec) (*model.App, error) {
	if as.Label == "" {
		return nil, errors.New("app without label")
	}
	if strings.Contains(as.Label, ".") {
		return nil, fmt.Errorf("app label %q must not contain dots", as.Label)
	}

	app := &model.App{Label: as.Label}
	seen := make(map[string]bool)
	for _, ms := range as.Models {
		if ms.Name == "" {
			return nil, fmt.Errorf("app %s: model without name", as.Label)
		}
		if seen[ms.Name] {
			return nil, fmt.Errorf("app %s: duplicate model %q", as.Label, ms.Name)
		}
		seen[ms.Name] = true

		m, err := convertModel(ms)
		if err != nil {
			return nil, fmt.Errorf("model %s.%s: %w", as.Label, ms.Name, err)
		}
		app.Models = append(app.Models, m)
	}
	return app, nil
}

func convertModel(ms ModelSpec) (*model.Model, error) {
	if ms.Abstract && ms.Proxy {
		return nil, errors.New("a model cannot be both abstract and proxy")
	}
	m := &model.Model{
		Name:        ms.Name,
		VerboseName: ms.VerboseName,
		Abstract:    ms.Abstract,
		Proxy:       ms.Proxy,
		Bases:       ms.Bases,
	}
	if ms.Proxy && len(ms.Fields) > 0 {
		return nil, errors.New("proxy models cannot declare fields")
	}

	seen := make(map[string]bool)
	for _, fs := range ms.Fields {
		if fs.Name == "" {
			return nil, errors.New("field without name")
		}
		if seen[fs.Name] {
			return nil, fmt.Errorf("duplicate field %q", fs.Name)
		}
		seen[fs.Name] = true

		f, err := convertField(fs)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fs.Name, err)
		}
		f.Model = m
		switch {
		case f.Relation != nil && (f.Relation.Kind == model.RelationManyToMany || f.Relation.Kind == model.RelationGeneric):
			m.ManyToMany = append(m.ManyToMany, f)
		default:
			m.Fields = append(m.Fields, f)
		}
	}
	return m, nil
}

func convertField(fs FieldSpec) (*model.Field, error) {
	f := &model.Field{
		Name:        fs.Name,
		Type:        fs.Type,
		VerboseName: fs.VerboseName,
		PrimaryKey:  fs.PrimaryKey,
		Null:        fs.Null,
		Unique:      fs.Unique,
		ParentLink:  fs.ParentLink,
	}

	kind, isRelation := model.KindFromType(fs.Type)
	if fs.Kind != "" {
		k, ok := kindAliases[strings.ToLower(fs.Kind)]
		if !ok {
			return nil, fmt.Errorf("unknown relation kind %q", fs.Kind)
		}
		kind, isRelation = k, true
	}

	if !isRelation {
		if fs.To != "" || fs.Through != "" || fs.ToField != "" {
			return nil, fmt.Errorf("type %q is not a relation but declares a target", fs.Type)
		}
		if fs.Type == "" {
			return nil, errors.New("missing type")
		}
		if fs.ParentLink {
			return nil, errors.New("parent_link requires a one-to-one relation")
		}
		return f, nil
	}

	if fs.To == "" {
		return nil, errors.New("relation without target (to)")
	}
	if fs.Through != "" && kind != model.RelationManyToMany {
		return nil, errors.New("through is only valid on many-to-many relations")
	}
	if fs.ParentLink && kind != model.RelationOneToOne {
		return nil, errors.New("parent_link requires a one-to-one relation")
	}
	if f.Type == "" {
		f.Type = defaultTypes[kind]
	}
	if kind == model.RelationOneToOne {
		f.Unique = true
	}
	f.Relation = &model.Relation{
		Kind:    kind,
		To:      fs.To,
		ToField: fs.ToField,
		Through: fs.Through,
	}
	return f, nil
}
