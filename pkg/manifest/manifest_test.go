package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/modeldia/pkg/model"
)

const libraryManifest = `
apps:
  - label: library
    models:
      - name: Author
        verbose_name: writer
        fields:
          - {name: name, type: CharField, verbose_name: full name}
      - name: Book
        fields:
          - {name: isbn, type: CharField, primary_key: true}
          - {name: author, kind: fk, to: Author, nullable: true}
          - {name: cover, type: OneToOneField, to: Cover}
          - {name: readers, kind: m2m, to: Reader, through: Loan}
          - {name: tags, type: GenericRelation, to: Tag}
      - name: Cover
        fields:
          - {name: image, type: ImageField}
      - name: Reader
        fields:
          - {name: name, type: CharField}
      - name: Loan
        fields:
          - {name: book, type: ForeignKey, to: Book}
          - {name: reader, type: ForeignKey, to: Reader}
      - name: Tag
        fields:
          - {name: label, type: SlugField, unique: true}
`

func decode(t *testing.T, doc string) (*model.Registry, error) {
	t.Helper()
	reg := model.NewRegistry()
	if err := Decode(strings.NewReader(doc), "test.yaml", reg); err != nil {
		return nil, err
	}
	return reg, reg.Resolve()
}

func TestDecode(t *testing.T) {
	reg, err := decode(t, libraryManifest)
	require.NoError(t, err)

	author, err := reg.Model("library.Author")
	require.NoError(t, err)
	assert.Equal(t, "writer", author.VerboseName)
	assert.Equal(t, "full name", author.FieldByName("name").VerboseName)

	book, err := reg.Model("library.Book")
	require.NoError(t, err)
	assert.Equal(t, "isbn", book.PrimaryKey().Name)

	fk := book.FieldByName("author")
	assert.Equal(t, "ForeignKey", fk.Type)
	assert.True(t, fk.Null)
	assert.Equal(t, model.RelationForeignKey, fk.Relation.Kind)
	assert.Same(t, author, fk.Relation.ToModel)

	o2o := book.FieldByName("cover")
	assert.Equal(t, model.RelationOneToOne, o2o.Relation.Kind)
	assert.True(t, o2o.Unique)

	// many-to-many and generic relations are not columns
	assert.Len(t, book.Fields, 3)
	require.Len(t, book.ManyToMany, 2)
	readers := book.ManyToMany[0]
	assert.Equal(t, "ManyToManyField", readers.Type)
	assert.Equal(t, "library.Loan", readers.Relation.ThroughModel.Label())
	assert.False(t, readers.Relation.AutoThrough)
	assert.Equal(t, model.RelationGeneric, book.ManyToMany[1].Relation.Kind)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty manifest"},
		{"unknown key", "apps:\n  - label: a\n    colour: red\n", "colour"},
		{"missing label", "apps:\n  - models: []\n", "app without label"},
		{"dotted label", "apps:\n  - label: a.b\n", "must not contain dots"},
		{"model without name", "apps:\n  - label: a\n    models:\n      - {abstract: true}\n", "model without name"},
		{"duplicate model", "apps:\n  - label: a\n    models:\n      - {name: M}\n      - {name: M}\n", `duplicate model "M"`},
		{"abstract proxy", "apps:\n  - label: a\n    models:\n      - {name: M, abstract: true, proxy: true}\n", "both abstract and proxy"},
		{"proxy fields", "apps:\n  - label: a\n    models:\n      - {name: M, proxy: true, fields: [{name: f, type: CharField}]}\n", "proxy models cannot declare fields"},
		{"duplicate field", "apps:\n  - label: a\n    models:\n      - {name: M, fields: [{name: f, type: CharField}, {name: f, type: CharField}]}\n", `duplicate field "f"`},
		{"missing type", "apps:\n  - label: a\n    models:\n      - {name: M, fields: [{name: f}]}\n", "missing type"},
		{"unknown kind", "apps:\n  - label: a\n    models:\n      - {name: M, fields: [{name: f, kind: tree, to: M}]}\n", `unknown relation kind "tree"`},
		{"target on column", "apps:\n  - label: a\n    models:\n      - {name: M, fields: [{name: f, type: CharField, to: M}]}\n", "is not a relation"},
		{"relation without target", "apps:\n  - label: a\n    models:\n      - {name: M, fields: [{name: f, type: ForeignKey}]}\n", "without target"},
		{"through on fk", "apps:\n  - label: a\n    models:\n      - {name: M, fields: [{name: f, type: ForeignKey, to: M, through: N}]}\n", "through is only valid"},
		{"parent link on fk", "apps:\n  - label: a\n    models:\n      - {name: M, fields: [{name: f, type: ForeignKey, to: M, parent_link: true}]}\n", "parent_link requires"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode(strings.NewReader(tt.doc), "test.yaml", model.NewRegistry())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "test.yaml")
		})
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "auth.yaml"), "apps:\n  - label: auth\n    models:\n      - {name: User, fields: [{name: name, type: CharField}]}\n")
	// JSON is a subset of YAML
	writeFile(t, filepath.Join(dir, "blog", "models.json"),
		`{"apps": [{"label": "blog", "models": [{"name": "Entry", "fields": [{"name": "author", "type": "ForeignKey", "to": "auth.User"}]}]}]}`)
	writeFile(t, filepath.Join(dir, "README.md"), "not a manifest")

	reg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"auth", "blog"}, reg.AppLabels())

	entry, err := reg.Model("blog.Entry")
	require.NoError(t, err)
	assert.Equal(t, "auth.User", entry.FieldByName("author").Relation.ToModel.Label())
}

func TestLoad_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "apps:\n  - label: shop\n    models:\n      - {name: Order, fields: [{name: number, type: CharField}]}\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "apps:\n  - label: shop\n    models:\n      - {name: Item, fields: [{name: sku, type: CharField}]}\n      - {name: Order, fields: [{name: code, type: CharField}]}\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.yaml")
	assert.Contains(t, err.Error(), "model shop.Order is already declared")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "finding manifests")

	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "no model manifests found")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "models.yaml"), "apps:\n  - label: a\n    models:\n      - {name: M, fields: [{name: f, type: ForeignKey, to: Missing}]}\n")
	_, err = Load(dir)
	assert.ErrorContains(t, err, "resolving models")
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}
