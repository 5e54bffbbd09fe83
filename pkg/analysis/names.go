package analysis

import (
	"github.com/go-openapi/inflect"

	"github.com/ritzau/modeldia/pkg/model"
)

// ModelName returns the displayed name of a model
func ModelName(m *model.Model, verbose bool) string {
	if !verbose {
		return m.Name
	}
	return VerboseModelName(m)
}

// VerboseModelName returns the declared verbose name or a humanized form of
// the model name ("AbstractShape" -> "Abstract shape")
func VerboseModelName(m *model.Model) string {
	if m.VerboseName != "" {
		return m.VerboseName
	}
	return inflect.Humanize(inflect.Underscore(m.Name))
}

// FieldName returns the displayed name of a field
func FieldName(f *model.Field, verbose bool) string {
	if !verbose {
		return f.Name
	}
	return VerboseFieldName(f)
}

// VerboseFieldName returns the declared verbose name or a humanized form of the field name
func VerboseFieldName(f *model.Field) string {
	if f.VerboseName != "" {
		return f.VerboseName
	}
	return inflect.Humanize(f.Name)
}
