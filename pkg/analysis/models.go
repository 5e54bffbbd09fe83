// Package analysis selects the models to draw and turns them into diagram records.
package analysis

import (
	"fmt"
	"sort"

	"github.com/ritzau/modeldia/pkg/graph"
	"github.com/ritzau/modeldia/pkg/logging"
	"github.com/ritzau/modeldia/pkg/model"
)

// TargetApps returns the apps to draw: every app when all is set, otherwise
// the named ones. No names and not all yields no apps.
func TargetApps(reg *model.Registry, names []string, all bool) ([]*model.App, error) {
	if all {
		apps := make([]*model.App, 0, len(reg.Apps))
		for _, label := range reg.AppLabels() {
			app, _ := reg.App(label)
			apps = append(apps, app)
		}
		return apps, nil
	}

	var apps []*model.App
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		app, err := reg.App(name)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// ModelList returns the models of the apps together with their abstract
// ancestors, minus excluded models and auto-created join models, sorted by label.
// Exclusions match a label ("anyapp.Shop") or a bare name ("Shop"). Ancestors
// are collected before exclusions apply, so excluding every child of an
// abstract model keeps the abstract model.
func ModelList(apps []*model.App, exclude map[string]bool) []*model.Model {
	seen := make(map[*model.Model]bool)
	var models []*model.Model

	var add func(m *model.Model)
	add = func(m *model.Model) {
		if seen[m] {
			return
		}
		seen[m] = true
		if m.AutoCreated {
			return
		}
		for _, p := range m.Parents {
			if p.Abstract {
				add(p)
			}
		}
		if IsExcluded(m, exclude) {
			logging.Trace("model excluded", "model", m.Label())
			return
		}
		models = append(models, m)
	}

	for _, app := range apps {
		for _, m := range app.Models {
			add(m)
		}
	}

	sortModels(models)
	return models
}

// IncludeRelated extends models with the models reachable through relations
// and parent links within depth hops. A negative depth is unlimited.
func IncludeRelated(reg *model.Registry, models []*model.Model, depth int, exclude map[string]bool) []*model.Model {
	if depth == 0 || len(models) == 0 {
		return models
	}

	mg := graph.BuildModelGraph(reg)
	var result []*model.Model
	for _, m := range mg.Related(models, depth) {
		if m.AutoCreated || IsExcluded(m, exclude) {
			continue
		}
		result = append(result, m)
	}
	logging.Debug("included related models", "selected", len(models), "total", len(result), "depth", depth)

	sortModels(result)
	return result
}

// IsExcluded reports whether a model matches the exclusion set
func IsExcluded(m *model.Model, exclude map[string]bool) bool {
	return exclude[m.Label()] || exclude[m.Name]
}

// ModelLabels returns the sorted labels of models
func ModelLabels(models []*model.Model) []string {
	labels := make([]string, 0, len(models))
	for _, m := range models {
		labels = append(labels, m.Label())
	}
	sort.Strings(labels)
	return labels
}

func sortModels(models []*model.Model) {
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Label() < models[j].Label()
	})
}

// CheckExcluded warns about exclusions that match no model
func CheckExcluded(reg *model.Registry, exclude map[string]bool) {
	known := make(map[string]bool)
	for _, m := range reg.Models() {
		known[m.Label()] = true
		known[m.Name] = true
	}
	var unknown []string
	for name := range exclude {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		logging.Warn("excluded models not found", "models", fmt.Sprint(unknown))
	}
}
