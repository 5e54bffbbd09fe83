package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/ritzau/modeldia/pkg/model"
)

// ModelGraph is the model-level reference graph: an edge A -> B means A has a
// relation field or a parent link pointing at B.
type ModelGraph struct {
	graph  *simple.DirectedGraph
	models map[int64]*model.Model
	ids    map[string]int64 // Map from model label to graph ID
	self   map[int64]bool   // Models referencing themselves
	nextID int64
}

// NewModelGraph creates a new empty model graph
func NewModelGraph() *ModelGraph {
	return &ModelGraph{
		graph:  simple.NewDirectedGraph(),
		models: make(map[int64]*model.Model),
		ids:    make(map[string]int64),
		self:   make(map[int64]bool),
	}
}

// BuildModelGraph adds every model of the registry and all references between them
func BuildModelGraph(reg *model.Registry) *ModelGraph {
	mg := NewModelGraph()
	for _, m := range reg.Models() {
		mg.AddModel(m)
	}
	for _, m := range reg.Models() {
		for _, p := range m.Parents {
			mg.AddReference(m, p)
		}
		for _, f := range m.Fields {
			if f.Relation != nil && f.Relation.ToModel != nil && !f.ParentLink {
				mg.AddReference(m, f.Relation.ToModel)
			}
		}
		for _, f := range m.ManyToMany {
			if f.Relation != nil && f.Relation.ToModel != nil {
				mg.AddReference(m, f.Relation.ToModel)
			}
		}
	}
	return mg
}

// AddModel adds a model to the graph
func (mg *ModelGraph) AddModel(m *model.Model) {
	if _, exists := mg.ids[m.Label()]; exists {
		return
	}
	id := mg.nextID
	mg.nextID++
	mg.ids[m.Label()] = id
	mg.models[id] = m
	mg.graph.AddNode(simple.Node(id))
}

// AddReference adds an edge from source to target, adding missing models.
// Self references are tracked separately since simple graphs reject loops.
func (mg *ModelGraph) AddReference(source, target *model.Model) {
	mg.AddModel(source)
	mg.AddModel(target)

	sourceID := mg.ids[source.Label()]
	targetID := mg.ids[target.Label()]
	if sourceID == targetID {
		mg.self[sourceID] = true
		return
	}
	if !mg.graph.HasEdgeFromTo(sourceID, targetID) {
		mg.graph.SetEdge(mg.graph.NewEdge(simple.Node(sourceID), simple.Node(targetID)))
	}
}

// Len returns the number of models in the graph
func (mg *ModelGraph) Len() int {
	return len(mg.models)
}

// Related returns the models reachable from the seeds within depth hops,
// following references in both directions. Seeds are included.
// A negative depth means unlimited.
func (mg *ModelGraph) Related(seeds []*model.Model, depth int) []*model.Model {
	undirected := undirectedView{mg.graph}
	found := make(map[int64]bool)

	for _, seed := range seeds {
		id, ok := mg.ids[seed.Label()]
		if !ok {
			continue
		}
		found[id] = true
		if depth == 0 {
			continue
		}
		bf := traverse.BreadthFirst{
			Visit: func(n graph.Node) { found[n.ID()] = true },
		}
		bf.Walk(undirected, simple.Node(id), func(_ graph.Node, d int) bool {
			return depth >= 0 && d >= depth
		})
	}

	related := make([]*model.Model, 0, len(found))
	for id := range found {
		related = append(related, mg.models[id])
	}
	sort.Slice(related, func(i, j int) bool {
		return related[i].Label() < related[j].Label()
	})
	return related
}

// Cycles returns reference cycles as sorted label lists: strongly connected
// components with more than one model, plus self-referencing models.
func (mg *ModelGraph) Cycles() [][]string {
	var cycles [][]string
	for _, scc := range topo.TarjanSCC(mg.graph) {
		if len(scc) < 2 {
			continue
		}
		labels := make([]string, 0, len(scc))
		for _, n := range scc {
			labels = append(labels, mg.models[n.ID()].Label())
		}
		sort.Strings(labels)
		cycles = append(cycles, labels)
	}
	for id := range mg.self {
		cycles = append(cycles, []string{mg.models[id].Label()})
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

// undirectedView exposes a directed graph as undirected for traversal
type undirectedView struct {
	g *simple.DirectedGraph
}

func (u undirectedView) Node(id int64) graph.Node { return u.g.Node(id) }
func (u undirectedView) Nodes() graph.Nodes       { return u.g.Nodes() }

func (u undirectedView) From(id int64) graph.Nodes {
	seen := make(map[int64]bool)
	var nodes []graph.Node
	for _, it := range []graph.Nodes{u.g.From(id), u.g.To(id)} {
		for it.Next() {
			n := it.Node()
			if !seen[n.ID()] {
				seen[n.ID()] = true
				nodes = append(nodes, n)
			}
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	return iterator.NewOrderedNodes(nodes)
}

func (u undirectedView) HasEdgeBetween(xid, yid int64) bool {
	return u.g.HasEdgeFromTo(xid, yid) || u.g.HasEdgeFromTo(yid, xid)
}

func (u undirectedView) Edge(uid, vid int64) graph.Edge {
	if e := u.g.Edge(uid, vid); e != nil {
		return e
	}
	return u.g.Edge(vid, uid)
}
