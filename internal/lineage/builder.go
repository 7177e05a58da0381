// Package lineage turns the flat node set of a lineage into an ordered
// timeline graph.
package lineage

import (
	"errors"
	"sort"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
)

// Builder builds timeline graphs. It is stateless apart from its logger.
type Builder struct {
	logger *infra.Logger
}

func NewBuilder(logger *infra.Logger) *Builder {
	return &Builder{logger: infra.LoggerOrDiscard(logger)}
}

// BuildGraph builds the graph of lineageID with a discarding logger.
func BuildGraph(lineageID string, nodes []domain.LineageNode) (domain.TimelineGraph, error) {
	return NewBuilder(nil).Build(lineageID, nodes)
}

// BuildAll builds one graph per lineage found in nodes, ordered by lineage id.
func BuildAll(nodes []domain.LineageNode) ([]domain.TimelineGraph, error) {
	return NewBuilder(nil).BuildAll(nodes)
}

// Build orders the nodes of lineageID root-first: roots by creation time, then
// each node's children depth-first, also by creation time. Nodes of other
// lineages are ignored. Nodes unreachable from any root sit on a source cycle;
// they are left out and reported with a LineageIntegrityError next to the
// graph of the reachable part.
func (b *Builder) Build(lineageID string, nodes []domain.LineageNode) (domain.TimelineGraph, error) {
	graph := domain.TimelineGraph{
		LineageID: lineageID,
		Nodes:     []domain.LineageNode{},
		Edges:     []domain.Edge{},
	}

	byID := make(map[string]domain.LineageNode, len(nodes))
	members := make([]domain.LineageNode, 0, len(nodes))
	for _, n := range nodes {
		if n.LineageID != lineageID {
			continue
		}
		if _, dup := byID[n.ID]; dup {
			b.logger.Warn().Str("lineage_id", lineageID).Str("node_id", n.ID).Msg("duplicate lineage node ignored")
			continue
		}
		byID[n.ID] = n
		members = append(members, n)
	}
	if len(members) == 0 {
		return graph, nil
	}

	var roots []domain.LineageNode
	children := make(map[string][]domain.LineageNode)
	linked := make(map[string]bool)
	for _, n := range members {
		if n.IsRoot() {
			roots = append(roots, n)
			continue
		}
		src := *n.SourceID
		if _, ok := byID[src]; !ok {
			b.logger.Warn().Str("lineage_id", lineageID).Str("node_id", n.ID).Str("source_id", src).
				Msg("lineage node references a missing source; treating as root")
			roots = append(roots, n)
			continue
		}
		children[src] = append(children[src], n)
		linked[n.ID] = true
	}
	sortByCreated(roots)
	for k := range children {
		sortByCreated(children[k])
	}

	visited := make(map[string]bool, len(members))
	// Depth-first with an explicit stack; children are pushed in reverse so
	// the earliest child is emitted first.
	stack := make([]domain.LineageNode, 0, len(members))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n.ID] {
			continue
		}
		visited[n.ID] = true
		graph.Nodes = append(graph.Nodes, n)
		if linked[n.ID] {
			graph.Edges = append(graph.Edges, domain.Edge{FromID: *n.SourceID, ToID: n.ID})
		}
		kids := children[n.ID]
		for i := len(kids) - 1; i >= 0; i-- {
			if !visited[kids[i].ID] {
				stack = append(stack, kids[i])
			}
		}
	}

	if len(graph.Nodes) == len(members) {
		return graph, nil
	}
	var stranded []string
	for _, n := range members {
		if !visited[n.ID] {
			stranded = append(stranded, n.ID)
		}
	}
	sort.Strings(stranded)
	b.logger.Error().Str("lineage_id", lineageID).Strs("node_ids", stranded).Msg("lineage contains a source cycle")
	return graph, &domain.LineageIntegrityError{LineageID: lineageID, NodeIDs: stranded}
}

// BuildAll partitions nodes by lineage and builds each graph. Integrity errors
// of individual lineages are joined; every graph is still returned.
func (b *Builder) BuildAll(nodes []domain.LineageNode) ([]domain.TimelineGraph, error) {
	ids := make([]string, 0)
	seen := make(map[string]bool)
	for _, n := range nodes {
		if !seen[n.LineageID] {
			seen[n.LineageID] = true
			ids = append(ids, n.LineageID)
		}
	}
	sort.Strings(ids)

	graphs := make([]domain.TimelineGraph, 0, len(ids))
	var errs []error
	for _, id := range ids {
		g, err := b.Build(id, nodes)
		if err != nil {
			errs = append(errs, err)
		}
		graphs = append(graphs, g)
	}
	return graphs, errors.Join(errs...)
}

// sortByCreated orders by creation time; equal timestamps fall back to id so
// the order is stable across builds.
func sortByCreated(nodes []domain.LineageNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
