package services

import (
	"sort"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"go.uber.org/zap"
)

// TableGraph is an undirected graph of tables joined by lineage relationships.
type TableGraph struct {
	edges  map[string][]string
	tables map[string]bool
}

// NewTableGraph creates a new empty table graph.
func NewTableGraph() *TableGraph {
	return &TableGraph{
		edges:  make(map[string][]string),
		tables: make(map[string]bool),
	}
}

// AddRelationship adds an undirected edge between the two tables of rel.
func (g *TableGraph) AddRelationship(rel models.LineageRelationship) {
	g.tables[rel.SourceTable] = true
	g.tables[rel.TargetTable] = true

	if rel.SourceTable == rel.TargetTable {
		return
	}
	g.edges[rel.SourceTable] = append(g.edges[rel.SourceTable], rel.TargetTable)
	g.edges[rel.TargetTable] = append(g.edges[rel.TargetTable], rel.SourceTable)
}

// AddTable adds a table with no edges. Adding an existing table is a no-op.
func (g *TableGraph) AddTable(fullName string) {
	g.tables[fullName] = true
}

// ConnectedComponent is a group of tables reachable from each other.
type ConnectedComponent struct {
	Tables []string
	Size   int
}

// FindConnectedComponents returns the multi-table components, largest first,
// and the island tables that have no relationships. Table names inside each
// component and the island list are sorted so results are deterministic.
func (g *TableGraph) FindConnectedComponents() ([]ConnectedComponent, []string) {
	names := make([]string, 0, len(g.tables))
	for name := range g.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	visited := make(map[string]bool, len(names))
	var components []ConnectedComponent
	var islands []string

	for _, name := range names {
		if visited[name] {
			continue
		}
		members := g.dfs(name, visited)
		if len(members) == 1 {
			islands = append(islands, members[0])
			continue
		}
		sort.Strings(members)
		components = append(components, ConnectedComponent{Tables: members, Size: len(members)})
	}

	sort.SliceStable(components, func(i, j int) bool {
		return components[i].Size > components[j].Size
	})

	return components, islands
}

func (g *TableGraph) dfs(start string, visited map[string]bool) []string {
	var component []string
	stack := []string{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current] {
			continue
		}
		visited[current] = true
		component = append(component, current)

		for _, neighbor := range g.edges[current] {
			if !visited[neighbor] {
				stack = append(stack, neighbor)
			}
		}
	}

	return component
}

// Summarize computes the summary statistics of a lineage graph.
func Summarize(graph *models.LineageGraph) models.LineageSummary {
	g := NewTableGraph()
	columns := 0
	for _, t := range graph.Tables {
		g.AddTable(t.FullName())
		columns += len(t.Columns)
	}
	for _, rel := range graph.Relationships {
		g.AddRelationship(rel)
	}

	components, islands := g.FindConnectedComponents()
	return models.LineageSummary{
		TableCount:          len(graph.Tables),
		ColumnCount:         columns,
		RelationshipCount:   len(graph.Relationships),
		ConnectedComponents: len(components),
		IslandTables:        islands,
	}
}

// LogConnectivity logs the component analysis of a lineage graph.
func LogConnectivity(summary models.LineageSummary, logger *zap.Logger) {
	logger.Info("Lineage connectivity",
		zap.Int("tables", summary.TableCount),
		zap.Int("relationships", summary.RelationshipCount),
		zap.Int("components", summary.ConnectedComponents),
		zap.Int("islands", len(summary.IslandTables)))

	if len(summary.IslandTables) > 0 {
		preview := summary.IslandTables
		if len(preview) > 5 {
			preview = preview[:5]
		}
		logger.Debug("Island tables need bridging", zap.Strings("tables", preview))
	}
}
