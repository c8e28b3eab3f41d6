// Package scheduler builds a DependencyGraph over a batch of tool
// invocations and partitions it into ordered stages that respect explicit
// dependency edges and soft resource-tag conflicts, then runs each stage's
// invocations concurrently in an errgroup. Stages are not run through the
// Concurrency Manager.
package scheduler

import (
	"sort"

	"github.com/corvyn/toolcore/pkg/tool"
)

// Node is one tool invocation entered into the graph for a single batch.
type Node struct {
	RequestID    string
	ToolName     string
	Dependencies []string // other nodes' RequestIDs this node must follow
	ResourceTags []string
}

// Graph is the DependencyGraph described in spec.md §3: explicit
// dependency edges plus soft edges between any two nodes sharing a
// resource tag (same-stage conflict, not a future-stage ordering
// constraint).
type Graph struct {
	nodes   map[string]Node
	order   []string // insertion order, for stable tie-breaking
	depsOf  map[string]map[string]bool
}

// NewGraph builds a Graph from nodes, indexed by RequestID. It does not
// validate the graph; call DetectCycle before partitioning.
func NewGraph(nodes []Node) *Graph {
	g := &Graph{
		nodes:  make(map[string]Node, len(nodes)),
		depsOf: make(map[string]map[string]bool, len(nodes)),
	}
	for _, n := range nodes {
		g.nodes[n.RequestID] = n
		g.order = append(g.order, n.RequestID)
		deps := make(map[string]bool, len(n.Dependencies))
		for _, d := range n.Dependencies {
			deps[d] = true
		}
		g.depsOf[n.RequestID] = deps
	}
	return g
}

// DetectCycle returns the first cycle found via DFS, or nil if the explicit
// dependency edges form a DAG. Resource-tag soft edges never participate in
// cycle detection: they constrain co-scheduling within a stage, not
// ordering across stages.
func (g *Graph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		path = append(path, id)
		for dep := range g.depsOf[id] {
			switch color[dep] {
			case gray:
				// found the cycle: dep already on the current path
				cycleStart := indexOf(path, dep)
				cycle := append([]string{}, path[cycleStart:]...)
				return append(cycle, dep)
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, id := range g.order {
		if color[id] == white {
			if cyc := visit(id); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

func indexOf(s []string, target string) int {
	for i, v := range s {
		if v == target {
			return i
		}
	}
	return -1
}

// Stages partitions the graph into an ordered list of stages: within a
// stage no two nodes share a resource tag and every node's explicit
// dependencies are satisfied by an earlier stage. Each stage is capped at
// maxConcurrent nodes (a stage with more ready nodes than the cap spills
// the remainder into the next stage). Node order within and across stages
// is otherwise insertion order, for deterministic output.
func (g *Graph) Stages(maxConcurrent int) [][]string {
	if maxConcurrent <= 0 {
		maxConcurrent = len(g.nodes)
	}

	done := make(map[string]bool, len(g.nodes))
	var stages [][]string

	remaining := append([]string{}, g.order...)

	for len(remaining) > 0 {
		var stage []string
		usedTags := make(map[string]bool)
		var next []string

		for _, id := range remaining {
			if len(stage) >= maxConcurrent {
				next = append(next, id)
				continue
			}
			if !dependenciesSatisfied(g.depsOf[id], done) {
				next = append(next, id)
				continue
			}
			if conflictsWithStage(g.nodes[id].ResourceTags, usedTags) {
				next = append(next, id)
				continue
			}
			stage = append(stage, id)
			for _, tag := range g.nodes[id].ResourceTags {
				usedTags[tag] = true
			}
		}

		if len(stage) == 0 {
			// Every remaining node is blocked: either by an undetected
			// cycle or by a resource conflict with no progress possible.
			// Emit remaining nodes as a final best-effort stage rather
			// than looping forever; callers should have called
			// DetectCycle first.
			stages = append(stages, remaining)
			break
		}

		for _, id := range stage {
			done[id] = true
		}
		stages = append(stages, stage)
		remaining = next
	}

	return stages
}

func dependenciesSatisfied(deps map[string]bool, done map[string]bool) bool {
	for d := range deps {
		if !done[d] {
			return false
		}
	}
	return true
}

func conflictsWithStage(tags []string, usedTags map[string]bool) bool {
	for _, tag := range tags {
		if usedTags[tag] {
			return true
		}
	}
	return false
}

// NodesByKind groups the graph's nodes by kind, for callers (e.g. the
// Permission stage) that want to reason about a batch's composition before
// scheduling it.
func NodesByKind(nodes []Node, kindOf func(toolName string) tool.Kind) map[tool.Kind][]string {
	out := make(map[tool.Kind][]string)
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.RequestID)
	}
	sort.Strings(ids)
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byID[n.RequestID] = n
	}
	for _, id := range ids {
		n := byID[id]
		k := kindOf(n.ToolName)
		out[k] = append(out[k], id)
	}
	return out
}
