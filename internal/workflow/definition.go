package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// DependencyGraph maps node identifiers to the node IDs they depend on.
type DependencyGraph map[string][]string

// Clone returns a deep copy of the graph.
func (g DependencyGraph) Clone() DependencyGraph {
	if len(g) == 0 {
		return nil
	}
	out := make(DependencyGraph, len(g))
	for key, deps := range g {
		out[key] = cloneStringSlice(deps)
	}
	return out
}

// NodeKind classifies a studio node.
type NodeKind string

const (
	NodeStart NodeKind = "start"
	NodeLLM   NodeKind = "llm"
	NodeAgent NodeKind = "agent"
	NodeTool  NodeKind = "tool"
	NodeEnd   NodeKind = "end"
)

func (k NodeKind) valid() bool {
	switch k {
	case NodeStart, NodeLLM, NodeAgent, NodeTool, NodeEnd:
		return true
	}
	return false
}

// OutputType tells the studio how to render a node result.
type OutputType string

const (
	OutputJSON       OutputType = "json"
	OutputMarkdown   OutputType = "markdown"
	OutputDiff       OutputType = "diff"
	OutputTestReport OutputType = "test-report"
)

// Definition declares a workflow graph shown in the studio.
type Definition struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []Node          `json:"nodes" yaml:"nodes"`
	Graph       DependencyGraph `json:"graph,omitempty" yaml:"graph,omitempty"`
}

// Clone returns a deep copy of the definition.
func (def Definition) Clone() Definition {
	clone := Definition{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Graph:       def.Graph.Clone(),
	}
	if len(def.Nodes) > 0 {
		clone.Nodes = make([]Node, len(def.Nodes))
		for i, node := range def.Nodes {
			clone.Nodes[i] = node.Clone()
		}
	}
	return clone
}

// Validate ensures the definition is self-consistent.
func (def Definition) Validate() error {
	if def.ID == "" {
		return fmt.Errorf("workflow: id is required")
	}
	if len(def.Nodes) == 0 {
		return fmt.Errorf("workflow %s: at least one node is required", def.ID)
	}
	seen := map[string]struct{}{}
	for idx, node := range def.Nodes {
		if err := node.Validate(); err != nil {
			return fmt.Errorf("workflow %s node[%d]: %w", def.ID, idx, err)
		}
		if _, exists := seen[node.ID]; exists {
			return fmt.Errorf("workflow %s: duplicate node id %s", def.ID, node.ID)
		}
		seen[node.ID] = struct{}{}
	}
	for key, deps := range def.Graph {
		if _, ok := seen[key]; !ok {
			return fmt.Errorf("workflow %s: graph references unknown node %s", def.ID, key)
		}
		for _, dep := range deps {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("workflow %s: graph dependency %s -> %s references unknown node", def.ID, key, dep)
			}
		}
	}
	return nil
}

// Normalized clones the definition, merges inline node dependencies into the
// graph, and validates the result including cycle detection.
func (def Definition) Normalized() (Definition, error) {
	clone := def.Clone()
	if clone.Graph == nil {
		clone.Graph = DependencyGraph{}
	}
	for _, node := range clone.Nodes {
		clone.Graph[node.ID] = mergeDependencies(clone.Graph[node.ID], node.DependsOn)
	}
	if err := clone.Validate(); err != nil {
		return Definition{}, err
	}
	if _, err := clone.Order(); err != nil {
		return Definition{}, err
	}
	return clone, nil
}

// NodeIDs returns node identifiers in declaration order.
func (def Definition) NodeIDs() []string {
	ids := make([]string, 0, len(def.Nodes))
	for _, node := range def.Nodes {
		ids = append(ids, node.ID)
	}
	return ids
}

// Node returns the node with id.
func (def Definition) Node(id string) (Node, bool) {
	for _, node := range def.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}

// Dependencies returns the dependency list for a node.
func (def Definition) Dependencies(id string) []string {
	if def.Graph == nil {
		return nil
	}
	return cloneStringSlice(def.Graph[id])
}

// Order returns the nodes in execution order: every node after its
// dependencies, ties broken by declaration order.
func (def Definition) Order() ([]Node, error) {
	position := make(map[string]int, len(def.Nodes))
	for idx, node := range def.Nodes {
		position[node.ID] = idx
	}
	indegree := make(map[string]int, len(def.Nodes))
	dependents := map[string][]string{}
	for _, node := range def.Nodes {
		deps := mergeDependencies(def.Graph[node.ID], node.DependsOn)
		indegree[node.ID] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], node.ID)
		}
	}
	var ready []string
	for _, node := range def.Nodes {
		if indegree[node.ID] == 0 {
			ready = append(ready, node.ID)
		}
	}
	ordered := make([]Node, 0, len(def.Nodes))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, def.Nodes[position[id]].Clone())
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(ordered) != len(def.Nodes) {
		var stuck []string
		for _, node := range def.Nodes {
			if indegree[node.ID] > 0 {
				stuck = append(stuck, node.ID)
			}
		}
		return nil, fmt.Errorf("workflow %s: dependency cycle through %s", def.ID, strings.Join(stuck, ", "))
	}
	return ordered, nil
}

// Node is one step of a workflow graph.
type Node struct {
	ID          string     `json:"id" yaml:"id"`
	Label       string     `json:"label" yaml:"label"`
	Kind        NodeKind   `json:"kind" yaml:"kind"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	DependsOn   []string   `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Prompt      string     `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Command     string     `json:"command,omitempty" yaml:"command,omitempty"`
	OutputType  OutputType `json:"output_type,omitempty" yaml:"output_type,omitempty"`
	Output      string     `json:"output,omitempty" yaml:"output,omitempty"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.DependsOn = cloneStringSlice(n.DependsOn)
	return n
}

// Validate ensures the node is usable.
func (n Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("workflow: node id is required")
	}
	if !n.Kind.valid() {
		return fmt.Errorf("workflow: node %s has unknown kind %q", n.ID, n.Kind)
	}
	deps := append([]string{}, n.DependsOn...)
	sort.Strings(deps)
	for i := 1; i < len(deps); i++ {
		if deps[i] == deps[i-1] {
			return fmt.Errorf("workflow: node %s has duplicate dependency on %s", n.ID, deps[i])
		}
	}
	for _, dep := range deps {
		if dep == n.ID {
			return fmt.Errorf("workflow: node %s depends on itself", n.ID)
		}
	}
	return nil
}

func mergeDependencies(existing, adds []string) []string {
	if len(adds) == 0 && len(existing) == 0 {
		return nil
	}
	set := map[string]struct{}{}
	for _, id := range existing {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	for _, id := range adds {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func cloneStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	clone := make([]string, len(values))
	copy(clone, values)
	return clone
}
