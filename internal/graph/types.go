package graph

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/warpmetrics/warp-coder/internal/names"
)

// Document represents a workflow document as written: an ordered list of
// acts plus the states table. It is the raw parse target; Compile turns it
// into a validated Graph.
type Document struct {
	Version string            `yaml:"version" validate:"required"`
	Name    string            `yaml:"name,omitempty"`
	Acts    []ActSpec         `yaml:"acts" validate:"required,min=1,dive"`
	States  map[string]string `yaml:"states" validate:"required,min=1"`
}

// ActSpec describes a single act node. An executor of "none" marks a
// phase-group node; those carry exactly one result named "created".
type ActSpec struct {
	Name     string                `yaml:"name" validate:"required,act_name"`
	Label    string                `yaml:"label" validate:"required,min=1"`
	Executor string                `yaml:"executor" validate:"required"`
	Group    string                `yaml:"group,omitempty"`
	Results  map[string]ResultSpec `yaml:"results" validate:"required,min=1"`
}

// ResultSpec is a non-empty ordered sequence of edges for one result type.
type ResultSpec struct {
	Outcomes []Edge `yaml:"outcomes" validate:"required,min=1,dive"`
}

// UnmarshalYAML accepts both the long form ({outcomes: [...]}) and the
// shorthand where the result maps directly to an edge sequence.
func (r *ResultSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var edges []Edge
		if err := value.Decode(&edges); err != nil {
			return err
		}
		r.Outcomes = edges
		return nil
	}

	type rawResult ResultSpec
	var temp rawResult
	if err := value.Decode(&temp); err != nil {
		return err
	}
	*r = ResultSpec(temp)
	return nil
}

// Edge is one entry in a result's outcome list. Name is the outcome to
// record; In selects the container ("Issue", a phase-group label, or empty
// for the issue run); Next names the act to emit, or is empty for a
// terminal edge.
type Edge struct {
	Name string `yaml:"name" validate:"required,min=1"`
	In   string `yaml:"in,omitempty"`
	Next string `yaml:"next,omitempty"`
}

// UnmarshalYAML accepts both the mapping form ({name: X, in: Y, next: Z})
// and a bare scalar which is shorthand for a terminal edge on the issue
// run.
func (e *Edge) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		e.Name = value.Value
		e.In = ""
		e.Next = ""
		return nil
	}

	type rawEdge Edge
	var temp rawEdge
	if err := value.Decode(&temp); err != nil {
		return err
	}
	*e = Edge(temp)
	return nil
}

// Terminal reports whether the edge emits no follow-up act.
func (e Edge) Terminal() bool {
	return e.Next == ""
}

// Graph is the compiled, validated workflow: acts by name with declaration
// order preserved, plus the states table resolved to symbolic columns.
type Graph struct {
	Acts   map[string]*Node
	Order  []string
	States map[string]names.Column
}

// Node is the compiled form of an ActSpec.
type Node struct {
	Name     string
	Label    string
	Executor string
	Group    string
	Results  map[string]ResultSpec
}

// PhaseGroup reports whether the node creates a phase-group container
// instead of running an executor.
func (n *Node) PhaseGroup() bool {
	return n.Executor == names.GroupNone
}

// BoardOutcome returns the board outcome of the given result type: the
// name of the last edge in its sequence.
func (n *Node) BoardOutcome(resultType string) (string, bool) {
	res, ok := n.Results[resultType]
	if !ok || len(res.Outcomes) == 0 {
		return "", false
	}
	return res.Outcomes[len(res.Outcomes)-1].Name, true
}

// First returns the initial act: the first act declared in the document.
func (g *Graph) First() *Node {
	if len(g.Order) == 0 {
		return nil
	}
	return g.Acts[g.Order[0]]
}

// Lookup returns the node for an act name.
func (g *Graph) Lookup(act string) (*Node, error) {
	node, ok := g.Acts[act]
	if !ok {
		return nil, fmt.Errorf("unknown act %q", act)
	}
	return node, nil
}

// Labels returns the set of act labels, used to resolve edge containers.
func (g *Graph) Labels() map[string]string {
	out := make(map[string]string, len(g.Acts))
	for name, node := range g.Acts {
		out[node.Label] = name
	}
	return out
}
