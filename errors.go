package dmn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ezachrisen/dmn/evaluator"
)

var (
	// ErrNodeNotFound is returned when an id does not name a node, or a
	// decision service, of the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrSealed is returned when a validated graph is modified.
	// Use Clone to obtain a modifiable copy.
	ErrSealed = errors.New("graph is sealed")

	// ErrDuplicateID is returned when a node or service id is added twice.
	ErrDuplicateID = errors.New("duplicate id")
)

// ResourceLimitError is returned when an evaluation exceeds a guard rail.
type ResourceLimitError = evaluator.ResourceLimitError

// ValidationError describes one structural fault of a graph.
type ValidationError struct {
	NodeID     string
	EdgeID     string
	Reason     string
	Suggestion string
	Err        error
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	switch {
	case e.NodeID != "":
		fmt.Fprintf(&sb, "node %s: ", e.NodeID)
	case e.EdgeID != "":
		fmt.Fprintf(&sb, "edge %s: ", e.EdgeID)
	}
	sb.WriteString(e.Reason)
	if e.Err != nil {
		if e.Reason != "" {
			sb.WriteString(": ")
		}
		sb.WriteString(e.Err.Error())
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", e.Suggestion)
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CycleError reports a cycle among information and knowledge requirements.
// Path starts and ends with the same node id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "requirement cycle: " + strings.Join(e.Path, " -> ")
}

// ValidationErrors accumulates every problem found by Validate.
// A nil or empty list means the graph is valid.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d validation error(s):", len(v))
	for i, err := range v {
		fmt.Fprintf(&sb, "\n  %d. %v", i+1, err)
	}
	return sb.String()
}

// Err returns nil when the list is empty, and the list otherwise.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Unwrap() []error {
	return v
}

// MissingInputError is returned when an input data node needed by the
// requested decisions has no bound value.
type MissingInputError struct {
	Name   string
	NodeID string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input %q (node %s)", e.Name, e.NodeID)
}

// NodeError wraps a failure to evaluate the logic of a node.
type NodeError struct {
	NodeID string
	Name   string
	Kind   NodeKind
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("evaluating %s %s (%s): %v", e.Kind, e.Name, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
