package trace

import (
	"fmt"
	"sort"

	"github.com/viant/taintrace/event"
)

// EdgeKind names a relation between graph nodes
type EdgeKind string

const (
	Previous   EdgeKind = "PREVIOUS"
	ReturnsTo  EdgeKind = "RETURNS_TO"
	CalledFrom EdgeKind = "CALLED_FROM"
	LastUsed   EdgeKind = "LAST_USED" // label -> basic block entry
)

// Node represents an event or a taint label in the trace graph.
type Node struct {
	ID         string                 // thread:index for events, label:n for labels
	Type       string                 // event kind or "LABEL"
	Properties map[string]interface{} // additional properties (function, block, sequence, etc.)
}

// Edge represents a relation in the trace graph.
type Edge struct {
	Source string
	Target string
	Type   EdgeKind
}

// Graph holds the nodes and edges of a trace snapshot.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// GraphExporter defines an interface to hand a trace graph to a reporting backend.
type GraphExporter interface {
	Export(graph *Graph) error
}

func labelNodeID(label Label) string {
	return fmt.Sprintf("label:%d", label)
}

// BuildGraph constructs a Graph from every thread history and the label correlation.
// It reads other threads' stacks and is meant for quiescent traces.
func (t *Trace) BuildGraph() *Graph {
	graph := &Graph{}
	for _, thread := range t.Threads() {
		stack, ok := t.LookupStack(thread)
		if !ok {
			continue
		}
		for _, item := range stack.History() {
			id := item.Ref().String()
			node := Node{
				ID:   id,
				Type: item.Kind.String(),
				Properties: map[string]interface{}{
					"sequence": item.ID,
					"thread":   int64(item.Thread),
					"function": item.Function,
				},
			}
			if bb, ok := item.BB(); ok {
				node.Properties["block"] = uint64(bb.Index)
				node.Properties["entryCount"] = bb.EntryCount
				node.Properties["hash"] = bb.Hash()
			}
			graph.Nodes = append(graph.Nodes, node)
			if item.HasPrevious() {
				graph.Edges = append(graph.Edges, Edge{Source: id, Target: event.Ref{Thread: thread, Index: item.Previous}.String(), Type: Previous})
			}
			switch item.Kind {
			case event.FunctionReturn:
				if item.ReturningTo != event.None {
					graph.Edges = append(graph.Edges, Edge{Source: id, Target: event.Ref{Thread: thread, Index: item.ReturningTo}.String(), Type: ReturnsTo})
				}
			case event.FunctionCall:
				if caller, ok := stack.Caller(item.Index); ok {
					graph.Edges = append(graph.Edges, Edge{Source: id, Target: caller.Ref().String(), Type: CalledFrom})
				}
			}
		}
	}
	taints := t.Taints()
	labels := make([]Label, 0, len(taints))
	for label := range taints {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	for _, label := range labels {
		id := labelNodeID(label)
		graph.Nodes = append(graph.Nodes, Node{ID: id, Type: "LABEL", Properties: map[string]interface{}{"label": uint32(label)}})
		graph.Edges = append(graph.Edges, Edge{Source: id, Target: taints[label].String(), Type: LastUsed})
	}
	return graph
}
