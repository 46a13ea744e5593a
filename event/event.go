package event

import (
	"fmt"
	"sync/atomic"
)

// ThreadID identifies the thread an event was recorded on
type ThreadID int64

// Kind discriminates trace events
type Kind uint8

const (
	BasicBlockEntry Kind = iota + 1
	FunctionCall
	FunctionReturn
)

var kindNames = map[Kind]string{
	BasicBlockEntry: "BB_ENTRY",
	FunctionCall:    "CALL",
	FunctionReturn:  "RETURN",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("invalid(%d)", k)
}

// None marks an absent index link
const None = -1

// numTraceEvents is the process-wide event sequence; it is never reset
var numTraceEvents atomic.Uint64

// Ref is a stable handle to an event in a thread history
type Ref struct {
	Thread ThreadID `yaml:"thread"`
	Index  int      `yaml:"index"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%d:%d", r.Thread, r.Index)
}

// Event is a node of a thread's causal chain.
// Links are indices into the same thread history and always point backwards.
type Event struct {
	Kind        Kind       `yaml:"kind"`
	ID          uint64     `yaml:"id"`                    // Global sequence number
	Thread      ThreadID   `yaml:"thread"`                // Owning thread
	Index       int        `yaml:"index"`                 // Position in the thread history
	Previous    int        `yaml:"previous"`              // Preceding event on the chain, None if first
	Function    string     `yaml:"function"`              // Entered, called or returning function
	Block       BlockIndex `yaml:"block,omitempty"`       // BasicBlockEntry only
	EntryCount  uint64     `yaml:"entryCount,omitempty"`  // BasicBlockEntry only
	ReturningTo int        `yaml:"returningTo,omitempty"` // FunctionReturn only, None if unknown
}

// NewBasicBlockEntry creates an unlinked basic block entry
func NewBasicBlockEntry(function string, block BlockIndex) Event {
	return Event{Kind: BasicBlockEntry, Function: function, Block: block, Previous: None, ReturningTo: None}
}

// NewFunctionCall creates an unlinked call event
func NewFunctionCall(callee string) Event {
	return Event{Kind: FunctionCall, Function: callee, Previous: None, ReturningTo: None}
}

// NewFunctionReturn creates an unlinked return event
func NewFunctionReturn(function string, returningTo int) Event {
	return Event{Kind: FunctionReturn, Function: function, Previous: None, ReturningTo: returningTo}
}

func (e Event) Ref() Ref {
	return Ref{Thread: e.Thread, Index: e.Index}
}

func (e Event) HasPrevious() bool { return e.Previous != None }

func (e Event) IsEntry() bool { return e.Kind == BasicBlockEntry }

func (e Event) IsCall() bool { return e.Kind == FunctionCall }

func (e Event) IsReturn() bool { return e.Kind == FunctionReturn }

// BB returns the block snapshot of a basic block entry
func (e Event) BB() (BasicBlockTrace, bool) {
	if e.Kind != BasicBlockEntry {
		return BasicBlockTrace{}, false
	}
	return BasicBlockTrace{Function: e.Function, Index: e.Block, EntryCount: e.EntryCount}, true
}

func (e Event) String() string {
	switch e.Kind {
	case BasicBlockEntry:
		bb, _ := e.BB()
		return fmt.Sprintf("#%d %s %s", e.ID, e.Kind, bb)
	case FunctionReturn:
		return fmt.Sprintf("#%d %s %s -> %d", e.ID, e.Kind, e.Function, e.ReturningTo)
	}
	return fmt.Sprintf("#%d %s %s", e.ID, e.Kind, e.Function)
}
