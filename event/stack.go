package event

import "fmt"

type blockKey struct {
	function string
	block    BlockIndex
}

// Stack owns the event history of a single thread.
// History is an append-only arena; the stack discipline only moves the top.
// A stack is mutated by its own thread only and performs no locking.
type Stack struct {
	thread  ThreadID
	events  []Event
	top     int
	entries map[blockKey]uint64
}

// NewStack creates an empty stack for thread
func NewStack(thread ThreadID, capacity int) *Stack {
	if capacity < 0 {
		capacity = 0
	}
	return &Stack{
		thread:  thread,
		events:  make([]Event, 0, capacity),
		top:     None,
		entries: map[blockKey]uint64{},
	}
}

// Thread returns the owning thread
func (s *Stack) Thread() ThreadID { return s.thread }

// Push links event to the current top, appends it to the history and makes it the new top.
// Identity, position and entry ordinal are assigned here; caller supplied values are ignored.
func (s *Stack) Push(event Event) Event {
	index := len(s.events)
	switch event.Kind {
	case BasicBlockEntry:
		key := blockKey{function: event.Function, block: event.Block}
		event.EntryCount = s.entries[key]
		s.entries[key]++
		event.ReturningTo = None
	case FunctionCall:
		event.Block, event.EntryCount, event.ReturningTo = 0, 0, None
	case FunctionReturn:
		event.Block, event.EntryCount = 0, 0
		if event.ReturningTo != None {
			if event.ReturningTo < 0 || event.ReturningTo >= index {
				panic(fmt.Sprintf("event: return to %d is outside thread %d history of %d", event.ReturningTo, s.thread, index))
			}
			if s.events[event.ReturningTo].Kind != BasicBlockEntry {
				panic(fmt.Sprintf("event: return to %d on thread %d is not a basic block entry", event.ReturningTo, s.thread))
			}
		}
	default:
		panic(fmt.Sprintf("event: cannot push %s", event.Kind))
	}
	event.ID = numTraceEvents.Add(1) - 1
	event.Thread = s.thread
	event.Index = index
	event.Previous = s.top
	s.events = append(s.events, event)
	s.top = index
	return event
}

// EmplaceBasicBlock records an entry into block of function
func (s *Stack) EmplaceBasicBlock(function string, block BlockIndex) Event {
	return s.Push(NewBasicBlockEntry(function, block))
}

// EmplaceCall records a call to callee
func (s *Stack) EmplaceCall(callee string) Event {
	return s.Push(NewFunctionCall(callee))
}

// EmplaceReturn records a return from function to the entry at returningTo (None if unknown)
func (s *Stack) EmplaceReturn(function string, returningTo int) Event {
	return s.Push(NewFunctionReturn(function, returningTo))
}

// Pop moves the top to its predecessor; history keeps the element
func (s *Stack) Pop() bool {
	if s.top == None {
		return false
	}
	s.top = s.events[s.top].Previous
	return true
}

// Peek returns the current top
func (s *Stack) Peek() (Event, bool) {
	if s.top == None {
		return Event{}, false
	}
	return s.events[s.top], true
}

// Empty returns true if there is no active element
func (s *Stack) Empty() bool { return s.top == None }

// Len returns the number of events ever pushed
func (s *Stack) Len() int { return len(s.events) }

// At returns the event at history position index
func (s *Stack) At(index int) (Event, bool) {
	if index < 0 || index >= len(s.events) {
		return Event{}, false
	}
	return s.events[index], true
}

// History returns a copy of every pushed event in push order
func (s *Stack) History() []Event {
	result := make([]Event, len(s.events))
	copy(result, s.events)
	return result
}

// Previous returns the chain predecessor of the event at index
func (s *Stack) Previous(index int) (Event, bool) {
	event, ok := s.At(index)
	if !ok {
		return Event{}, false
	}
	return s.At(event.Previous)
}

// Next returns the event pushed right after the one at index
func (s *Stack) Next(index int) (Event, bool) {
	if index < 0 {
		return Event{}, false
	}
	return s.At(index + 1)
}

// EntryCount returns how many times block of function has been entered so far.
// Ordinals count every entry in the history, popped ones included.
func (s *Stack) EntryCount(function string, block BlockIndex) uint64 {
	return s.entries[blockKey{function: function, block: block}]
}

// CurrentBB returns the basic block control is in.
// It is absent between a call and the callee's first block.
func (s *Stack) CurrentBB() (Event, bool) {
	for i := s.top; i != None; i = s.events[i].Previous {
		switch s.events[i].Kind {
		case BasicBlockEntry:
			return s.events[i], true
		case FunctionCall:
			return Event{}, false
		}
	}
	return Event{}, false
}

// Caller returns the block the call at index was made from
func (s *Stack) Caller(index int) (Event, bool) {
	call, ok := s.At(index)
	if !ok || call.Kind != FunctionCall {
		return Event{}, false
	}
	for i := call.Previous; i != None; i = s.events[i].Previous {
		if s.events[i].Kind == BasicBlockEntry {
			return s.events[i], true
		}
	}
	return Event{}, false
}

// FunctionEntry returns the call that opened the frame holding the event at index.
// Completed nested calls are skipped by matching them with their returns.
func (s *Stack) FunctionEntry(index int) (Event, bool) {
	if _, ok := s.At(index); !ok {
		return Event{}, false
	}
	depth := 0
	for i := index - 1; i >= 0; i-- {
		switch s.events[i].Kind {
		case FunctionReturn:
			depth++
		case FunctionCall:
			if depth == 0 {
				return s.events[i], true
			}
			depth--
		}
	}
	return Event{}, false
}

// Release drops every owned event
func (s *Stack) Release() {
	s.events = nil
	s.top = None
	s.entries = map[blockKey]uint64{}
}
