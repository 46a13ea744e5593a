package trace

import (
	"sort"
	"sync"

	"github.com/hashicorp/go-set"
	"github.com/petermattis/goid"
	"github.com/rs/zerolog"
	"github.com/viant/taintrace/config"
	"github.com/viant/taintrace/event"
)

// Trace aggregates the per-thread event stacks of one traced execution
// and correlates taint labels with the basic blocks that last used them.
type Trace struct {
	config        *config.Config
	logger        zerolog.Logger
	graphExporter GraphExporter

	stacksMux sync.RWMutex
	stacks    map[event.ThreadID]*event.Stack

	usagesMux      sync.RWMutex
	lastUsages     map[Label]event.Ref
	lastUsagesByBB map[event.Ref]*set.Set[Label]
}

// New creates a trace
func New(options ...Option) *Trace {
	t := &Trace{
		config:         config.DefaultConfig(),
		logger:         zerolog.Nop(),
		stacks:         map[event.ThreadID]*event.Stack{},
		lastUsages:     map[Label]event.Ref{},
		lastUsagesByBB: map[event.Ref]*set.Set[Label]{},
	}
	for _, opt := range options {
		opt(t)
	}
	if level, err := t.config.Level(); err == nil {
		t.logger = t.logger.Level(level)
	} else {
		t.logger.Warn().Err(err).Msg("keeping logger level")
	}
	return t
}

// CurrentThread returns the identity of the calling goroutine
func CurrentThread() event.ThreadID {
	return event.ThreadID(goid.Get())
}

// Stack returns the stack of thread, creating it on first use.
// Once created a stack is only ever touched by its own thread, so callers need no further locking.
func (t *Trace) Stack(thread event.ThreadID) *event.Stack {
	if stack, ok := t.LookupStack(thread); ok {
		return stack
	}
	t.stacksMux.Lock()
	defer t.stacksMux.Unlock()
	if stack, ok := t.stacks[thread]; ok {
		return stack
	}
	stack := event.NewStack(thread, t.config.HistoryCapacity)
	t.stacks[thread] = stack
	t.logger.Debug().Int64("thread", int64(thread)).Int("threads", len(t.stacks)).Msg("created event stack")
	return stack
}

// CurrentStack returns the stack of the calling goroutine
func (t *Trace) CurrentStack() *event.Stack {
	return t.Stack(CurrentThread())
}

// LookupStack returns the stack of thread without creating it
func (t *Trace) LookupStack(thread event.ThreadID) (*event.Stack, bool) {
	t.stacksMux.RLock()
	stack, ok := t.stacks[thread]
	t.stacksMux.RUnlock()
	return stack, ok
}

// Threads returns every thread with a stack, sorted
func (t *Trace) Threads() []event.ThreadID {
	t.stacksMux.RLock()
	threads := make([]event.ThreadID, 0, len(t.stacks))
	for thread := range t.stacks {
		threads = append(threads, thread)
	}
	t.stacksMux.RUnlock()
	sort.Slice(threads, func(i, j int) bool { return threads[i] < threads[j] })
	return threads
}

// History returns the events of thread in sequence order.
// Reading another thread's history is meant for a quiescent trace.
func (t *Trace) History(thread event.ThreadID) []event.Event {
	stack, ok := t.LookupStack(thread)
	if !ok {
		return nil
	}
	return stack.History()
}

// LastEvent returns the top of thread's stack
func (t *Trace) LastEvent(thread event.ThreadID) (event.Event, bool) {
	stack, ok := t.LookupStack(thread)
	if !ok {
		return event.Event{}, false
	}
	return stack.Peek()
}

// SecondToLastEvent returns the chain predecessor of thread's top
func (t *Trace) SecondToLastEvent(thread event.ThreadID) (event.Event, bool) {
	last, ok := t.LastEvent(thread)
	if !ok {
		return event.Event{}, false
	}
	return t.Resolve(event.Ref{Thread: thread, Index: last.Previous})
}

// CurrentBB returns the basic block thread is currently in
func (t *Trace) CurrentBB(thread event.ThreadID) (event.Event, bool) {
	stack, ok := t.LookupStack(thread)
	if !ok {
		return event.Event{}, false
	}
	return stack.CurrentBB()
}

// Caller returns the basic block a call was made from
func (t *Trace) Caller(call event.Ref) (event.Event, bool) {
	stack, ok := t.LookupStack(call.Thread)
	if !ok {
		return event.Event{}, false
	}
	return stack.Caller(call.Index)
}

// Resolve returns the event ref points to
func (t *Trace) Resolve(ref event.Ref) (event.Event, bool) {
	stack, ok := t.LookupStack(ref.Thread)
	if !ok {
		return event.Event{}, false
	}
	return stack.At(ref.Index)
}

// Event returns the event with the global sequence number id.
// It reads other threads' histories and is meant for reporting on a quiescent trace.
func (t *Trace) Event(id uint64) (event.Event, bool) {
	for _, thread := range t.Threads() {
		stack, _ := t.LookupStack(thread)
		i := sort.Search(stack.Len(), func(i int) bool {
			candidate, _ := stack.At(i)
			return candidate.ID >= id
		})
		if candidate, ok := stack.At(i); ok && candidate.ID == id {
			return candidate, true
		}
	}
	return event.Event{}, false
}

// OnBasicBlockEntry records thread entering block of function
func (t *Trace) OnBasicBlockEntry(thread event.ThreadID, function string, block event.BlockIndex) event.Event {
	return t.Stack(thread).EmplaceBasicBlock(function, block)
}

// OnFunctionCall records thread calling callee
func (t *Trace) OnFunctionCall(thread event.ThreadID, callee string) event.Event {
	return t.Stack(thread).EmplaceCall(callee)
}

// OnFunctionReturn records function returning to the basic block entry returningTo on the same thread
func (t *Trace) OnFunctionReturn(thread event.ThreadID, function string, returningTo event.Ref) event.Event {
	if returningTo.Index != event.None && returningTo.Thread != thread {
		panic("trace: return target belongs to another thread")
	}
	return t.Stack(thread).EmplaceReturn(function, returningTo.Index)
}

// OnTaintUse records label being used in block
func (t *Trace) OnTaintUse(label Label, block event.Ref) {
	t.SetLastUsage(label, block)
}

// Close exports the trace graph when an exporter is configured and then releases every event
func (t *Trace) Close() error {
	if t.graphExporter != nil {
		if err := t.graphExporter.Export(t.BuildGraph()); err != nil {
			return err
		}
	}
	t.stacksMux.Lock()
	events := 0
	for _, stack := range t.stacks {
		events += stack.Len()
		stack.Release()
	}
	threads := len(t.stacks)
	t.stacks = map[event.ThreadID]*event.Stack{}
	t.stacksMux.Unlock()

	t.usagesMux.Lock()
	labels := len(t.lastUsages)
	t.lastUsages = map[Label]event.Ref{}
	t.lastUsagesByBB = map[event.Ref]*set.Set[Label]{}
	t.usagesMux.Unlock()

	t.logger.Info().Int("threads", threads).Int("events", events).Int("labels", labels).Msg("trace closed")
	return nil
}
