package trace

import (
	"github.com/viant/taintrace/event"
)

// Invocation is a function call together with its matching return, if it happened
type Invocation struct {
	Call      event.Event `yaml:"call"`
	Return    event.Event `yaml:"return,omitempty"`
	HasReturn bool        `yaml:"hasReturn"`
}

// Invocations pairs every call of thread with its return, in call order.
// Like History, it is meant for a quiescent trace when thread is not the caller.
func (t *Trace) Invocations(thread event.ThreadID) []Invocation {
	history := t.History(thread)
	var result []Invocation
	var open []int
	for _, item := range history {
		switch item.Kind {
		case event.FunctionCall:
			open = append(open, len(result))
			result = append(result, Invocation{Call: item})
		case event.FunctionReturn:
			if len(open) == 0 {
				continue
			}
			last := open[len(open)-1]
			open = open[:len(open)-1]
			result[last].Return = item
			result[last].HasReturn = true
		}
	}
	return result
}

// Invocation returns the invocation opened by call
func (t *Trace) Invocation(call event.Ref) (Invocation, bool) {
	stack, ok := t.LookupStack(call.Thread)
	if !ok {
		return Invocation{}, false
	}
	opening, ok := stack.At(call.Index)
	if !ok || !opening.IsCall() {
		return Invocation{}, false
	}
	ret := Invocation{Call: opening}
	depth := 0
	for i := call.Index + 1; i < stack.Len(); i++ {
		candidate, _ := stack.At(i)
		switch candidate.Kind {
		case event.FunctionCall:
			depth++
		case event.FunctionReturn:
			if depth == 0 {
				ret.Return = candidate
				ret.HasReturn = true
				return ret, true
			}
			depth--
		}
	}
	return ret, true
}

// CalledBy returns the invocation that made inv
func (t *Trace) CalledBy(inv Invocation) (Invocation, bool) {
	stack, ok := t.LookupStack(inv.Call.Thread)
	if !ok {
		return Invocation{}, false
	}
	entry, ok := stack.FunctionEntry(inv.Call.Index)
	if !ok {
		return Invocation{}, false
	}
	return t.Invocation(entry.Ref())
}

// Calls returns the invocations made directly by inv, in call order.
// It reads inv's thread history and is meant for a quiescent trace.
func (t *Trace) Calls(inv Invocation) []Invocation {
	stack, ok := t.LookupStack(inv.Call.Thread)
	if !ok {
		return nil
	}
	end := stack.Len()
	if inv.HasReturn {
		end = inv.Return.Index
	}
	var result []Invocation
	depth := 0
	for i := inv.Call.Index + 1; i < end; i++ {
		candidate, _ := stack.At(i)
		switch candidate.Kind {
		case event.FunctionCall:
			if depth == 0 {
				if callee, ok := t.Invocation(candidate.Ref()); ok {
					result = append(result, callee)
				}
			}
			depth++
		case event.FunctionReturn:
			depth--
		}
	}
	return result
}

// TouchedTaint returns true if a basic block entered during inv, nested calls included,
// is currently the last usage of some label.
// It reads inv's thread history and is meant for a quiescent trace.
func (t *Trace) TouchedTaint(inv Invocation) bool {
	stack, ok := t.LookupStack(inv.Call.Thread)
	if !ok {
		return false
	}
	end := stack.Len()
	if inv.HasReturn {
		end = inv.Return.Index
	}
	for i := inv.Call.Index + 1; i < end; i++ {
		candidate, _ := stack.At(i)
		if candidate.IsEntry() && len(t.BlockTaints(candidate.Ref())) > 0 {
			return true
		}
	}
	return false
}
