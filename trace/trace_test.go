package trace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/taintrace/config"
	"github.com/viant/taintrace/event"
)

func TestTrace_CallScenario(t *testing.T) {
	trace := New()
	const thread = event.ThreadID(7)

	_, ok := trace.LastEvent(thread)
	assert.False(t, ok)
	_, ok = trace.CurrentBB(thread)
	assert.False(t, ok)

	f0 := trace.OnBasicBlockEntry(thread, "f", 0)
	call := trace.OnFunctionCall(thread, "g")
	_, ok = trace.CurrentBB(thread)
	assert.False(t, ok)
	g0 := trace.OnBasicBlockEntry(thread, "g", 0)

	caller, ok := trace.Caller(call.Ref())
	require.True(t, ok)
	assert.Equal(t, f0, caller)

	current, ok := trace.CurrentBB(thread)
	require.True(t, ok)
	assert.Equal(t, g0, current)

	last, ok := trace.LastEvent(thread)
	require.True(t, ok)
	assert.Equal(t, g0, last)
	secondToLast, ok := trace.SecondToLastEvent(thread)
	require.True(t, ok)
	assert.Equal(t, call, secondToLast)

	ret := trace.OnFunctionReturn(thread, "g", f0.Ref())
	assert.Equal(t, f0.Index, ret.ReturningTo)

	_, ok = trace.Caller(f0.Ref())
	assert.False(t, ok)
	_, ok = trace.Caller(event.Ref{Thread: 99, Index: 0})
	assert.False(t, ok)

	assert.Equal(t, []event.Event{f0, call, g0, ret}, trace.History(thread))
	assert.Equal(t, []event.ThreadID{thread}, trace.Threads())
}

func TestTrace_ReturnTargetOnOtherThread(t *testing.T) {
	trace := New()
	entry := trace.OnBasicBlockEntry(1, "f", 0)
	assert.Panics(t, func() { trace.OnFunctionReturn(2, "g", entry.Ref()) })
	assert.NotPanics(t, func() { trace.OnFunctionReturn(2, "g", event.Ref{Index: event.None}) })
}

func TestTrace_Event(t *testing.T) {
	trace := New()
	a := trace.OnBasicBlockEntry(1, "f", 0)
	b := trace.OnBasicBlockEntry(2, "f", 0)
	c := trace.OnFunctionCall(1, "g")

	for _, expect := range []event.Event{a, b, c} {
		actual, ok := trace.Event(expect.ID)
		require.True(t, ok)
		assert.Equal(t, expect, actual)
	}
	_, ok := trace.Event(c.ID + 1000)
	assert.False(t, ok)

	resolved, ok := trace.Resolve(c.Ref())
	require.True(t, ok)
	assert.Equal(t, c, resolved)
	assert.EqualValues(t, 0, b.EntryCount)
}

func TestTrace_CurrentStack(t *testing.T) {
	trace := New()
	stack := trace.CurrentStack()
	assert.Equal(t, CurrentThread(), stack.Thread())
	assert.Same(t, stack, trace.CurrentStack())

	done := make(chan event.ThreadID)
	go func() {
		done <- trace.CurrentStack().Thread()
	}()
	other := <-done
	assert.NotEqual(t, stack.Thread(), other)
	assert.Len(t, trace.Threads(), 2)
}

func TestTrace_ConcurrentThreads(t *testing.T) {
	trace := New(WithConfig(&config.Config{HistoryCapacity: 16}))
	const threads = 8
	const perThread = 500

	var wg sync.WaitGroup
	pushed := make([][]event.Event, threads)
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			for j := 0; j < perThread; j++ {
				var item event.Event
				switch j % 3 {
				case 0:
					item = trace.OnBasicBlockEntry(event.ThreadID(thread), "f", event.BlockIndex(j%5))
				case 1:
					item = trace.OnFunctionCall(event.ThreadID(thread), "g")
				default:
					item = trace.OnBasicBlockEntry(event.ThreadID(thread), "g", 0)
				}
				pushed[thread] = append(pushed[thread], item)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, trace.Threads(), threads)
	for i := 0; i < threads; i++ {
		history := trace.History(event.ThreadID(i))
		require.Len(t, history, perThread)
		assert.Equal(t, pushed[i], history)
		for j := 1; j < len(history); j++ {
			assert.Less(t, history[j-1].ID, history[j].ID)
			assert.Equal(t, j-1, history[j].Previous)
		}
	}
}

func TestTrace_Close(t *testing.T) {
	exporter := &recordingExporter{}
	trace := New(WithGraphExporter(exporter))
	entry := trace.OnBasicBlockEntry(1, "f", 0)
	trace.SetLastUsage(3, entry.Ref())

	require.NoError(t, trace.Close())
	require.NotNil(t, exporter.graph)
	assert.Len(t, exporter.graph.Nodes, 2)
	assert.Empty(t, trace.Threads())
	assert.Empty(t, trace.Taints())
	_, ok := trace.LastUsage(3)
	assert.False(t, ok)
}

type recordingExporter struct {
	graph *Graph
}

func (r *recordingExporter) Export(graph *Graph) error {
	r.graph = graph
	return nil
}
