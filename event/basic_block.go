package event

import (
	"fmt"
	"sort"
	"strings"
)

// BlockIndex identifies a basic block within its function
type BlockIndex uint64

// BasicBlockTrace is a snapshot of a single visit to a basic block
type BasicBlockTrace struct {
	Function   string     `yaml:"function"`   // Function identity
	Index      BlockIndex `yaml:"index"`      // Block index within the function
	EntryCount uint64     `yaml:"entryCount"` // Zero-based visit ordinal
}

// Equal reports whether both snapshots describe the same visit.
// Function identities are interned by the instrumentation, so equal
// strings always share the same backing data.
func (b BasicBlockTrace) Equal(other BasicBlockTrace) bool {
	return b.Function == other.Function && b.Index == other.Index && b.EntryCount == other.EntryCount
}

// Compare orders snapshots by function, then block index, then entry count
func (b BasicBlockTrace) Compare(other BasicBlockTrace) int {
	if cmp := strings.Compare(b.Function, other.Function); cmp != 0 {
		return cmp
	}
	switch {
	case b.Index < other.Index:
		return -1
	case b.Index > other.Index:
		return 1
	case b.EntryCount < other.EntryCount:
		return -1
	case b.EntryCount > other.EntryCount:
		return 1
	}
	return 0
}

// Less returns true if b sorts before other
func (b BasicBlockTrace) Less(other BasicBlockTrace) bool {
	return b.Compare(other) < 0
}

func (b BasicBlockTrace) String() string {
	return fmt.Sprintf("%s#%d@%d", b.Function, b.Index, b.EntryCount)
}

// SortBasicBlockTraces sorts snapshots in place
func SortBasicBlockTraces(traces []BasicBlockTrace) {
	sort.Slice(traces, func(i, j int) bool {
		return traces[i].Less(traces[j])
	})
}

// DedupeBasicBlockTraces returns sorted snapshots with duplicates removed
func DedupeBasicBlockTraces(traces []BasicBlockTrace) []BasicBlockTrace {
	if len(traces) == 0 {
		return nil
	}
	sorted := make([]BasicBlockTrace, len(traces))
	copy(sorted, traces)
	SortBasicBlockTraces(sorted)
	result := sorted[:1]
	for _, candidate := range sorted[1:] {
		if !candidate.Equal(result[len(result)-1]) {
			result = append(result, candidate)
		}
	}
	return result
}
