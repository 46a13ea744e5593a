package trace

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-set"
	"github.com/viant/taintrace/event"
)

// Label is an opaque taint label
type Label uint32

// SetLastUsage records block as the most recent basic block that used label.
// The label leaves its previous block's set before joining the new one.
// block must be a recorded basic block entry; anything else panics.
func (t *Trace) SetLastUsage(label Label, block event.Ref) {
	if entry, ok := t.Resolve(block); !ok || !entry.IsEntry() {
		panic(fmt.Sprintf("trace: label %d used outside a basic block entry: %v", label, block))
	}
	t.usagesMux.Lock()
	defer t.usagesMux.Unlock()
	if previous, ok := t.lastUsages[label]; ok {
		if previous == block {
			return
		}
		if labels, ok := t.lastUsagesByBB[previous]; ok {
			labels.Remove(label)
			if labels.Size() == 0 {
				delete(t.lastUsagesByBB, previous)
			}
		}
	}
	t.lastUsages[label] = block
	labels, ok := t.lastUsagesByBB[block]
	if !ok {
		labels = set.New[Label](1)
		t.lastUsagesByBB[block] = labels
	}
	labels.Insert(label)
	if t.config.CheckInvariants {
		if err := t.checkInvariants(); err != nil {
			panic(err)
		}
	}
}

// LastUsage returns the basic block entry that last used label
func (t *Trace) LastUsage(label Label) (event.Ref, bool) {
	t.usagesMux.RLock()
	defer t.usagesMux.RUnlock()
	block, ok := t.lastUsages[label]
	return block, ok
}

// Taints returns a snapshot of every label's last usage
func (t *Trace) Taints() map[Label]event.Ref {
	t.usagesMux.RLock()
	defer t.usagesMux.RUnlock()
	result := make(map[Label]event.Ref, len(t.lastUsages))
	for label, block := range t.lastUsages {
		result[label] = block
	}
	return result
}

// BlockTaints returns the sorted labels last used in block
func (t *Trace) BlockTaints(block event.Ref) []Label {
	t.usagesMux.RLock()
	labels, ok := t.lastUsagesByBB[block]
	var result []Label
	if ok {
		result = labels.List()
	}
	t.usagesMux.RUnlock()
	if result == nil {
		return []Label{}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// CheckInvariants verifies that both label maps are exact inverses
func (t *Trace) CheckInvariants() error {
	t.usagesMux.RLock()
	defer t.usagesMux.RUnlock()
	return t.checkInvariants()
}

func (t *Trace) checkInvariants() error {
	for label, owner := range t.lastUsages {
		if labels, ok := t.lastUsagesByBB[owner]; !ok || !labels.Contains(label) {
			return fmt.Errorf("label %d last used in %v but missing from its set", label, owner)
		}
	}
	count := 0
	for _, labels := range t.lastUsagesByBB {
		count += labels.Size()
	}
	if count != len(t.lastUsages) {
		return fmt.Errorf("reverse map holds %d labels, forward map %d", count, len(t.lastUsages))
	}
	return nil
}
