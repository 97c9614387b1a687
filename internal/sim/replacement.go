package sim

import "strings"

// PolicyKind names one of the four supported replacement strategies.
type PolicyKind int

const (
	FIFO PolicyKind = iota
	LRU
	LFU
	MFU
)

// Policy selects a victim frame when physical memory is full.
type Policy interface {
	Name() string
	Kind() PolicyKind
	// SelectVictim identifies the page to evict, returning its identity
	// and current frame index. ok is false only when the policy cannot
	// produce a victim (FIFO/LRU with an empty replacement queue), which
	// the caller treats as a fatal precondition violation.
	SelectVictim(pm *PhysicalMemory) (ownerPID uint32, pageID int32, idx int, ok bool)
}

// UsesQueue reports whether a policy maintains PhysicalMemory.Queue.
func UsesQueue(p Policy) bool {
	k := p.Kind()
	return k == FIFO || k == LRU
}

// ParsePolicy matches a policy name by substring containment, per the
// invocation rule: fifo, lru, lfu, else MFU.
func ParsePolicy(name string) Policy {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "fifo"):
		return queuePolicy{"fifo", FIFO}
	case strings.Contains(n, "lru"):
		return queuePolicy{"lru", LRU}
	case strings.Contains(n, "lfu"):
		return lfuPolicy{}
	default:
		return mfuPolicy{}
	}
}

// queuePolicy implements FIFO and LRU: both pop the front of the
// replacement queue and locate its current frame by linear scan. They
// differ only in whether reference hits move an entry to the queue's
// tail (done by the caller via PhysicalMemory.QueueMoveToBack, gated on
// Kind() == LRU).
type queuePolicy struct {
	name string
	kind PolicyKind
}

func (q queuePolicy) Name() string     { return q.name }
func (q queuePolicy) Kind() PolicyKind { return q.kind }

func (q queuePolicy) SelectVictim(pm *PhysicalMemory) (uint32, int32, int, bool) {
	key, ok := pm.QueuePopFront()
	if !ok {
		return 0, 0, 0, false
	}
	idx, found := pm.FindFrameIndex(key.OwnerPID, key.PageID)
	if !found {
		return 0, 0, 0, false
	}
	return key.OwnerPID, key.PageID, idx, true
}

// lfuPolicy evicts the resident page with the minimum ref_count. Ties
// keep the lowest frame index: the scan only updates on a strictly
// smaller count, so the first minimum encountered wins.
type lfuPolicy struct{}

func (lfuPolicy) Name() string     { return "lfu" }
func (lfuPolicy) Kind() PolicyKind { return LFU }

func (lfuPolicy) SelectVictim(pm *PhysicalMemory) (uint32, int32, int, bool) {
	min := -1
	idx := -1
	var ownerPID uint32
	var pageID int32
	for i := 0; i < NumFrames; i++ {
		f := pm.Frames[i]
		if f == nil {
			continue
		}
		if min == -1 || int(f.RefCount) < min {
			min = int(f.RefCount)
			idx = i
			ownerPID = f.OwnerPID
			pageID = f.PageID
		}
	}
	if idx == -1 {
		return 0, 0, 0, false
	}
	return ownerPID, pageID, idx, true
}

// mfuPolicy evicts the resident page with the greatest ref_count
// observed. Ties keep the lowest frame index found first: the scan only
// updates on a strictly greater count.
type mfuPolicy struct{}

func (mfuPolicy) Name() string     { return "mfu" }
func (mfuPolicy) Kind() PolicyKind { return MFU }

func (mfuPolicy) SelectVictim(pm *PhysicalMemory) (uint32, int32, int, bool) {
	max := -1
	idx := -1
	var ownerPID uint32
	var pageID int32
	for i := 0; i < NumFrames; i++ {
		f := pm.Frames[i]
		if f == nil {
			continue
		}
		if int(f.RefCount) > max {
			max = int(f.RefCount)
			idx = i
			ownerPID = f.OwnerPID
			pageID = f.PageID
		}
	}
	if idx == -1 {
		return 0, 0, 0, false
	}
	return ownerPID, pageID, idx, true
}
