package sim

// pageKey identifies a page by its (owner_pid, page_id) pair, the
// identity used for all cross-process matching.
type pageKey struct {
	OwnerPID uint32
	PageID   int32
}

// PhysicalMemory is the 16-frame shared store plus the FIFO/LRU
// replacement auxiliary queue (only populated when the active policy
// needs it).
type PhysicalMemory struct {
	Frames [NumFrames]*Page
	Queue  []pageKey
}

// NewPhysicalMemory returns an empty physical memory.
func NewPhysicalMemory() *PhysicalMemory {
	return &PhysicalMemory{}
}

// FindFrameIndex locates the frame holding the page identified by
// (ownerPID, pageID).
func (pm *PhysicalMemory) FindFrameIndex(ownerPID uint32, pageID int32) (int, bool) {
	for i, f := range pm.Frames {
		if f != nil && f.OwnerPID == ownerPID && f.PageID == pageID {
			return i, true
		}
	}
	return -1, false
}

// QueuePush appends a page identity to the back of the replacement
// queue (FIFO/LRU only).
func (pm *PhysicalMemory) QueuePush(ownerPID uint32, pageID int32) {
	pm.Queue = append(pm.Queue, pageKey{ownerPID, pageID})
}

// QueueRemove drops a page identity from the replacement queue,
// wherever it sits.
func (pm *PhysicalMemory) QueueRemove(ownerPID uint32, pageID int32) {
	out := pm.Queue[:0]
	for _, k := range pm.Queue {
		if k.OwnerPID == ownerPID && k.PageID == pageID {
			continue
		}
		out = append(out, k)
	}
	pm.Queue = out
}

// QueuePopFront removes and returns the front of the replacement queue.
func (pm *PhysicalMemory) QueuePopFront() (pageKey, bool) {
	if len(pm.Queue) == 0 {
		return pageKey{}, false
	}
	k := pm.Queue[0]
	pm.Queue = pm.Queue[1:]
	return k, true
}

// QueueMoveToBack relocates a page identity to the tail of the
// replacement queue; used by LRU on every reference hit.
func (pm *PhysicalMemory) QueueMoveToBack(ownerPID uint32, pageID int32) {
	idx := -1
	for i, k := range pm.Queue {
		if k.OwnerPID == ownerPID && k.PageID == pageID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	k := pm.Queue[idx]
	pm.Queue = append(pm.Queue[:idx], pm.Queue[idx+1:]...)
	pm.Queue = append(pm.Queue, k)
}
