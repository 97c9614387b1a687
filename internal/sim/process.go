package sim

// NumVirtualSlots is the per-process virtual address space size.
const NumVirtualSlots = 32

// NumFrames is the shared physical memory size.
const NumFrames = 16

// Status is a process's wait-state flag.
type Status int

const (
	StatusNone Status = iota
	StatusWaiting
)

// Process is a single schedulable unit: its instruction queue, virtual
// memory, and page table. Queue membership (ready/waiting/running) is
// tracked by the Simulator, not by the Process itself.
type Process struct {
	Name   string
	PID    uint32
	PPID   uint32
	Status Status

	Instructions []Instruction

	VirtualMem [NumVirtualSlots]*Page
	PageTable  [NumVirtualSlots][2]int32

	NextPageID       int32
	NextAllocationID int32
}

// NewProcess creates a process with an empty address space and its
// page-id/allocation-id counters at their starting value.
func NewProcess(name string, pid, ppid uint32, instructions []Instruction) *Process {
	p := &Process{
		Name:             name,
		PID:              pid,
		PPID:             ppid,
		Instructions:     instructions,
		NextPageID:       -1,
		NextAllocationID: -1,
	}
	for i := range p.PageTable {
		p.PageTable[i][0] = -1
		p.PageTable[i][1] = -1
	}
	return p
}

// findSlot returns the virtual-memory slot holding pageID, its page, and
// the slot's frame index (-1 if not resident). idx is -1 if no slot
// holds pageID at all.
func (p *Process) findSlot(pageID int32) (idx int, page *Page, frameIdx int32) {
	for i := 0; i < NumVirtualSlots; i++ {
		if p.VirtualMem[i] != nil && p.VirtualMem[i].PageID == pageID {
			return i, p.VirtualMem[i], p.PageTable[i][1]
		}
	}
	return -1, nil, -1
}

// findVirtualSpace returns the lowest starting index of a run of n
// consecutive empty slots, or -1 if none fits or n is out of [1,16].
func (p *Process) findVirtualSpace(n int32) int {
	if n < 1 || n > NumFrames {
		return -1
	}
	limit := NumVirtualSlots - int(n)
	for i := 0; i <= limit; i++ {
		free := true
		for j := 0; j < int(n); j++ {
			if p.VirtualMem[i+j] != nil {
				free = false
				break
			}
		}
		if free {
			return i
		}
	}
	return -1
}

// distinctAllocationIDs returns the allocation ids present in the
// process's virtual memory, in first-seen slot order.
func (p *Process) distinctAllocationIDs() []int32 {
	seen := make(map[int32]bool)
	var ids []int32
	for i := 0; i < NumVirtualSlots; i++ {
		page := p.VirtualMem[i]
		if page == nil || seen[page.AllocationID] {
			continue
		}
		seen[page.AllocationID] = true
		ids = append(ids, page.AllocationID)
	}
	return ids
}
