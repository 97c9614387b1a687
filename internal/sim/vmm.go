package sim

import (
	"sort"

	"github.com/pagesim/kernelsim/internal/kerrors"
)

// findPhysicalSpace returns n frame indices, evicting victims via the
// active replacement policy when fewer than n frames are free.
func (s *Simulator) findPhysicalSpace(n int32) ([]int, error) {
	var result []int
	for i := 0; i < NumFrames && len(result) < int(n); i++ {
		if s.physmem.Frames[i] == nil {
			result = append(result, i)
		}
	}
	for len(result) < int(n) {
		idx, err := s.findVictim()
		if err != nil {
			return nil, err
		}
		result = append(result, idx)
	}
	sort.Ints(result)
	return result, nil
}

// findVictim asks the policy for a victim, invalidates every page table
// entry that referenced it, and empties its frame.
func (s *Simulator) findVictim() (int, error) {
	ownerPID, pageID, idx, ok := s.Policy.SelectVictim(s.physmem)
	if !ok {
		return 0, kerrors.ReplacementQueueExhausted(s.Policy.Name())
	}
	s.severFrameReferences(ownerPID, pageID)
	s.physmem.Frames[idx] = nil
	return idx, nil
}

// pageFault installs a fresh, ref_count=1 copy of template's identity
// into a newly acquired frame and returns that frame's index.
func (s *Simulator) pageFault(template *Page) (int, error) {
	indices, err := s.findPhysicalSpace(1)
	if err != nil {
		return 0, err
	}
	idx := indices[0]
	fresh := &Page{
		OwnerPID:     template.OwnerPID,
		PageID:       template.PageID,
		AllocationID: template.AllocationID,
		Authority:    template.Authority,
		RefCount:     1,
	}
	s.physmem.Frames[idx] = fresh
	if UsesQueue(s.Policy) {
		s.physmem.QueuePush(fresh.OwnerPID, fresh.PageID)
	}
	return idx, nil
}

// incrementRefCount replaces a frame's page with a copy whose ref_count
// is one higher, preserving the value-type discipline (no in-place
// mutation of a Page that other holders might reference).
func (s *Simulator) incrementRefCount(frameIdx int32) {
	old := s.physmem.Frames[frameIdx]
	s.physmem.Frames[frameIdx] = withRefCount(old, old.RefCount+1)
}

// forEachHolder applies fn to running, then every ready and waiting
// process, in that fixed order.
func (s *Simulator) forEachHolder(fn func(p *Process)) {
	if s.running != nil {
		fn(s.running)
	}
	for _, p := range s.ready {
		fn(p)
	}
	for _, p := range s.waiting {
		fn(p)
	}
}

// severFrameReferences sets page_table[i][1] = -1 for the first virtual
// slot in each process (running, ready, waiting) whose page matches
// (ownerPID, pageID); the virtual mapping is left intact, only the
// residency pointer is severed.
func (s *Simulator) severFrameReferences(ownerPID uint32, pageID int32) {
	s.forEachHolder(func(p *Process) {
		for i := 0; i < NumVirtualSlots; i++ {
			v := p.VirtualMem[i]
			if v != nil && v.OwnerPID == ownerPID && v.PageID == pageID {
				p.PageTable[i][1] = -1
				break
			}
		}
	})
}

// propagateFrameIndex sets page_table[i][1] = idx for the first virtual
// slot in each process whose page matches (ownerPID, pageID); used after
// a fault installs a page into a new frame.
func (s *Simulator) propagateFrameIndex(ownerPID uint32, pageID int32, idx int) {
	s.forEachHolder(func(p *Process) {
		for i := 0; i < NumVirtualSlots; i++ {
			v := p.VirtualMem[i]
			if v != nil && v.OwnerPID == ownerPID && v.PageID == pageID {
				p.PageTable[i][1] = int32(idx)
				break
			}
		}
	})
}

// flipAuthorityFanOut flips matching pages to W in every ready and
// waiting holder (not running — callers handle the running process's
// own copy directly). Any holder that is not the page's owner (a child)
// has its frame pointer severed, since the physical frame it pointed at
// is about to change identity or vacate.
func (s *Simulator) flipAuthorityFanOut(ownerPID uint32, pageID int32) {
	flip := func(p *Process) {
		for i := 0; i < NumVirtualSlots; i++ {
			v := p.VirtualMem[i]
			if v == nil || v.OwnerPID != ownerPID || v.PageID != pageID {
				continue
			}
			p.VirtualMem[i] = withAuthority(v, Writable)
			if p.PID != ownerPID {
				p.PageTable[i][1] = -1
			}
			break
		}
	}
	for _, p := range s.ready {
		flip(p)
	}
	for _, p := range s.waiting {
		flip(p)
	}
}

// release drops every slot of the running process whose page has the
// given allocation id, per the W/R rules of memory_release.
func (s *Simulator) release(allocationID int32) {
	r := s.running
	for i := 0; i < NumVirtualSlots; i++ {
		p := r.VirtualMem[i]
		if p == nil || p.AllocationID != allocationID {
			continue
		}
		frameIdx := r.PageTable[i][1]
		r.VirtualMem[i] = nil
		r.PageTable[i][0] = -1
		r.PageTable[i][1] = -1

		if p.Authority == Writable {
			if frameIdx != -1 {
				if UsesQueue(s.Policy) {
					s.physmem.QueueRemove(p.OwnerPID, p.PageID)
				}
				s.physmem.Frames[frameIdx] = nil
			}
			continue
		}

		s.flipAuthorityFanOut(p.OwnerPID, p.PageID)
		if p.OwnerPID == r.PID && frameIdx != -1 {
			if UsesQueue(s.Policy) {
				s.physmem.QueueRemove(p.OwnerPID, p.PageID)
			}
			s.physmem.Frames[frameIdx] = nil
		}
	}
}
