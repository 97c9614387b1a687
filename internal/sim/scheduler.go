package sim

import (
	"fmt"

	"github.com/pagesim/kernelsim/internal/kerrors"
)

// dispatch pops the ready queue's front into the running slot (or
// records idle) and, if a process started running, drives its
// instructions. A no-op if a process is already running.
func (s *Simulator) dispatch() {
	if s.running != nil {
		return
	}
	s.mode = ModeKernel
	if len(s.ready) == 0 {
		s.emit("idle")
		return
	}
	p := s.ready[0]
	s.ready = s.ready[1:]
	s.running = p
	s.emit("schedule")
	s.runUserInstruction()
}

// runUserInstruction drains the running process's instruction queue.
// Instructions that resolve without blocking or dispatching (cache hits)
// fall through to the next loop iteration; every other instruction
// performs its own cycle bookkeeping and dispatch, then returns.
func (s *Simulator) runUserInstruction() {
	for s.running != nil && len(s.running.Instructions) > 0 {
		instr := s.running.Instructions[0]
		s.running.Instructions = s.running.Instructions[1:]
		s.mode = ModeUser

		switch instr.Kind {
		case KindInvalid:
			if s.logger != nil {
				s.logger.Warn("%v", kerrors.UnknownInstruction(instr.Raw))
			}
			continue
		case KindExit:
			s.execExit()
			return
		case KindAllocate:
			s.execAllocate(instr.Arg)
			return
		case KindRelease:
			s.execRelease(instr.Arg)
			return
		case KindFork:
			s.execFork(instr.Name)
			return
		case KindWait:
			s.execWait()
			return
		case KindRead:
			if !s.execRead(instr.Arg) {
				return
			}
		case KindWrite:
			if !s.execWrite(instr.Arg) {
				return
			}
		}
	}
}

func (s *Simulator) execAllocate(n int32) {
	r := s.running
	s.emit(fmt.Sprintf("memory_allocate %d", n))
	s.mode = ModeKernel

	vIdx := r.findVirtualSpace(n)
	if vIdx == -1 {
		if s.logger != nil {
			s.logger.Warn("memory_allocate %d: no virtual run of that size available, skipping", n)
		}
	} else {
		indices, err := s.findPhysicalSpace(n)
		if err != nil {
			s.fail(err)
			return
		}
		r.NextAllocationID++
		for i := int32(0); i < n; i++ {
			r.NextPageID++
			page := &Page{
				OwnerPID:     r.PID,
				PageID:       r.NextPageID,
				AllocationID: r.NextAllocationID,
				Authority:    Writable,
				RefCount:     1,
			}
			slot := vIdx + int(i)
			r.VirtualMem[slot] = page
			s.physmem.Frames[indices[i]] = page
			if UsesQueue(s.Policy) {
				s.physmem.QueuePush(page.OwnerPID, page.PageID)
			}
			r.PageTable[slot][0] = page.PageID
			r.PageTable[slot][1] = int32(indices[i])
		}
	}

	s.ready = append(s.ready, r)
	s.running = nil
	s.emit("system call")
	s.dispatch()
}

func (s *Simulator) execRelease(allocationID int32) {
	r := s.running
	s.emit(fmt.Sprintf("memory_release %d", allocationID))
	s.mode = ModeKernel

	s.release(allocationID)

	s.ready = append(s.ready, r)
	s.running = nil
	s.emit("system call")
	s.dispatch()
}

// execRead returns true when the reference hit a resident page and the
// running process should simply continue with its next instruction.
func (s *Simulator) execRead(pageID int32) bool {
	r := s.running
	_, page, frameIdx := r.findSlot(pageID)

	if page == nil {
		if s.logger != nil {
			s.logger.Warn("memory_read %d: process %d has no such page, ignoring", pageID, r.PID)
		}
		s.emit(fmt.Sprintf("memory_read %d", pageID))
		return true
	}

	if frameIdx != -1 {
		s.incrementRefCount(frameIdx)
		if s.Policy.Kind() == LRU {
			s.physmem.QueueMoveToBack(page.OwnerPID, page.PageID)
		}
		s.emit(fmt.Sprintf("memory_read %d", pageID))
		return true
	}

	s.emit(fmt.Sprintf("memory_read %d", pageID))
	s.mode = ModeKernel
	idx, err := s.pageFault(page)
	if err != nil {
		s.fail(err)
		return false
	}
	s.propagateFrameIndex(page.OwnerPID, page.PageID, idx)

	s.ready = append(s.ready, r)
	s.running = nil
	s.emit("fault")
	s.dispatch()
	return false
}

// execWrite mirrors execRead's return convention.
func (s *Simulator) execWrite(pageID int32) bool {
	r := s.running
	idx, page, frameIdx := r.findSlot(pageID)
	s.emit(fmt.Sprintf("memory_write %d", pageID))

	if page == nil {
		if s.logger != nil {
			s.logger.Warn("memory_write %d: process %d has no such page, ignoring", pageID, r.PID)
		}
		return true
	}

	authority := page.Authority
	if authority == ReadOnly {
		flipped := withAuthority(page, Writable)
		r.VirtualMem[idx] = flipped
		page = flipped
	}

	if authority == Writable {
		if frameIdx != -1 {
			s.incrementRefCount(frameIdx)
			if s.Policy.Kind() == LRU {
				s.physmem.QueueMoveToBack(page.OwnerPID, page.PageID)
			}
			return true
		}
		s.mode = ModeKernel
		newIdx, err := s.pageFault(page)
		if err != nil {
			s.fail(err)
			return false
		}
		s.propagateFrameIndex(page.OwnerPID, page.PageID, newIdx)
		s.ready = append(s.ready, r)
		s.running = nil
		s.emit("fault")
		s.dispatch()
		return false
	}

	// Authority was R: copy-on-write break.
	s.mode = ModeKernel
	s.flipAuthorityFanOut(page.OwnerPID, page.PageID)
	if frameIdx != -1 {
		s.physmem.Frames[frameIdx] = page
	}

	if page.OwnerPID != r.PID {
		child := &Page{OwnerPID: r.PID, PageID: page.PageID, AllocationID: page.AllocationID, Authority: Writable, RefCount: 1}
		r.VirtualMem[idx] = child
		newIdx, err := s.pageFault(child)
		if err != nil {
			s.fail(err)
			return false
		}
		s.propagateFrameIndex(child.OwnerPID, child.PageID, newIdx)
	} else if frameIdx != -1 {
		s.incrementRefCount(frameIdx)
		if s.Policy.Kind() == LRU {
			s.physmem.QueueMoveToBack(page.OwnerPID, page.PageID)
		}
	} else {
		newIdx, err := s.pageFault(page)
		if err != nil {
			s.fail(err)
			return false
		}
		s.propagateFrameIndex(page.OwnerPID, page.PageID, newIdx)
	}

	s.ready = append(s.ready, r)
	s.running = nil
	s.emit("fault")
	s.dispatch()
	return false
}

func (s *Simulator) execFork(name string) {
	r := s.running
	s.emit("fork_and_exec "+name)
	s.mode = ModeKernel

	instructions, err := loadProgramFile(s.ProgramDir, name)
	if err != nil {
		if simErr, ok := err.(*kerrors.SimError); ok {
			s.fail(simErr)
		} else {
			s.fail(kerrors.ForkProgramUnreadable(name, err))
		}
		return
	}

	s.nextPID++
	child := NewProcess(name, s.nextPID, r.PID, instructions)

	for i := 0; i < NumVirtualSlots; i++ {
		p := r.VirtualMem[i]
		if p == nil || p.Authority != Writable {
			continue
		}
		flipped := withAuthority(p, ReadOnly)
		r.VirtualMem[i] = flipped
		if r.PageTable[i][1] != -1 {
			s.physmem.Frames[r.PageTable[i][1]] = flipped
		}
	}

	child.VirtualMem = r.VirtualMem
	child.PageTable = r.PageTable
	child.NextPageID = r.NextPageID
	child.NextAllocationID = r.NextAllocationID

	s.ready = append(s.ready, r)
	s.running = nil
	s.newProc = child
	s.emit("system call")

	s.ready = append(s.ready, s.newProc)
	s.newProc = nil
	s.dispatch()
}

func (s *Simulator) execWait() {
	r := s.running
	s.emit("wait")
	s.mode = ModeKernel

	hasChildInReady := false
	for _, p := range s.ready {
		if p.PPID == r.PID {
			hasChildInReady = true
			break
		}
	}
	if hasChildInReady {
		r.Status = StatusWaiting
		s.waiting = append(s.waiting, r)
	} else {
		s.ready = append(s.ready, r)
	}
	s.running = nil
	s.emit("system call")
	s.dispatch()
}

func (s *Simulator) execExit() {
	r := s.running
	s.emit("exit")
	s.mode = ModeKernel

	for i, p := range s.waiting {
		if p.PID == r.PPID {
			s.waiting = append(s.waiting[:i], s.waiting[i+1:]...)
			s.ready = append(s.ready, p)
			break
		}
	}

	for _, id := range r.distinctAllocationIDs() {
		s.release(id)
	}

	s.running = nil
	s.emit("system call")

	if s.newProc != nil || len(s.ready) > 0 || len(s.waiting) > 0 {
		s.dispatch()
	}
}
