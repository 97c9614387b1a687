package sim

import (
	"os"

	"github.com/pagesim/kernelsim/internal/cli"
	"github.com/pagesim/kernelsim/internal/kerrors"
)

// Mode is the cycle's privilege level, shown verbatim in the trace.
type Mode string

const (
	ModeUser   Mode = "user"
	ModeKernel Mode = "kernel"
)

// Simulator owns the whole machine state for one run: physical memory,
// the replacement policy, the ready and waiting queues, the running and
// new-process slots, the cycle counter, and the trace buffer. Every
// operation is a method on *Simulator; there is no ambient or
// package-level state.
type Simulator struct {
	ProgramDir string
	Policy     Policy

	physmem *PhysicalMemory
	tracer  *Tracer
	logger  *cli.Logger

	cycle   int
	mode    Mode
	command string

	nextPID uint32

	ready   []*Process
	waiting []*Process
	running *Process
	newProc *Process

	err error
}

// NewSimulator wires a fresh simulator for one run. cycle starts at -1 so
// the first emit (boot) labels its frame [cycle #0].
func NewSimulator(programDir string, policy Policy, logger *cli.Logger) *Simulator {
	return &Simulator{
		ProgramDir: programDir,
		Policy:     policy,
		physmem:    NewPhysicalMemory(),
		tracer:     NewTracer(),
		logger:     logger,
		cycle:      -1,
	}
}

// Trace returns the accumulated cycle-by-cycle trace text.
func (s *Simulator) Trace() string {
	return s.tracer.String()
}

// Boot loads the init program, stages it, and runs the simulation to
// completion (or to the first fatal error).
func (s *Simulator) Boot() error {
	instructions, err := loadProgramFile(s.ProgramDir, "init")
	if err != nil {
		if simErr, ok := err.(*kerrors.SimError); ok {
			return simErr
		}
		if os.IsNotExist(err) {
			return kerrors.MissingInit(s.ProgramDir)
		}
		return kerrors.ProgramDirUnreadable(s.ProgramDir, err)
	}

	s.nextPID = 1
	init := NewProcess("init", s.nextPID, 0, instructions)
	s.newProc = init
	s.mode = ModeKernel
	s.emit("boot")

	s.ready = append(s.ready, init)
	s.newProc = nil
	s.dispatch()
	return s.err
}

// emit records one trace frame for the current cycle and advances the
// cycle counter. It must be called exactly once per logical cycle, after
// whatever mutation that cycle performs, so the frame reflects the
// cycle's final (post-mutation) state. The frame's mode is whatever
// s.mode was last switched to.
func (s *Simulator) emit(command string) {
	s.cycle++
	s.command = command
	s.tracer.Append(s.cycle, s.mode, s.command, s.running, s.physmem)
	if s.logger != nil {
		s.logger.Debugf("cycle #%d mode=%s command=%q", s.cycle, s.mode, s.command)
	}
}

func (s *Simulator) fail(err error) {
	s.err = err
	if s.logger != nil {
		s.logger.Error("%v", err)
	}
}
