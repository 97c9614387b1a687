package sim

import (
	"fmt"
	"strings"
)

// Tracer accumulates the cycle-by-cycle trace text, one frame per
// Append call, in the bit-exact layout the external interface requires.
type Tracer struct {
	buf strings.Builder
}

// NewTracer returns an empty Tracer.
func NewTracer() *Tracer {
	return &Tracer{}
}

// String returns the full trace accumulated so far.
func (t *Tracer) String() string {
	return t.buf.String()
}

// formatGroupedLine renders values as 4-tuples separated by '|', with a
// leading and trailing '|' and single spaces within each group.
func formatGroupedLine(values []string) string {
	var b strings.Builder
	b.WriteByte('|')
	for i, v := range values {
		b.WriteString(v)
		if i%4 == 3 {
			b.WriteByte('|')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Append formats and records one cycle's frame.
func (t *Tracer) Append(cycle int, mode Mode, command string, running *Process, pm *PhysicalMemory) {
	var b strings.Builder
	fmt.Fprintf(&b, "[cycle #%d]\n", cycle)
	fmt.Fprintf(&b, "1. mode: %s\n", mode)
	fmt.Fprintf(&b, "2. command: %s\n", command)

	if running == nil {
		b.WriteString("3. running: none\n")
	} else {
		fmt.Fprintf(&b, "3. running: %d(%s, %d)\n", running.PID, running.Name, running.PPID)
	}

	b.WriteString("4. physical memory: \n")
	physVals := make([]string, NumFrames)
	for i := 0; i < NumFrames; i++ {
		f := pm.Frames[i]
		if f == nil {
			physVals[i] = "-"
		} else {
			physVals[i] = fmt.Sprintf("%d(%d)", f.OwnerPID, f.PageID)
		}
	}
	b.WriteString(formatGroupedLine(physVals))
	b.WriteByte('\n')

	if running == nil {
		b.WriteByte('\n')
		t.buf.WriteString(b.String())
		return
	}

	vmVals := make([]string, NumVirtualSlots)
	ptVals := make([]string, NumVirtualSlots)
	authVals := make([]string, NumVirtualSlots)
	for i := 0; i < NumVirtualSlots; i++ {
		p := running.VirtualMem[i]
		if p == nil {
			vmVals[i] = "-"
			authVals[i] = "-"
		} else {
			vmVals[i] = fmt.Sprintf("%d", p.PageID)
			authVals[i] = p.Authority.String()
		}
		if running.PageTable[i][1] == -1 {
			ptVals[i] = "-"
		} else {
			ptVals[i] = fmt.Sprintf("%d", running.PageTable[i][1])
		}
	}

	b.WriteString("5. virtual memory: \n")
	b.WriteString(formatGroupedLine(vmVals))
	b.WriteString("\n6. page table: \n")
	b.WriteString(formatGroupedLine(ptVals))
	b.WriteByte('\n')
	b.WriteString(formatGroupedLine(authVals))
	b.WriteString("\n\n")

	t.buf.WriteString(b.String())
}
