package sim

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pagesim/kernelsim/internal/cli"
)

func writeProgram(t *testing.T, dir, name string, lines []string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

var cycleHeaderRE = regexp.MustCompile(`\[cycle #(\d+)\]`)
var commandRE = regexp.MustCompile(`2\. command: (.+)`)

func cycleCommands(t *testing.T, trace string) []string {
	t.Helper()
	matches := commandRE.FindAllStringSubmatch(trace, -1)
	cmds := make([]string, len(matches))
	for i, m := range matches {
		cmds[i] = m[1]
	}
	return cmds
}

func frameCount(trace string) int {
	return len(cycleHeaderRE.FindAllString(trace, -1))
}

func cycleNumbers(trace string) []string {
	matches := cycleHeaderRE.FindAllStringSubmatch(trace, -1)
	nums := make([]string, len(matches))
	for i, m := range matches {
		nums[i] = m[1]
	}
	return nums
}

// S1: init = [memory_allocate 2, exit], policy=FIFO.
// Cycles: boot, schedule, alloc-user, alloc-syscall, schedule, exit-user, exit-syscall.
func TestSimulatorScenarioS1(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "init", []string{"memory_allocate 2", "exit"})

	s := NewSimulator(dir, ParsePolicy("fifo"), cli.NewLogger(false, false))
	if err := s.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	trace := s.Trace()
	if got := frameCount(trace); got != 7 {
		t.Fatalf("frame count = %d, want 7\ntrace:\n%s", got, trace)
	}

	want := []string{"boot", "schedule", "memory_allocate 2", "system call", "schedule", "exit", "system call"}
	got := cycleCommands(t, trace)
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command[%d] = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}

	wantCycles := []string{"0", "1", "2", "3", "4", "5", "6"}
	gotCycles := cycleNumbers(trace)
	if len(gotCycles) != len(wantCycles) {
		t.Fatalf("cycle labels = %v, want %v", gotCycles, wantCycles)
	}
	for i := range wantCycles {
		if gotCycles[i] != wantCycles[i] {
			t.Fatalf("cycle label[%d] = %q, want %q (all: %v)", i, gotCycles[i], wantCycles[i], gotCycles)
		}
	}
}

// S4: a 17th page under FIFO evicts the oldest page, severing pid 1's
// page_table[0][1] while leaving virtual_mem[0] occupied. The program
// ends without exit so the post-eviction state stays observable.
func TestSimulatorScenarioS4EvictsOldestPage(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "init", []string{"memory_allocate 16", "memory_allocate 1"})

	s := NewSimulator(dir, ParsePolicy("fifo"), cli.NewLogger(false, false))
	if err := s.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if s.err != nil {
		t.Fatalf("simulator recorded error: %v", s.err)
	}

	p := s.running
	if p == nil {
		t.Fatal("init should still hold the CPU after its last instruction")
	}
	if p.VirtualMem[0] == nil || p.VirtualMem[0].PageID != 0 {
		t.Fatalf("virtual_mem[0] = %+v, want the evicted page still mapped", p.VirtualMem[0])
	}
	if p.PageTable[0][1] != -1 {
		t.Fatalf("page_table[0][1] = %d, want -1 after eviction", p.PageTable[0][1])
	}
	if f := s.physmem.Frames[0]; f == nil || f.PageID != 16 {
		t.Fatalf("frame 0 = %+v, want the freshly allocated page 16", f)
	}
	if p.PageTable[16][1] != 0 {
		t.Fatalf("page_table[16][1] = %d, want frame 0", p.PageTable[16][1])
	}
}

// S3: fork_and_exec then a CoW write by the child must leave the child
// with an independent, writable page and the parent still holding the
// original (now-R) page.
func TestSimulatorScenarioS3CopyOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "init", []string{"memory_allocate 1", "fork_and_exec child", "wait", "exit"})
	writeProgram(t, dir, "child", []string{"memory_write 0", "exit"})

	s := NewSimulator(dir, ParsePolicy("fifo"), cli.NewLogger(false, false))
	if err := s.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if s.err != nil {
		t.Fatalf("simulator recorded error: %v", s.err)
	}

	trace := s.Trace()
	if !strings.Contains(trace, "2. command: fault") {
		t.Fatalf("child's write to a shared page must fault:\n%s", trace)
	}
	// The fault frame shows the parent's original page in frame 0 and the
	// child's private copy in frame 1.
	if !strings.Contains(trace, "|1(0) 2(0) - -|") {
		t.Fatalf("trace missing parent+child copies side by side:\n%s", trace)
	}
}

func TestSimulatorMissingInitIsFatal(t *testing.T) {
	dir := t.TempDir()
	s := NewSimulator(dir, ParsePolicy("fifo"), cli.NewLogger(false, false))
	if err := s.Boot(); err == nil {
		t.Fatal("expected an error when init is missing")
	}
}

func TestSimulatorMemoryReadHitIncrementsRefCount(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "init", []string{"memory_allocate 1", "memory_read 0", "memory_read 0"})

	s := NewSimulator(dir, ParsePolicy("lru"), cli.NewLogger(false, false))
	if err := s.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if s.err != nil {
		t.Fatalf("simulator recorded error: %v", s.err)
	}

	f := s.physmem.Frames[0]
	if f == nil || f.RefCount != 3 {
		t.Fatalf("frame 0 = %+v, want ref_count 3 after two read hits", f)
	}
	if len(s.physmem.Queue) != 1 || s.physmem.Queue[0] != (pageKey{1, 0}) {
		t.Fatalf("replacement queue = %+v, want the single resident page", s.physmem.Queue)
	}
}

// S2: a full physical memory and an LRU read hit. The read increments the
// page's ref_count and moves it to the tail of the replacement queue.
func TestSimulatorScenarioS2LRUReadHit(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "init", []string{"memory_allocate 16", "memory_read 0"})

	s := NewSimulator(dir, ParsePolicy("lru"), cli.NewLogger(false, false))
	if err := s.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if s.err != nil {
		t.Fatalf("simulator recorded error: %v", s.err)
	}

	for i := 0; i < NumFrames; i++ {
		f := s.physmem.Frames[i]
		if f == nil || f.OwnerPID != 1 || f.PageID != int32(i) {
			t.Fatalf("frame %d = %+v, want pid 1 page %d", i, f, i)
		}
	}
	if f := s.physmem.Frames[0]; f.RefCount != 2 {
		t.Fatalf("frame 0 ref_count = %d, want 2 after the read hit", f.RefCount)
	}
	if tail := s.physmem.Queue[len(s.physmem.Queue)-1]; tail != (pageKey{1, 0}) {
		t.Fatalf("replacement queue tail = %+v, want the page just read", tail)
	}
}

// S5: under LFU, pages kept warm by reads survive eviction; the 17th page
// evicts one of the untouched ones.
func TestSimulatorScenarioS5LFUSkipsWarmPages(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "init", []string{
		"memory_allocate 4",
		"memory_read 0", "memory_read 1",
		"memory_allocate 4",
		"memory_read 2", "memory_read 3",
		"memory_allocate 4",
		"memory_allocate 4",
		"memory_allocate 1",
	})

	s := NewSimulator(dir, ParsePolicy("lfu"), cli.NewLogger(false, false))
	if err := s.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if s.err != nil {
		t.Fatalf("simulator recorded error: %v", s.err)
	}

	p := s.running
	if p == nil {
		t.Fatal("init should still hold the CPU")
	}
	// Pages 0..3 have ref_count 2; the untouched minimum at the lowest
	// frame index is page 4 in frame 4.
	if f := s.physmem.Frames[4]; f == nil || f.PageID != 16 {
		t.Fatalf("frame 4 = %+v, want the 17th page installed over the victim", f)
	}
	for i := 0; i < 4; i++ {
		if f := s.physmem.Frames[i]; f == nil || f.PageID != int32(i) {
			t.Fatalf("frame %d = %+v, want warm page %d untouched", i, f, i)
		}
	}
	if p.PageTable[4][1] != -1 || p.VirtualMem[4] == nil {
		t.Fatalf("victim slot: page_table[4][1] = %d, virtual_mem[4] = %+v; want severed but still mapped",
			p.PageTable[4][1], p.VirtualMem[4])
	}
	if p.PageTable[16][1] != 4 {
		t.Fatalf("page_table[16][1] = %d, want frame 4", p.PageTable[16][1])
	}
}
