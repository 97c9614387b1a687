// Package sim implements the process scheduler and paged virtual-memory
// simulator: process lifecycle, demand-paged virtual memory with
// copy-on-write fork, pluggable page replacement, and the cycle tracer.
package sim

// Authority is a page's access permission. W pages are exclusively owned
// and writable; R pages are copy-on-write shared and read-only.
type Authority int

const (
	Writable Authority = iota
	ReadOnly
)

func (a Authority) String() string {
	if a == Writable {
		return "W"
	}
	return "R"
}

// Page is an immutable-valued descriptor for one logical page. It is
// never mutated in place once constructed: any change in residency,
// authority, or reference count produces a new Page and replaces every
// pointer to the old one that the change affects, which keeps ref
// counts and authority from leaking between holders that should stay
// independent.
type Page struct {
	OwnerPID     uint32
	PageID       int32
	AllocationID int32
	Authority    Authority
	RefCount     uint32
}

func withAuthority(p *Page, a Authority) *Page {
	return &Page{
		OwnerPID:     p.OwnerPID,
		PageID:       p.PageID,
		AllocationID: p.AllocationID,
		Authority:    a,
		RefCount:     p.RefCount,
	}
}

func withRefCount(p *Page, count uint32) *Page {
	return &Page{
		OwnerPID:     p.OwnerPID,
		PageID:       p.PageID,
		AllocationID: p.AllocationID,
		Authority:    p.Authority,
		RefCount:     count,
	}
}
