// Package untyped locates untyped memory capabilities for kernel
// objects. Each untyped can be retyped once; after that the Pool no
// longer offers it.
package untyped

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/exp/slices"

	"capboot/bootinfo"
	"capboot/captypes"
	db "capboot/debug"
	"capboot/serr"
)

type Untyped struct {
	cap      captypes.Tcptr
	desc     bootinfo.UntypedDesc
	consumed bool
}

func (u *Untyped) Cap() captypes.Tcptr {
	return u.cap
}

func (u *Untyped) SizeBits() uint {
	return uint(u.desc.SizeBits)
}

func (u *Untyped) Bytes() uint64 {
	return u.desc.Bytes()
}

func (u *Untyped) IsDevice() bool {
	return u.desc.IsDevice
}

func (u *Untyped) Consumed() bool {
	return u.consumed
}

// Consume records that u now backs a kernel object.
func (u *Untyped) Consume() error {
	if u.consumed {
		return serr.NewErr(serr.TErrAllocationFailed, fmt.Sprintf("untyped %v already retyped", u.cap))
	}
	u.consumed = true
	db.DPrintf(db.UNTYPED, "Consume %v", u)
	return nil
}

func (u *Untyped) fits(sizeBytes uint64) bool {
	return !u.desc.IsDevice && !u.consumed && u.desc.Bytes() >= sizeBytes
}

func (u *Untyped) String() string {
	return fmt.Sprintf("{%v %v}", u.cap, u.desc)
}

// Pool holds one Untyped per descriptor, in capability order.
type Pool struct {
	uts []*Untyped
}

func NewPool(bi *bootinfo.BootInfo) *Pool {
	p := &Pool{uts: make([]*Untyped, len(bi.UntypedList))}
	for i, ud := range bi.UntypedList {
		p.uts[i] = &Untyped{cap: bi.UntypedCap(i), desc: ud}
	}
	return p
}

// Locate returns the lowest-index untyped of at least sizeBytes that
// is neither device memory nor already retyped. First fit: the
// candidate set is small and used once.
func (p *Pool) Locate(sizeBytes uint64) (*Untyped, error) {
	i := slices.IndexFunc(p.uts, func(u *Untyped) bool { return u.fits(sizeBytes) })
	if i < 0 {
		db.DPrintf(db.UNTYPED, "Locate %v: none of %d untypeds fit", humanize.IBytes(sizeBytes), len(p.uts))
		return nil, serr.NewErr(serr.TErrResourceNotFound, fmt.Sprintf("untyped of %v", humanize.IBytes(sizeBytes)))
	}
	db.DPrintf(db.UNTYPED, "Locate %v: %v", humanize.IBytes(sizeBytes), p.uts[i])
	return p.uts[i], nil
}

// Available is the number of untypeds not yet retyped.
func (p *Pool) Available() int {
	n := 0
	for _, u := range p.uts {
		if !u.consumed {
			n++
		}
	}
	return n
}

func (p *Pool) Len() int {
	return len(p.uts)
}
