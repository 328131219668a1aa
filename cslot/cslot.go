// Package cslot hands out slots of the root CNode's free range. Slots
// are issued in increasing order and never returned.
package cslot

import (
	"fmt"

	"capboot/captypes"
	db "capboot/debug"
	"capboot/interval"
	"capboot/serr"
)

// Slot is a single-use destination for a new capability.
type Slot struct {
	idx  captypes.Tcptr
	used bool
}

func (s *Slot) Index() captypes.Tcptr {
	return s.idx
}

func (s *Slot) Used() bool {
	return s.used
}

// Consume marks the slot as filled; a slot can be consumed once.
func (s *Slot) Consume() error {
	if s.used {
		return serr.NewErr(serr.TErrAllocationFailed, fmt.Sprintf("slot %d already used", s.idx))
	}
	s.used = true
	return nil
}

func (s *Slot) String() string {
	return fmt.Sprintf("slot %d", uint64(s.idx))
}

type Allocator struct {
	region interval.Tinterval
	next   captypes.Tcptr
}

func NewAllocator(region interval.Tinterval) *Allocator {
	return &Allocator{region: region, next: region.Start}
}

func (a *Allocator) Alloc() (*Slot, error) {
	if a.next >= a.region.End {
		return nil, serr.NewErr(serr.TErrAllocationFailed, fmt.Sprintf("no cslots left in %v", a.region))
	}
	s := &Slot{idx: a.next}
	a.next++
	db.DPrintf(db.CSLOT, "Alloc %v remaining %d", s, a.Remaining())
	return s, nil
}

// Next is the index the next Alloc returns.
func (a *Allocator) Next() captypes.Tcptr {
	return a.next
}

func (a *Allocator) Remaining() uint64 {
	return interval.MkInterval(a.next, a.region.End).Size()
}
