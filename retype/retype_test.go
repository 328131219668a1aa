package retype_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"capboot/bootinfo"
	"capboot/captypes"
	"capboot/cslot"
	"capboot/interval"
	"capboot/kernel"
	"capboot/retype"
	"capboot/serr"
	"capboot/simkernel"
	"capboot/untyped"
)

type Tstate struct {
	k     *simkernel.Kernel
	bi    *bootinfo.BootInfo
	pool  *untyped.Pool
	slots *cslot.Allocator
	r     *retype.Retyper
}

func newTstate(t *testing.T, sizes ...uint8) *Tstate {
	img := &bootinfo.Image{CNodeBits: 8, Nodes: 1, Empty: interval.MkInterval(10, 50), SchedControl: 50}
	for _, sz := range sizes {
		img.Untypeds = append(img.Untypeds, bootinfo.UntypedDesc{SizeBits: sz})
	}
	k, bi, err := simkernel.Boot(img)
	assert.Nil(t, err)
	return &Tstate{k: k, bi: bi, pool: untyped.NewPool(bi), slots: cslot.NewAllocator(bi.Empty), r: retype.NewRetyper(k)}
}

func (ts *Tstate) slot(t *testing.T) *cslot.Slot {
	s, err := ts.slots.Alloc()
	assert.Nil(t, err)
	return s
}

func (ts *Tstate) locate(t *testing.T, sz uint64) *untyped.Untyped {
	u, err := ts.pool.Locate(sz)
	assert.Nil(t, err)
	return u
}

func TestRetypeTCBAndSC(t *testing.T) {
	ts := newTstate(t, kernel.TCBBits, kernel.MinSchedContextBits)
	tcb, err := ts.r.Retype(ts.locate(t, 1<<kernel.TCBBits), kernel.TCBObject, kernel.TCBBits, ts.slot(t))
	assert.Nil(t, err)
	assert.Equal(t, captypes.Tcptr(10), tcb.Cap)
	assert.Equal(t, kernel.TCBObject, tcb.Type)
	assert.Equal(t, simkernel.KindTCB, ts.k.Kind(10))

	sc, err := ts.r.Retype(ts.locate(t, 1<<kernel.MinSchedContextBits), kernel.SchedContextObject, kernel.MinSchedContextBits, ts.slot(t))
	assert.Nil(t, err)
	assert.Equal(t, captypes.Tcptr(11), sc.Cap)
	assert.Equal(t, captypes.Tcptr(5), sc.From)
	assert.Equal(t, simkernel.KindSchedContext, ts.k.Kind(11))
	assert.Equal(t, 0, ts.pool.Available())
}

func TestRetypeSameUntypedTwice(t *testing.T) {
	ts := newTstate(t, 16)
	u := ts.locate(t, 1<<kernel.TCBBits)
	_, err := ts.r.Retype(u, kernel.TCBObject, kernel.TCBBits, ts.slot(t))
	assert.Nil(t, err)
	n := ts.k.NInvocations()
	_, err = ts.r.Retype(u, kernel.TCBObject, kernel.TCBBits, ts.slot(t))
	assert.True(t, serr.IsErrCode(err, serr.TErrAllocationFailed))
	assert.Equal(t, n, ts.k.NInvocations(), "rejected without a kernel call")
}

func TestRetypeSameSlotTwice(t *testing.T) {
	ts := newTstate(t, 16, 16)
	s := ts.slot(t)
	_, err := ts.r.Retype(ts.locate(t, 1<<kernel.TCBBits), kernel.TCBObject, kernel.TCBBits, s)
	assert.Nil(t, err)
	_, err = ts.r.Retype(ts.locate(t, 1<<kernel.TCBBits), kernel.TCBObject, kernel.TCBBits, s)
	assert.True(t, serr.IsErrCode(err, serr.TErrAllocationFailed))
	assert.Equal(t, 1, ts.pool.Available())
}

func TestRetypeKernelRefuses(t *testing.T) {
	// 2^7 bytes cannot hold a tcb
	ts := newTstate(t, kernel.MinSchedContextBits)
	u := ts.locate(t, 1)
	_, err := ts.r.Retype(u, kernel.TCBObject, kernel.TCBBits, ts.slot(t))
	assert.True(t, serr.IsErrCode(err, serr.TErrAllocationFailed))
	var st kernel.Terror
	assert.ErrorAs(t, err, &st)
	assert.Equal(t, kernel.NotEnoughMemory, st)
	assert.False(t, u.Consumed())
	assert.Equal(t, simkernel.KindNull, ts.k.Kind(10))
}

func TestRetypeNilUntyped(t *testing.T) {
	ts := newTstate(t)
	_, err := ts.r.Retype(nil, kernel.TCBObject, kernel.TCBBits, ts.slot(t))
	assert.True(t, serr.IsErrCode(err, serr.TErrAllocationFailed))
	assert.Equal(t, 0, ts.k.NInvocations())
}
