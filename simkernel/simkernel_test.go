package simkernel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"capboot/bootinfo"
	"capboot/captypes"
	"capboot/interval"
	"capboot/kernel"
	"capboot/simkernel"
	"capboot/thread"
	"capboot/util/crash"
)

func newImage() *bootinfo.Image {
	return &bootinfo.Image{
		CNodeBits: 8,
		Nodes:     1,
		Empty:     interval.MkInterval(10, 50),
		Untypeds: []bootinfo.UntypedDesc{
			{Paddr: 0x100000, SizeBits: kernel.TCBBits},
			{Paddr: 0x200000, SizeBits: kernel.MinSchedContextBits},
			{Paddr: 0xfee00000, SizeBits: 12, IsDevice: true},
		},
		SchedControl: 50,
	}
}

func boot(t *testing.T) (*simkernel.Kernel, *bootinfo.BootInfo) {
	k, bi, err := simkernel.Boot(newImage())
	assert.Nil(t, err)
	return k, bi
}

func retype(k *simkernel.Kernel, ut captypes.Tcptr, typ kernel.Tobject, sizeBits uint, slot captypes.Tcptr) kernel.Terror {
	cn := captypes.CapInitThreadCNode
	return k.UntypedRetype(ut, typ, sizeBits, cn, captypes.Tword(cn), captypes.WordBits, slot, 1)
}

func TestBootLayout(t *testing.T) {
	k, bi := boot(t)
	assert.Equal(t, interval.MkInterval(4, 7), bi.Untyped)
	assert.Equal(t, interval.MkInterval(50, 51), bi.SchedControl)
	assert.Equal(t, interval.MkInterval(10, 50), bi.Empty)
	assert.Equal(t, simkernel.KindTCB, k.Kind(captypes.CapInitThreadTCB))
	assert.Equal(t, simkernel.KindCNode, k.Kind(captypes.CapInitThreadCNode))
	assert.Equal(t, simkernel.KindVSpace, k.Kind(captypes.CapInitThreadVSpace))
	assert.Equal(t, simkernel.KindUntyped, k.Kind(4))
	assert.Equal(t, simkernel.KindSchedControl, k.Kind(50))
	assert.Equal(t, simkernel.KindNull, k.Kind(10))
	n, ok := k.Node(50)
	assert.True(t, ok)
	assert.Equal(t, captypes.Tnode(0), n)
}

func TestBootDefaults(t *testing.T) {
	img := &bootinfo.Image{
		Nodes:    2,
		Untypeds: []bootinfo.UntypedDesc{{SizeBits: 12}},
	}
	_, bi, err := simkernel.Boot(img)
	assert.Nil(t, err)
	assert.Equal(t, interval.MkInterval(4, 5), bi.Untyped)
	assert.Equal(t, interval.MkInterval(5, 7), bi.SchedControl)
	assert.Equal(t, interval.MkInterval(7, 1<<simkernel.DEFAULT_CNODE_BITS), bi.Empty)
}

func TestBootBadImage(t *testing.T) {
	img := newImage()
	img.Empty = interval.MkInterval(10, 60)
	_, _, err := simkernel.Boot(img)
	assert.NotNil(t, err)

	img = newImage()
	img.Empty = interval.MkInterval(10, 1024)
	img.SchedControl = 2000
	_, _, err = simkernel.Boot(img)
	assert.NotNil(t, err)

	img = newImage()
	img.Untypeds[0].SizeBits = 60
	_, _, err = simkernel.Boot(img)
	assert.NotNil(t, err)
}

func TestRetype(t *testing.T) {
	k, _ := boot(t)
	assert.Equal(t, kernel.NoError, retype(k, 4, kernel.TCBObject, 0, 10))
	assert.Equal(t, simkernel.KindTCB, k.Kind(10))
	assert.Equal(t, kernel.NoError, retype(k, 5, kernel.SchedContextObject, kernel.MinSchedContextBits, 11))
	assert.Equal(t, simkernel.KindSchedContext, k.Kind(11))
}

func TestRetypeTwice(t *testing.T) {
	k, _ := boot(t)
	assert.Equal(t, kernel.NoError, retype(k, 4, kernel.TCBObject, 0, 10))
	assert.Equal(t, kernel.NotEnoughMemory, retype(k, 4, kernel.TCBObject, 0, 11))
	assert.Equal(t, simkernel.KindNull, k.Kind(11))
}

func TestRetypeErrors(t *testing.T) {
	k, _ := boot(t)
	// SC region too small for a TCB
	assert.Equal(t, kernel.NotEnoughMemory, retype(k, 5, kernel.TCBObject, 0, 10))
	// not an untyped
	assert.Equal(t, kernel.InvalidCapability, retype(k, 10, kernel.TCBObject, 0, 11))
	// occupied destination
	assert.Equal(t, kernel.DeleteFirst, retype(k, 4, kernel.TCBObject, 0, captypes.CapInitThreadVSpace))
	// device memory
	assert.Equal(t, kernel.InvalidArgument, retype(k, 6, kernel.TCBObject, 0, 12))
	// SC below minimum size
	assert.Equal(t, kernel.RangeError, retype(k, 5, kernel.SchedContextObject, kernel.MinSchedContextBits-1, 12))
	// out of the cnode
	assert.Equal(t, kernel.RangeError, retype(k, 4, kernel.TCBObject, 0, 1<<8))
	// bad depth
	cn := captypes.CapInitThreadCNode
	assert.Equal(t, kernel.RangeError, k.UntypedRetype(4, kernel.TCBObject, 0, cn, captypes.Tword(cn), 32, 12, 1))
	// bad root
	assert.Equal(t, kernel.FailedLookup, k.UntypedRetype(4, kernel.TCBObject, 0, captypes.CapInitThreadTCB, 0, 0, 12, 1))
	// nothing was consumed
	assert.Equal(t, kernel.NoError, retype(k, 4, kernel.TCBObject, 0, 12))
}

func newThread(t *testing.T) (*simkernel.Kernel, captypes.Tcptr, captypes.Tcptr) {
	k, _ := boot(t)
	assert.Equal(t, kernel.NoError, retype(k, 4, kernel.TCBObject, 0, 10))
	assert.Equal(t, kernel.NoError, retype(k, 5, kernel.SchedContextObject, kernel.MinSchedContextBits, 11))
	return k, 10, 11
}

func TestSchedControlConfigure(t *testing.T) {
	k, _, sc := newThread(t)
	assert.Equal(t, kernel.RangeError, k.SchedControlConfigure(50, sc, 20000, 10000, 0))
	assert.Equal(t, kernel.RangeError, k.SchedControlConfigure(50, sc, 1, 10000, 0))
	assert.Equal(t, kernel.RangeError, k.SchedControlConfigure(50, sc, 10000, 10000, 4))
	assert.Equal(t, kernel.InvalidCapability, k.SchedControlConfigure(51, sc, 10000, 10000, 0))
	assert.Equal(t, kernel.InvalidCapability, k.SchedControlConfigure(50, 10, 10000, 10000, 0))
	assert.Equal(t, kernel.NoError, k.SchedControlConfigure(50, sc, 10000, 10000, 0))
	si, err := k.SC(sc)
	assert.Nil(t, err)
	assert.True(t, si.Configured)
	assert.Equal(t, uint64(10000), si.BudgetUs)
	assert.Equal(t, uint64(10000), si.PeriodUs)
}

func configure(k *simkernel.Kernel, tcb, sc captypes.Tcptr, prio captypes.Tprio) kernel.Terror {
	return k.TCBConfigure(tcb, captypes.CapNull, kernel.NewPrioProps(prio, prio), sc,
		captypes.CapInitThreadCNode, captypes.NilData, captypes.CapInitThreadVSpace, captypes.NilData, 0, captypes.CapNull)
}

func TestTCBConfigure(t *testing.T) {
	k, tcb, sc := newThread(t)
	assert.Equal(t, kernel.InvalidCapability, configure(k, sc, sc, captypes.MaxPrio))
	assert.Equal(t, kernel.InvalidCapability, configure(k, tcb, tcb, captypes.MaxPrio))
	assert.Equal(t, kernel.InvalidCapability, k.TCBConfigure(tcb, captypes.CapNull, kernel.NewPrioProps(1, 1), sc,
		captypes.CapInitThreadVSpace, 0, captypes.CapInitThreadVSpace, 0, 0, captypes.CapNull))
	assert.Equal(t, kernel.NoError, configure(k, tcb, sc, captypes.MaxPrio))
	ti, err := k.TCB(tcb)
	assert.Nil(t, err)
	assert.True(t, ti.Configured)
	assert.True(t, ti.HasSC)
	assert.Equal(t, captypes.MaxPrio, ti.Prio.Prio)
	assert.Equal(t, captypes.MaxPrio, ti.Prio.MCP)
	si, err := k.SC(sc)
	assert.Nil(t, err)
	assert.Equal(t, tcb, si.Bound)
}

func TestResumeNeedsSC(t *testing.T) {
	k, tcb, sc := newThread(t)
	assert.Equal(t, kernel.IllegalOperation, k.TCBResume(tcb))
	assert.Equal(t, kernel.NoError, configure(k, tcb, captypes.CapNull, captypes.MaxPrio))
	assert.Equal(t, kernel.IllegalOperation, k.TCBResume(tcb))
	assert.Equal(t, kernel.NoError, configure(k, tcb, sc, captypes.MaxPrio))
	// bound but not configured
	assert.Equal(t, kernel.IllegalOperation, k.TCBResume(tcb))
}

func TestRunHalt(t *testing.T) {
	k, tcb, sc := newThread(t)
	ch := make(chan string)
	body := func() {
		ch <- "hallo"
		thread.Halt()
	}
	k.LoadText(body)
	assert.Equal(t, kernel.NoError, k.SchedControlConfigure(50, sc, 10000, 10000, 0))
	assert.Equal(t, kernel.NoError, configure(k, tcb, sc, captypes.MaxPrio))
	k.DebugNameThread(tcb, "t2")
	regs := &kernel.UserContext{Rip: thread.EntryPoint(body), Rsp: 0x8000}
	assert.Equal(t, kernel.NoError, k.TCBWriteRegisters(tcb, false, 0, 2, regs))
	assert.Equal(t, kernel.NoError, k.TCBResume(tcb))
	assert.Equal(t, "hallo", <-ch)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := k.Wait(ctx, tcb)
	assert.Nil(t, err)
	assert.Equal(t, simkernel.Halted, st)
	ti, err := k.TCB(tcb)
	assert.Nil(t, err)
	assert.Equal(t, "t2", ti.Name)
	assert.Equal(t, captypes.Tword(0x8000), ti.Regs.SP())
	assert.Equal(t, []crash.Tselector{crash.RETYPE, crash.RETYPE, crash.SCHEDCONTROL, crash.TCBCONFIGURE, crash.WRITEREGS, crash.RESUME}, k.Invocations())
}

func TestRunReturnFaults(t *testing.T) {
	k, tcb, sc := newThread(t)
	body := func() {}
	k.LoadText(body)
	assert.Equal(t, kernel.NoError, k.SchedControlConfigure(50, sc, 10000, 10000, 0))
	assert.Equal(t, kernel.NoError, configure(k, tcb, sc, captypes.MaxPrio))
	regs := &kernel.UserContext{Rip: thread.EntryPoint(body)}
	assert.Equal(t, kernel.NoError, k.TCBWriteRegisters(tcb, true, 0, 2, regs))
	st, err := k.Wait(context.Background(), tcb)
	assert.Nil(t, err)
	assert.Equal(t, simkernel.Faulted, st)
}

func TestRunNoText(t *testing.T) {
	k, tcb, sc := newThread(t)
	assert.Equal(t, kernel.NoError, k.SchedControlConfigure(50, sc, 10000, 10000, 0))
	assert.Equal(t, kernel.NoError, configure(k, tcb, sc, captypes.MaxPrio))
	regs := &kernel.UserContext{Rip: 0xdead}
	assert.Equal(t, kernel.NoError, k.TCBWriteRegisters(tcb, false, 0, 2, regs))
	assert.Equal(t, kernel.NoError, k.TCBResume(tcb))
	st, err := k.Wait(context.Background(), tcb)
	assert.Nil(t, err)
	assert.Equal(t, simkernel.Faulted, st)
	ti, _ := k.TCB(tcb)
	assert.Contains(t, ti.Fault, "no code")
}

func TestInjectedFault(t *testing.T) {
	k, _ := boot(t)
	k.SetFaults(crash.NewTeventMap(crash.NewEvent(crash.RETYPE, uint32(kernel.NotEnoughMemory), crash.WithStart(1))))
	assert.Equal(t, kernel.NoError, retype(k, 4, kernel.TCBObject, 0, 10))
	assert.Equal(t, kernel.NotEnoughMemory, retype(k, 5, kernel.SchedContextObject, kernel.MinSchedContextBits, 11))
}
