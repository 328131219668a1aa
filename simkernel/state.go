package simkernel

import (
	"context"
	"fmt"

	"capboot/captypes"
	"capboot/kernel"
	"capboot/util/crash"
)

// TCBInfo is a snapshot of a thread object.
type TCBInfo struct {
	Name       string
	Configured bool
	FaultEP    captypes.Tcptr
	Prio       kernel.PrioProps
	HasSC      bool
	CSpace     captypes.Tcptr
	VSpace     captypes.Tcptr
	Regs       kernel.UserContext
	State      Tstate
	Fault      string
}

// SCInfo is a snapshot of a scheduling context.
type SCInfo struct {
	SizeBits     uint
	Configured   bool
	Node         captypes.Tnode
	BudgetUs     uint64
	PeriodUs     uint64
	ExtraRefills uint64
	Bound        captypes.Tcptr
}

func (k *Kernel) Kind(c captypes.Tcptr) Tkind {
	k.Lock()
	defer k.Unlock()
	if cap := k.lookup(c); cap != nil {
		return cap.kind
	}
	return KindNull
}

// Node returns the node of a scheduling-control capability.
func (k *Kernel) Node(c captypes.Tcptr) (captypes.Tnode, bool) {
	k.Lock()
	defer k.Unlock()
	cap, st := k.lookupKind(c, KindSchedControl)
	if !st.Ok() {
		return 0, false
	}
	return cap.node, true
}

func (k *Kernel) TCB(c captypes.Tcptr) (TCBInfo, error) {
	k.Lock()
	defer k.Unlock()
	cap, st := k.lookupKind(c, KindTCB)
	if !st.Ok() {
		return TCBInfo{}, fmt.Errorf("%v: not a tcb", c)
	}
	t := cap.tcb
	return TCBInfo{
		Name:       t.name,
		Configured: t.configured,
		FaultEP:    t.faultEP,
		Prio:       t.prio,
		HasSC:      t.sc != nil,
		CSpace:     t.cspace,
		VSpace:     t.vspace,
		Regs:       t.regs,
		State:      t.state,
		Fault:      t.fault,
	}, nil
}

func (k *Kernel) SC(c captypes.Tcptr) (SCInfo, error) {
	k.Lock()
	defer k.Unlock()
	cap, st := k.lookupKind(c, KindSchedContext)
	if !st.Ok() {
		return SCInfo{}, fmt.Errorf("%v: not a scheduling context", c)
	}
	sc := cap.sc
	si := SCInfo{
		SizeBits:     sc.sizeBits,
		Configured:   sc.configured,
		Node:         sc.node,
		BudgetUs:     sc.budgetUs,
		PeriodUs:     sc.periodUs,
		ExtraRefills: sc.extraRefills,
	}
	if sc.tcb != nil {
		si.Bound = sc.tcb.cptr
	}
	return si, nil
}

// Invocations returns the labels of all invocations so far, in
// order.
func (k *Kernel) Invocations() []crash.Tselector {
	k.Lock()
	defer k.Unlock()
	return append([]crash.Tselector{}, k.invocations...)
}

func (k *Kernel) NInvocations() int {
	k.Lock()
	defer k.Unlock()
	return len(k.invocations)
}

// Wait blocks until the thread c halts or faults, or ctx is done.
func (k *Kernel) Wait(ctx context.Context, c captypes.Tcptr) (Tstate, error) {
	k.Lock()
	cap, st := k.lookupKind(c, KindTCB)
	if !st.Ok() {
		k.Unlock()
		return Inactive, fmt.Errorf("%v: not a tcb", c)
	}
	t := cap.tcb
	k.Unlock()
	select {
	case <-t.done:
	case <-ctx.Done():
		return Running, ctx.Err()
	}
	k.Lock()
	defer k.Unlock()
	return t.state, nil
}
