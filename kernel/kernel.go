// Package kernel describes the microkernel invocation surface the
// bootstrap drives: object retype, scheduling-control configure, TCB
// configure, register write and resume. Every invocation is
// synchronous and returns a status where zero denotes success.
package kernel

import (
	"capboot/captypes"
)

// Kernel is implemented by the platform's system-call stubs and by
// simkernel.
type Kernel interface {
	// UntypedRetype creates numObjects objects of type typ from the
	// untyped capability service, placing capabilities in the CNode
	// addressed by (root, nodeIndex, nodeDepth) starting at nodeOffset.
	UntypedRetype(service captypes.Tcptr, typ Tobject, sizeBits uint, root captypes.Tcptr, nodeIndex, nodeDepth captypes.Tword, nodeOffset captypes.Tcptr, numObjects captypes.Tword) Terror

	// SchedControlConfigure binds schedContext to schedControl's node
	// with the given budget and period in microseconds.
	SchedControlConfigure(schedControl, schedContext captypes.Tcptr, budgetUs, periodUs uint64, extraRefills captypes.Tword) Terror

	TCBConfigure(tcb, faultEP captypes.Tcptr, prio PrioProps, schedContext, cspaceRoot captypes.Tcptr, cspaceRootData captypes.Tword, vspaceRoot captypes.Tcptr, vspaceRootData captypes.Tword, buffer captypes.Tword, bufferFrame captypes.Tcptr) Terror

	// TCBWriteRegisters writes the first count words of regs.
	TCBWriteRegisters(tcb captypes.Tcptr, resume bool, archFlags uint8, count captypes.Tword, regs *UserContext) Terror

	TCBResume(tcb captypes.Tcptr) Terror

	// DebugNameThread labels tcb in kernel debug output.
	DebugNameThread(tcb captypes.Tcptr, name string)
}

// PrioProps packs a thread's maximum controlled priority and its
// priority.
type PrioProps struct {
	MCP  captypes.Tprio
	Prio captypes.Tprio
}

func NewPrioProps(mcp, prio captypes.Tprio) PrioProps {
	return PrioProps{MCP: mcp, Prio: prio}
}
