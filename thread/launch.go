// Package thread configures a new thread object and starts it on an
// owned stack.
package thread

import (
	"fmt"

	"capboot/captypes"
	db "capboot/debug"
	"capboot/kernel"
	"capboot/retype"
	"capboot/serr"
)

// Registers written at launch: instruction pointer, then stack
// pointer. The body takes no arguments, so nothing else is needed.
const NREGS = 2

type Thread struct {
	Name  string
	TCB   captypes.Tcptr
	SC    captypes.Tcptr
	Regs  kernel.UserContext
	Stack *Stack
}

func (t *Thread) String() string {
	return fmt.Sprintf("{%q tcb %v sc %v regs %v}", t.Name, t.TCB, t.SC, &t.Regs)
}

type Launcher struct {
	k kernel.Kernel
}

func NewLauncher(k kernel.Kernel) *Launcher {
	return &Launcher{k: k}
}

// Launch configures tcb to run body on stk at maximum priority, bound
// to sc, in the caller's own cspace and vspace, and resumes it. The
// preconditions on stk are checked before any kernel invocation;
// resume is the last step and the stack belongs to the new thread
// once it succeeds.
func (l *Launcher) Launch(name string, tcb, sc *retype.Object, stk *Stack, body Body) (*Thread, error) {
	if stk == nil || stk.HandedOff() {
		return nil, serr.NewErr(serr.TErrAllocationFailed, fmt.Sprintf("launch %q: stack %v already handed off", name, stk))
	}
	top := stk.Top()
	if err := CheckStackTop(top); err != nil {
		db.DPrintf(db.THREAD_ERR, "Launch %q: %v", name, err)
		return nil, err
	}
	if tcb == nil || tcb.Type != kernel.TCBObject {
		return nil, serr.NewErr(serr.TErrConfigurationFailed, fmt.Sprintf("launch %q: %v is not a tcb", name, tcb))
	}
	if sc == nil || sc.Type != kernel.SchedContextObject {
		return nil, serr.NewErr(serr.TErrConfigurationFailed, fmt.Sprintf("launch %q: %v is not a scheduling context", name, sc))
	}

	prio := kernel.NewPrioProps(captypes.MaxPrio, captypes.MaxPrio)
	st := l.k.TCBConfigure(tcb.Cap, captypes.CapNull, prio, sc.Cap,
		captypes.CapInitThreadCNode, captypes.NilData, captypes.CapInitThreadVSpace, captypes.NilData, 0, captypes.CapNull)
	if !st.Ok() {
		return nil, serr.NewErrWrap(serr.TErrConfigurationFailed, fmt.Sprintf("configure tcb %v", tcb.Cap), st)
	}
	l.k.DebugNameThread(tcb.Cap, name)

	t := &Thread{Name: name, TCB: tcb.Cap, SC: sc.Cap, Stack: stk}
	t.Regs.Rip = EntryPoint(body)
	t.Regs.Rsp = top
	if st := l.k.TCBWriteRegisters(tcb.Cap, false, 0, NREGS, &t.Regs); !st.Ok() {
		return nil, serr.NewErrWrap(serr.TErrRegisterWriteFailed, fmt.Sprintf("write registers of %v", tcb.Cap), st)
	}
	if st := l.k.TCBResume(tcb.Cap); !st.Ok() {
		return nil, serr.NewErrWrap(serr.TErrResumeFailed, fmt.Sprintf("resume %v", tcb.Cap), st)
	}
	stk.handoff(tcb.Cap)
	db.DPrintf(db.THREAD, "Launch %v", t)
	return t, nil
}
