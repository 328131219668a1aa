// Package simkernel is an in-process model of the microkernel the
// root task boots on. It implements kernel.Kernel over a single-level
// root CNode and runs resumed threads as goroutines.
package simkernel

import (
	"fmt"
	"sync"

	"capboot/bootinfo"
	"capboot/captypes"
	db "capboot/debug"
	"capboot/interval"
	"capboot/kernel"
	"capboot/thread"
	"capboot/util/crash"
	linuxsched "capboot/util/linux/sched"
	"capboot/util/rand"
)

const (
	DEFAULT_CNODE_BITS = 12
	MAX_CNODE_BITS     = 20
)

type Kernel struct {
	sync.Mutex
	id          string
	cnode       []*capability
	mcp         captypes.Tprio
	text        map[captypes.Tword]thread.Body
	invocations []crash.Tselector
	inj         *crash.Injector
}

// Boot builds a kernel for img and the BootInfo its loader would hand
// the root task. Unset layout fields in img get defaults: untypeds
// after the initial caps, scheduling controls after the untypeds, and
// the rest of the CNode free.
func Boot(img *bootinfo.Image) (*Kernel, *bootinfo.BootInfo, error) {
	bits := img.CNodeBits
	if bits == 0 {
		bits = DEFAULT_CNODE_BITS
	}
	if bits > MAX_CNODE_BITS {
		return nil, nil, fmt.Errorf("cnode of %d bits too large", bits)
	}
	nodes := img.Nodes
	if nodes == 0 {
		nodes = uint32(linuxsched.NCores())
	}
	nslots := captypes.Tcptr(1) << bits

	utStart := img.UntypedStart
	if utStart == captypes.CapNull {
		utStart = captypes.NumInitialCaps
	}
	untyped := interval.MkInterval(utStart, utStart+captypes.Tcptr(len(img.Untypeds)))
	scStart := img.SchedControl
	if scStart == captypes.CapNull {
		scStart = untyped.End
	}
	// A node outside [0, nodes) has no scheduling control.
	schedControl := interval.MkInterval(scStart, scStart+captypes.Tcptr(nodes))
	empty := img.Empty
	if empty.IsEmpty() {
		empty = interval.MkInterval(schedControl.End, nslots)
	}
	bi := &bootinfo.BootInfo{
		NodeID:                  img.NodeID,
		NumNodes:                nodes,
		IPCBuffer:               img.IPCBuffer,
		InitThreadCNodeSizeBits: bits,
		Empty:                   empty,
		Untyped:                 untyped,
		SchedControl:            schedControl,
		UntypedList:             append([]bootinfo.UntypedDesc{}, img.Untypeds...),
	}
	if err := bi.Validate(); err != nil {
		return nil, nil, err
	}
	for _, iv := range []interval.Tinterval{empty, untyped, schedControl} {
		if iv.End > nslots {
			return nil, nil, fmt.Errorf("range %v outside cnode of %d slots", iv, nslots)
		}
	}
	k := &Kernel{
		id:    rand.String(4),
		cnode: make([]*capability, nslots),
		mcp:   captypes.MaxPrio,
		text:  make(map[captypes.Tword]thread.Body),
		inj:   crash.NewInjector(nil),
	}
	root := &tcbObj{cptr: captypes.CapInitThreadTCB, name: "rootserver", configured: true, state: Running, done: make(chan struct{})}
	root.prio = kernel.NewPrioProps(captypes.MaxPrio, captypes.MaxPrio)
	k.cnode[captypes.CapInitThreadTCB] = &capability{kind: KindTCB, tcb: root}
	k.cnode[captypes.CapInitThreadCNode] = &capability{kind: KindCNode}
	k.cnode[captypes.CapInitThreadVSpace] = &capability{kind: KindVSpace}
	for i, ud := range bi.UntypedList {
		k.cnode[bi.UntypedCap(i)] = &capability{kind: KindUntyped, ut: &untypedObj{desc: ud}}
	}
	for n := captypes.Tnode(0); n < captypes.Tnode(nodes); n++ {
		k.cnode[schedControl.Start+captypes.Tcptr(n)] = &capability{kind: KindSchedControl, node: n}
	}
	db.DPrintf(db.SIMKERNEL, "Boot %v: %d slots %d nodes %d untypeds", k.id, nslots, nodes, len(bi.UntypedList))
	return k, bi, nil
}

// SetFaults installs fault injection for subsequent invocations.
func (k *Kernel) SetFaults(em *crash.TeventMap) {
	k.Lock()
	defer k.Unlock()
	k.inj = crash.NewInjector(em)
}

// LoadText maps thread bodies into the root task's address space so
// that an instruction pointer naming one of them can run.
func (k *Kernel) LoadText(bodies ...thread.Body) {
	k.Lock()
	defer k.Unlock()
	for _, b := range bodies {
		k.text[thread.EntryPoint(b)] = b
	}
}

// invoke records an invocation and returns an injected status, if
// any.
func (k *Kernel) invoke(l crash.Tselector) kernel.Terror {
	k.invocations = append(k.invocations, l)
	if e, ok := k.inj.Fire(l); ok {
		st := kernel.Terror(e.Status)
		if st.Ok() {
			st = kernel.IllegalOperation
		}
		db.DPrintf(db.SIMKERNEL_ERR, "%v: injected %v", l, st)
		return st
	}
	return kernel.NoError
}

func (k *Kernel) lookup(c captypes.Tcptr) *capability {
	if uint64(c) >= uint64(len(k.cnode)) {
		return nil
	}
	return k.cnode[c]
}

func (k *Kernel) lookupKind(c captypes.Tcptr, kind Tkind) (*capability, kernel.Terror) {
	cap := k.lookup(c)
	if cap == nil || cap.kind != kind {
		return nil, kernel.InvalidCapability
	}
	return cap, kernel.NoError
}

// destCNode resolves the destination CNode of a retype. The root task
// has one CNode, so the destination is either the root itself (depth
// 0) or the root's own capability looked up at full depth.
func (k *Kernel) destCNode(root captypes.Tcptr, index, depth captypes.Tword) kernel.Terror {
	if _, st := k.lookupKind(root, KindCNode); !st.Ok() {
		return kernel.FailedLookup
	}
	switch depth {
	case 0:
		return kernel.NoError
	case captypes.WordBits:
		if _, st := k.lookupKind(captypes.Tcptr(index), KindCNode); !st.Ok() {
			return kernel.FailedLookup
		}
		return kernel.NoError
	}
	return kernel.RangeError
}

func (k *Kernel) UntypedRetype(service captypes.Tcptr, typ kernel.Tobject, sizeBits uint, root captypes.Tcptr, nodeIndex, nodeDepth captypes.Tword, nodeOffset captypes.Tcptr, numObjects captypes.Tword) kernel.Terror {
	k.Lock()
	defer k.Unlock()

	if st := k.invoke(crash.RETYPE); !st.Ok() {
		return st
	}
	cap, st := k.lookupKind(service, KindUntyped)
	if !st.Ok() {
		return st
	}
	if typ >= kernel.NumObjectTypes {
		return kernel.InvalidArgument
	}
	objBits, ok := typ.SizeBits(sizeBits)
	if !ok {
		return kernel.RangeError
	}
	if numObjects == 0 || uint64(numObjects) > uint64(len(k.cnode)) {
		return kernel.RangeError
	}
	if st := k.destCNode(root, nodeIndex, nodeDepth); !st.Ok() {
		return st
	}
	end := uint64(nodeOffset) + uint64(numObjects)
	if end > uint64(len(k.cnode)) {
		return kernel.RangeError
	}
	for s := uint64(nodeOffset); s < end; s++ {
		if k.cnode[s] != nil {
			return kernel.DeleteFirst
		}
	}
	ut := cap.ut
	if ut.desc.IsDevice && typ != kernel.UntypedObject {
		return kernel.InvalidArgument
	}
	if ut.retyped {
		return kernel.NotEnoughMemory
	}
	if objBits > uint(ut.desc.SizeBits) || uint64(numObjects) > uint64(1)<<(uint(ut.desc.SizeBits)-objBits) {
		return kernel.NotEnoughMemory
	}
	for s := uint64(nodeOffset); s < end; s++ {
		k.cnode[s] = k.newObject(captypes.Tcptr(s), typ, objBits)
	}
	ut.retyped = true
	db.DPrintf(db.SIMKERNEL, "%v: retype %v -> %d %v at %d", k.id, service, numObjects, typ, nodeOffset)
	return kernel.NoError
}

func (k *Kernel) newObject(c captypes.Tcptr, typ kernel.Tobject, objBits uint) *capability {
	cap := &capability{kind: objectKind(typ)}
	switch typ {
	case kernel.TCBObject:
		cap.tcb = &tcbObj{cptr: c, done: make(chan struct{})}
	case kernel.SchedContextObject:
		cap.sc = &scObj{sizeBits: objBits}
	case kernel.UntypedObject:
		cap.ut = &untypedObj{desc: bootinfo.UntypedDesc{SizeBits: uint8(objBits)}}
	}
	return cap
}

func (k *Kernel) SchedControlConfigure(schedControl, schedContext captypes.Tcptr, budgetUs, periodUs uint64, extraRefills captypes.Tword) kernel.Terror {
	k.Lock()
	defer k.Unlock()

	if st := k.invoke(crash.SCHEDCONTROL); !st.Ok() {
		return st
	}
	ctl, st := k.lookupKind(schedControl, KindSchedControl)
	if !st.Ok() {
		return st
	}
	cap, st := k.lookupKind(schedContext, KindSchedContext)
	if !st.Ok() {
		return st
	}
	sc := cap.sc
	if budgetUs < kernel.MinBudgetUs || periodUs < kernel.MinBudgetUs || periodUs > kernel.MaxPeriodUs {
		return kernel.RangeError
	}
	if budgetUs > periodUs {
		return kernel.RangeError
	}
	if uint64(extraRefills) > kernel.MaxExtraRefills(sc.sizeBits) {
		return kernel.RangeError
	}
	sc.configured = true
	sc.node = ctl.node
	sc.budgetUs = budgetUs
	sc.periodUs = periodUs
	sc.extraRefills = uint64(extraRefills)
	db.DPrintf(db.SIMKERNEL, "%v: sc %v on %v budget %dus period %dus", k.id, schedContext, ctl.node, budgetUs, periodUs)
	return kernel.NoError
}

func (k *Kernel) TCBConfigure(tcb, faultEP captypes.Tcptr, prio kernel.PrioProps, schedContext, cspaceRoot captypes.Tcptr, cspaceRootData captypes.Tword, vspaceRoot captypes.Tcptr, vspaceRootData captypes.Tword, buffer captypes.Tword, bufferFrame captypes.Tcptr) kernel.Terror {
	k.Lock()
	defer k.Unlock()

	if st := k.invoke(crash.TCBCONFIGURE); !st.Ok() {
		return st
	}
	cap, st := k.lookupKind(tcb, KindTCB)
	if !st.Ok() {
		return st
	}
	t := cap.tcb
	if t.state == Running {
		return kernel.IllegalOperation
	}
	if !faultEP.IsNull() {
		if _, st := k.lookupKind(faultEP, KindEndpoint); !st.Ok() {
			return st
		}
	}
	if prio.MCP > k.mcp || prio.Prio > k.mcp {
		return kernel.IllegalOperation
	}
	var sc *scObj
	if !schedContext.IsNull() {
		cap, st := k.lookupKind(schedContext, KindSchedContext)
		if !st.Ok() {
			return st
		}
		sc = cap.sc
		if sc.tcb != nil && sc.tcb != t {
			return kernel.IllegalOperation
		}
	}
	if _, st := k.lookupKind(cspaceRoot, KindCNode); !st.Ok() {
		return st
	}
	if _, st := k.lookupKind(vspaceRoot, KindVSpace); !st.Ok() {
		return st
	}
	if cspaceRootData != captypes.NilData || vspaceRootData != captypes.NilData {
		return kernel.InvalidArgument
	}
	if !bufferFrame.IsNull() || buffer != 0 {
		// No IPC buffer frames in this model.
		return kernel.InvalidCapability
	}
	if t.sc != nil && t.sc != sc {
		t.sc.tcb = nil
	}
	t.configured = true
	t.faultEP = faultEP
	t.prio = prio
	t.sc = sc
	if sc != nil {
		sc.tcb = t
	}
	t.cspace = cspaceRoot
	t.vspace = vspaceRoot
	db.DPrintf(db.SIMKERNEL, "%v: tcb %v prio %v sc %v", k.id, tcb, prio, schedContext)
	return kernel.NoError
}

func (k *Kernel) TCBWriteRegisters(tcb captypes.Tcptr, resume bool, archFlags uint8, count captypes.Tword, regs *kernel.UserContext) kernel.Terror {
	k.Lock()
	defer k.Unlock()

	if st := k.invoke(crash.WRITEREGS); !st.Ok() {
		return st
	}
	cap, st := k.lookupKind(tcb, KindTCB)
	if !st.Ok() {
		return st
	}
	if regs == nil {
		return kernel.InvalidArgument
	}
	t := cap.tcb
	if t.state == Running {
		return kernel.IllegalOperation
	}
	t.regs.CopyPrefix(regs, int(min(uint64(count), kernel.UserContextWords)))
	db.DPrintf(db.SIMKERNEL, "%v: tcb %v regs %v", k.id, tcb, &t.regs)
	if resume {
		return k.resumeL(t)
	}
	return kernel.NoError
}

func (k *Kernel) TCBResume(tcb captypes.Tcptr) kernel.Terror {
	k.Lock()
	defer k.Unlock()

	if st := k.invoke(crash.RESUME); !st.Ok() {
		return st
	}
	cap, st := k.lookupKind(tcb, KindTCB)
	if !st.Ok() {
		return st
	}
	return k.resumeL(cap.tcb)
}

// resumeL makes t runnable. A thread without a configured, bound
// scheduling context never receives CPU time, so it is refused.
func (k *Kernel) resumeL(t *tcbObj) kernel.Terror {
	if t.state != Inactive {
		return kernel.NoError
	}
	if !t.configured || t.sc == nil || !t.sc.configured {
		return kernel.IllegalOperation
	}
	t.state = Running
	body := k.text[t.regs.Rip]
	db.DPrintf(db.SIMKERNEL, "%v: resume %v %q", k.id, t.cptr, t.name)
	go k.run(t, body)
	return kernel.NoError
}

func (k *Kernel) run(t *tcbObj, body thread.Body) {
	returned := false
	defer func() {
		r := recover()
		k.exit(t, returned, r)
	}()
	if body == nil {
		panic(fmt.Sprintf("no code at %v", t.regs.Rip))
	}
	body()
	returned = true
}

func (k *Kernel) exit(t *tcbObj, returned bool, r interface{}) {
	k.Lock()
	defer k.Unlock()
	switch {
	case r != nil:
		t.state = Faulted
		t.fault = fmt.Sprintf("%v", r)
	case returned:
		t.state = Faulted
		t.fault = "returned from entry point"
	default:
		t.state = Halted
	}
	db.DPrintf(db.SIMKERNEL, "%v: tcb %v %q %v %v", k.id, t.cptr, t.name, t.state, t.fault)
	close(t.done)
}

func (k *Kernel) DebugNameThread(tcb captypes.Tcptr, name string) {
	k.Lock()
	defer k.Unlock()
	if cap, st := k.lookupKind(tcb, KindTCB); st.Ok() {
		cap.tcb.name = name
	}
}
