package simkernel

import (
	"fmt"

	"capboot/bootinfo"
	"capboot/captypes"
	"capboot/kernel"
)

type Tkind int

const (
	KindNull Tkind = iota
	KindUntyped
	KindTCB
	KindSchedContext
	KindSchedControl
	KindCNode
	KindVSpace
	KindEndpoint
	KindNotification
	KindReply
)

func (k Tkind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindUntyped:
		return "untyped"
	case KindTCB:
		return "tcb"
	case KindSchedContext:
		return "schedcontext"
	case KindSchedControl:
		return "schedcontrol"
	case KindCNode:
		return "cnode"
	case KindVSpace:
		return "vspace"
	case KindEndpoint:
		return "endpoint"
	case KindNotification:
		return "notification"
	case KindReply:
		return "reply"
	default:
		return fmt.Sprintf("Tkind(%d)", int(k))
	}
}

func objectKind(t kernel.Tobject) Tkind {
	switch t {
	case kernel.UntypedObject:
		return KindUntyped
	case kernel.TCBObject:
		return KindTCB
	case kernel.SchedContextObject:
		return KindSchedContext
	case kernel.CapTableObject:
		return KindCNode
	case kernel.EndpointObject:
		return KindEndpoint
	case kernel.NotificationObject:
		return KindNotification
	case kernel.ReplyObject:
		return KindReply
	}
	return KindNull
}

type capability struct {
	kind Tkind
	ut   *untypedObj
	tcb  *tcbObj
	sc   *scObj
	node captypes.Tnode
}

type untypedObj struct {
	desc    bootinfo.UntypedDesc
	retyped bool
}

type scObj struct {
	sizeBits     uint
	configured   bool
	node         captypes.Tnode
	budgetUs     uint64
	periodUs     uint64
	extraRefills uint64
	tcb          *tcbObj
}

type Tstate int

const (
	Inactive Tstate = iota
	Running
	Halted
	Faulted
)

func (s Tstate) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("Tstate(%d)", int(s))
	}
}

type tcbObj struct {
	cptr       captypes.Tcptr
	name       string
	configured bool
	faultEP    captypes.Tcptr
	prio       kernel.PrioProps
	sc         *scObj
	cspace     captypes.Tcptr
	vspace     captypes.Tcptr
	regs       kernel.UserContext
	state      Tstate
	fault      string
	done       chan struct{}
}
