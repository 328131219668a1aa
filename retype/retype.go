// Package retype turns untyped capabilities into kernel objects in
// the root task's CNode.
package retype

import (
	"fmt"

	"capboot/captypes"
	"capboot/cslot"
	db "capboot/debug"
	"capboot/kernel"
	"capboot/serr"
	"capboot/untyped"
)

// Object is a capability to a kernel object created by Retype. It
// lives as long as the process.
type Object struct {
	Cap      captypes.Tcptr
	Type     kernel.Tobject
	SizeBits uint
	From     captypes.Tcptr // source untyped
}

func (o *Object) String() string {
	return fmt.Sprintf("{%v %v from %v}", o.Type, o.Cap, o.From)
}

type Retyper struct {
	k    kernel.Kernel
	root captypes.Tcptr
}

// NewRetyper places objects in the caller's own CNode, which is both
// the root and the destination of every retype.
func NewRetyper(k kernel.Kernel) *Retyper {
	return &Retyper{k: k, root: captypes.CapInitThreadCNode}
}

// Retype creates one object of type typ from u into slot. Both u and
// slot are consumed on success; passing either a second time fails
// without invoking the kernel. There is no retry.
func (r *Retyper) Retype(u *untyped.Untyped, typ kernel.Tobject, sizeBits uint, slot *cslot.Slot) (*Object, error) {
	obj := fmt.Sprintf("retype %v", typ)
	if u == nil {
		return nil, serr.NewErr(serr.TErrAllocationFailed, obj+": no untyped")
	}
	if u.Consumed() {
		return nil, serr.NewErr(serr.TErrAllocationFailed, fmt.Sprintf("%v: untyped %v already retyped", obj, u.Cap()))
	}
	if slot == nil || slot.Used() {
		return nil, serr.NewErr(serr.TErrAllocationFailed, fmt.Sprintf("%v: slot %v already used", obj, slot))
	}
	st := r.k.UntypedRetype(u.Cap(), typ, sizeBits, r.root, captypes.Tword(r.root), captypes.WordBits, slot.Index(), 1)
	if !st.Ok() {
		db.DPrintf(db.RETYPE_ERR, "Retype %v from %v into %v err %v", typ, u, slot, st)
		return nil, serr.NewErrWrap(serr.TErrAllocationFailed, fmt.Sprintf("%v from %v into %v", obj, u.Cap(), slot), st)
	}
	if err := u.Consume(); err != nil {
		return nil, err
	}
	if err := slot.Consume(); err != nil {
		return nil, err
	}
	o := &Object{Cap: slot.Index(), Type: typ, SizeBits: sizeBits, From: u.Cap()}
	db.DPrintf(db.RETYPE, "Retype %v", o)
	return o, nil
}
