// Package boot runs the root task's bootstrap: it turns boot-time
// resources into a second running thread, one ordered step at a time.
package boot

import (
	"context"
	"errors"
	"fmt"

	"capboot/bootinfo"
	"capboot/captypes"
	"capboot/cslot"
	db "capboot/debug"
	"capboot/kernel"
	"capboot/retype"
	"capboot/schedctx"
	"capboot/serr"
	"capboot/thread"
	"capboot/untyped"
	"capboot/util/tracing"
)

// Context holds everything the bootstrap reads and consumes. It is
// used by one goroutine, before any other thread runs.
type Context struct {
	BootInfo *bootinfo.BootInfo
	Kernel   kernel.Kernel
	Slots    *cslot.Allocator
	Untypeds *untyped.Pool
	Stack    *thread.Stack
	Tracer   *tracing.Tracer

	retyper  *retype.Retyper
	sched    *schedctx.Configurator
	launcher *thread.Launcher
}

// NewContext allocates slots from bi's empty region and memory from
// its untypeds. A nil stack gets a fresh one.
func NewContext(bi *bootinfo.BootInfo, k kernel.Kernel, stack *thread.Stack) *Context {
	if stack == nil {
		stack = thread.NewStack()
	}
	return &Context{
		BootInfo: bi,
		Kernel:   k,
		Slots:    cslot.NewAllocator(bi.Empty),
		Untypeds: untyped.NewPool(bi),
		Stack:    stack,
		Tracer:   tracing.DefaultTracer(),
		retyper:  retype.NewRetyper(k),
		sched:    schedctx.NewConfigurator(k, bi),
		launcher: thread.NewLauncher(k),
	}
}

type Launched struct {
	TCB          *retype.Object
	SC           *retype.Object
	SchedControl captypes.Tcptr
	Thread       *thread.Thread
}

func (l *Launched) String() string {
	return fmt.Sprintf("{tcb %v sc %v ctl %v %v}", l.TCB, l.SC, l.SchedControl, l.Thread)
}

// stepErr names step in err, keeping err's code.
func stepErr(step string, err error) error {
	code := serr.TErrError
	var se *serr.Err
	if errors.As(err, &se) {
		code = se.Code()
	}
	return serr.NewErrWrap(code, step, err)
}

func (c *Context) step(ctx context.Context, step string, f func() error) error {
	_, span := c.Tracer.StartContextSpan(ctx, step)
	err := f()
	tracing.EndSpan(span, err)
	if err != nil {
		db.DPrintf(db.BOOT_ERR, "%v: %v", step, err)
		return stepErr(step, err)
	}
	db.DPrintf(db.BOOT, "%v: ok", step)
	return nil
}

// newObject allocates a slot, finds an untyped of at least 2^bits
// bytes and retypes it into one object of type typ in that slot.
func (c *Context) newObject(ctx context.Context, typ kernel.Tobject, bits uint) (*retype.Object, error) {
	var slot *cslot.Slot
	var u *untyped.Untyped
	var o *retype.Object
	if err := c.step(ctx, fmt.Sprintf("alloc %v slot", typ), func() error {
		s, err := c.Slots.Alloc()
		slot = s
		return err
	}); err != nil {
		return nil, err
	}
	if err := c.step(ctx, fmt.Sprintf("locate %v untyped", typ), func() error {
		ut, err := c.Untypeds.Locate(uint64(1) << bits)
		if err != nil {
			return serr.NewErrWrap(serr.TErrAllocationFailed, fmt.Sprintf("no untyped for %v", typ), err)
		}
		u = ut
		return nil
	}); err != nil {
		return nil, err
	}
	if err := c.step(ctx, fmt.Sprintf("retype %v", typ), func() error {
		obj, err := c.retyper.Retype(u, typ, bits, slot)
		o = obj
		return err
	}); err != nil {
		return nil, err
	}
	return o, nil
}

// Spawn creates a thread and its scheduling context from untyped
// memory, configures both and starts body on the context's stack at
// maximum priority with a round-robin time slice. Every step must
// succeed; the first failure stops the pipeline and is returned with
// the step's name.
func (c *Context) Spawn(ctx context.Context, name string, body thread.Body) (l *Launched, err error) {
	ctx, span := c.Tracer.StartContextSpan(ctx, "spawn "+name)
	defer func() { tracing.EndSpan(span, err) }()

	l = &Launched{}
	if l.TCB, err = c.newObject(ctx, kernel.TCBObject, kernel.TCBBits); err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.CapAttr("tcb", uint64(l.TCB.Cap)))
	if l.SC, err = c.newObject(ctx, kernel.SchedContextObject, kernel.MinSchedContextBits); err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.CapAttr("sc", uint64(l.SC.Cap)))
	if err = c.step(ctx, "configure sc", func() error {
		ctl, err := c.sched.Configure(l.SC, schedctx.RoundRobin())
		l.SchedControl = ctl
		return err
	}); err != nil {
		return nil, err
	}
	if err = c.step(ctx, "launch "+name, func() error {
		th, err := c.launcher.Launch(name, l.TCB, l.SC, c.Stack, body)
		l.Thread = th
		return err
	}); err != nil {
		return nil, err
	}
	db.DPrintf(db.BOOT, "Spawn %v", l)
	return l, nil
}
