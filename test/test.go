package test

import (
	"context"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"capboot/boot"
	"capboot/bootinfo"
	"capboot/captypes"
	db "capboot/debug"
	"capboot/interval"
	"capboot/kernel"
	"capboot/simkernel"
	"capboot/thread"
	"capboot/util/crash"
	"capboot/util/tracing"
)

//
// Tests boot a simulated kernel from an image and bootstrap on
// it. With --tracehost, spans go to that jaeger agent.
//

const (
	EMPTY_START        = 10
	EMPTY_END          = 50
	SCHEDCONTROL_START = 50
	WAIT_TIMEOUT       = 10 * time.Second
)

var TraceHost string

func init() {
	flag.StringVar(&TraceHost, "tracehost", "", "Jaeger agent host")
}

// ImageA has one untyped that fits a thread object and one that fits
// a scheduling context, slots free from 10 and a scheduling control
// at 50 for node 0.
func ImageA() *bootinfo.Image {
	return &bootinfo.Image{
		CNodeBits:    8,
		NodeID:       0,
		Nodes:        1,
		Empty:        interval.MkInterval(EMPTY_START, EMPTY_END),
		SchedControl: SCHEDCONTROL_START,
		Untypeds: []bootinfo.UntypedDesc{
			{Paddr: 0x100000, SizeBits: kernel.TCBBits},
			{Paddr: 0x200000, SizeBits: kernel.MinSchedContextBits},
		},
	}
}

// ImageB has no untyped memory.
func ImageB() *bootinfo.Image {
	img := ImageA()
	img.Untypeds = nil
	return img
}

// ImageC runs on a node with no scheduling control.
func ImageC() *bootinfo.Image {
	img := ImageA()
	img.NodeID = 3
	return img
}

type Tstate struct {
	T   *testing.T
	K   *simkernel.Kernel
	BI  *bootinfo.BootInfo
	Ctx *boot.Context
}

func NewTstate(t *testing.T, img *bootinfo.Image) *Tstate {
	k, bi, err := simkernel.Boot(img)
	if err != nil {
		db.DFatalf("Boot %v: %v", img, err)
	}
	ctx := boot.NewContext(bi, k, nil)
	if TraceHost != "" {
		ctx.Tracer = tracing.Init(tracing.SVCNAME, TraceHost)
	}
	return &Tstate{T: t, K: k, BI: bi, Ctx: ctx}
}

// NewTstateFaults injects em's faults into the kernel's invocations.
func NewTstateFaults(t *testing.T, img *bootinfo.Image, em *crash.TeventMap) *Tstate {
	ts := NewTstate(t, img)
	ts.K.SetFaults(em)
	return ts
}

func (ts *Tstate) Spawn(name string, body thread.Body) (*boot.Launched, error) {
	ts.K.LoadText(body)
	return ts.Ctx.Spawn(context.TODO(), name, body)
}

// Wait returns the state tcb stopped in.
func (ts *Tstate) Wait(tcb captypes.Tcptr) simkernel.Tstate {
	ctx, cancel := context.WithTimeout(context.Background(), WAIT_TIMEOUT)
	defer cancel()
	st, err := ts.K.Wait(ctx, tcb)
	assert.Nil(ts.T, err, "Wait %v", tcb)
	return st
}

// NRetypes counts retype invocations so far.
func (ts *Tstate) NRetypes() int {
	n := 0
	for _, l := range ts.K.Invocations() {
		if l == crash.RETYPE {
			n++
		}
	}
	return n
}

func (ts *Tstate) Shutdown() {
	ts.Ctx.Tracer.Flush()
}
