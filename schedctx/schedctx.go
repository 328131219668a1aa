// Package schedctx binds a scheduling context to the current node's
// scheduling control with a period and budget.
package schedctx

import (
	"fmt"
	"time"

	"capboot/bootinfo"
	"capboot/captypes"
	db "capboot/debug"
	"capboot/kernel"
	"capboot/retype"
	"capboot/serr"
)

const (
	TIMESLICE = 10 * time.Millisecond
)

type Params struct {
	Period       time.Duration
	Budget       time.Duration
	ExtraRefills uint
}

// RoundRobin gives a thread a full timeslice every period.
func RoundRobin() Params {
	return Params{Period: TIMESLICE, Budget: TIMESLICE, ExtraRefills: 0}
}

func (p Params) String() string {
	return fmt.Sprintf("{period %v budget %v refills %d}", p.Period, p.Budget, p.ExtraRefills)
}

// SchedControl returns the scheduling-control capability of bi's
// node: the range holds one per node, indexed by node id.
func SchedControl(bi *bootinfo.BootInfo) (captypes.Tcptr, error) {
	c := bi.SchedControl.Start + captypes.Tcptr(bi.NodeID)
	if c.IsNull() || !bi.SchedControl.Contains(c) {
		return captypes.CapNull, serr.NewErr(serr.TErrMissingCapability, fmt.Sprintf("sched control for %v in %v", bi.NodeID, bi.SchedControl))
	}
	return c, nil
}

type Configurator struct {
	k  kernel.Kernel
	bi *bootinfo.BootInfo
}

func NewConfigurator(k kernel.Kernel, bi *bootinfo.BootInfo) *Configurator {
	return &Configurator{k: k, bi: bi}
}

// Configure binds sc to the current node with p and returns the
// scheduling control it used. The kernel decides whether p is valid.
func (c *Configurator) Configure(sc *retype.Object, p Params) (captypes.Tcptr, error) {
	ctl, err := SchedControl(c.bi)
	if err != nil {
		db.DPrintf(db.SCHEDCTX_ERR, "Configure %v: %v", sc, err)
		return captypes.CapNull, err
	}
	if sc == nil || sc.Type != kernel.SchedContextObject {
		return captypes.CapNull, serr.NewErr(serr.TErrConfigurationFailed, fmt.Sprintf("%v is not a scheduling context", sc))
	}
	budget := uint64(p.Budget.Microseconds())
	period := uint64(p.Period.Microseconds())
	if p.Budget < 0 || p.Period < 0 {
		budget, period = 0, 0
	}
	if st := c.k.SchedControlConfigure(ctl, sc.Cap, budget, period, captypes.Tword(p.ExtraRefills)); !st.Ok() {
		db.DPrintf(db.SCHEDCTX_ERR, "Configure %v with %v %v: %v", sc, ctl, p, st)
		return captypes.CapNull, serr.NewErrWrap(serr.TErrConfigurationFailed, fmt.Sprintf("configure sc %v with %v %v", sc.Cap, ctl, p), st)
	}
	db.DPrintf(db.SCHEDCTX, "Configure %v on %v: %v", sc, ctl, p)
	return ctl, nil
}
