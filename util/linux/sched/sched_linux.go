//go:build linux

package sched

import (
	"runtime"

	"golang.org/x/sys/unix"

	db "capboot/debug"
)

func SchedGetAffinity(pid int) (*unix.CPUSet, error) {
	m := &unix.CPUSet{}
	if err := unix.SchedGetaffinity(pid, m); err != nil {
		return nil, err
	}
	return m, nil
}

// NCores is the number of cores this process may run on.
func NCores() uint {
	m, err := SchedGetAffinity(0)
	if err != nil {
		db.DPrintf(db.LINUXSCHED, "SchedGetAffinity err %v", err)
		return uint(runtime.NumCPU())
	}
	if n := m.Count(); n > 0 {
		return uint(n)
	}
	return uint(runtime.NumCPU())
}
