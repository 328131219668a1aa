//go:build !linux

package sched

import (
	"runtime"
)

func NCores() uint {
	return uint(runtime.NumCPU())
}
