//go:build linux

package sched_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	linuxsched "capboot/util/linux/sched"
)

func TestBasic(t *testing.T) {
	pid := os.Getpid()
	// Get the cores we can run on
	m, err := linuxsched.SchedGetAffinity(pid)
	assert.Nil(t, err, "SchedGetAffinity")
	assert.True(t, m.Count() > 0, "Number of cores")
	assert.Equal(t, uint(m.Count()), linuxsched.NCores())
}
