package rand

import (
	"math/rand"
	"sync"
	"time"

	"github.com/thanhpk/randstr"
)

var (
	mu  sync.Mutex
	rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func String(n int) string {
	return randstr.String(n)
}

// Int64 returns a number in [0, n).
func Int64(n int64) uint64 {
	if n <= 0 {
		return 0
	}
	mu.Lock()
	defer mu.Unlock()
	return uint64(rnd.Int63n(n))
}
