package bootinfo

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	db "capboot/debug"
	"capboot/serr"
)

// The loader passes the BootInfo address to the root task in this
// environment variable, formatted as a hex pointer.
const BOOTINFO = "bootinfo"

var published struct {
	sync.Mutex
	bis map[uintptr]*BootInfo
}

// Publish makes bi addressable by At and returns its address.
func Publish(bi *BootInfo) uintptr {
	published.Lock()
	defer published.Unlock()
	if published.bis == nil {
		published.bis = make(map[uintptr]*BootInfo)
	}
	addr := uintptr(unsafe.Pointer(bi))
	published.bis[addr] = bi
	return addr
}

func At(addr uintptr) (*BootInfo, error) {
	published.Lock()
	defer published.Unlock()
	bi, ok := published.bis[addr]
	if !ok {
		return nil, serr.NewErr(serr.TErrEnvironmentMissing, fmt.Sprintf("no bootinfo at %#x", addr))
	}
	return bi, nil
}

func SetBootInfoEnv(addr uintptr) {
	os.Setenv(BOOTINFO, fmt.Sprintf("%#x", addr))
}

// ParseAddr parses a pointer as printed by %p.
func ParseAddr(s string) (uintptr, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, fmt.Errorf("%q: missing 0x prefix", s)
	}
	a, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return 0, err
	}
	if a == 0 {
		return 0, fmt.Errorf("%q: nil pointer", s)
	}
	return uintptr(a), nil
}

// Get returns the BootInfo named by the bootinfo environment
// variable. It must succeed before any capability operation.
func Get() (*BootInfo, error) {
	s, ok := os.LookupEnv(BOOTINFO)
	if !ok || s == "" {
		return nil, serr.NewErr(serr.TErrEnvironmentMissing, "missing bootinfo environment variable")
	}
	addr, err := ParseAddr(s)
	if err != nil {
		return nil, serr.NewErrWrap(serr.TErrEnvironmentMissing, fmt.Sprintf("bootinfo environment value %q was not valid", s), err)
	}
	bi, err := At(addr)
	if err != nil {
		return nil, err
	}
	db.DPrintf(db.BOOTENV, "bootinfo at %#x", addr)
	return bi, nil
}
