package thread

import (
	"reflect"
	"runtime"

	"capboot/captypes"
)

// Body is the code a launched thread runs. It takes no arguments and
// never returns: it does its work and then calls Halt.
type Body func()

// EntryPoint is the address of b's code.
func EntryPoint(b Body) captypes.Tword {
	return captypes.Tword(reflect.ValueOf(b).Pointer())
}

// Halt stops the calling thread for good. Deferred calls run; nothing
// else does.
func Halt() {
	runtime.Goexit()
}
