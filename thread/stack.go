package thread

import (
	"fmt"
	"unsafe"

	"capboot/captypes"
	"capboot/serr"
)

const (
	StackWords = 512

	// The ABI wants the stack pointer 16-byte aligned at entry.
	StackAlignment = 2 * captypes.WordBytes
)

// Stack is the fixed-size stack of a launched thread. The
// bootstrapping thread owns it until Launch hands it to the new thread;
// after that it must not touch it.
type Stack struct {
	mem   *[StackWords]uint64
	owner captypes.Tcptr
}

func NewStack() *Stack {
	return &Stack{mem: new([StackWords]uint64)}
}

func (s *Stack) Base() uintptr {
	return uintptr(unsafe.Pointer(s.mem))
}

func (s *Stack) Size() uintptr {
	return unsafe.Sizeof(*s.mem)
}

// Top is the address one past the stack's last word; stacks grow
// down from it.
func (s *Stack) Top() captypes.Tword {
	return captypes.Tword(s.Base() + s.Size())
}

func (s *Stack) HandedOff() bool {
	return !s.owner.IsNull()
}

// Owner is the thread the stack was handed to, if any.
func (s *Stack) Owner() captypes.Tcptr {
	return s.owner
}

func (s *Stack) handoff(tcb captypes.Tcptr) {
	s.owner = tcb
}

func (s *Stack) String() string {
	return fmt.Sprintf("{stack [%#x, %v) owner %v}", s.Base(), s.Top(), s.owner)
}

// CheckStackTop verifies top meets StackAlignment.
func CheckStackTop(top captypes.Tword) error {
	if top%StackAlignment != 0 {
		return serr.NewErr(serr.TErrAlignment, fmt.Sprintf("stack top %v isn't aligned to a %dB boundary", top, StackAlignment))
	}
	return nil
}
