package captypes

//
// Basic types shared by the bootstrap packages. Capability pointers
// index the root task's single-level CNode, so a slot index and the
// capability stored in it are the same number.
//

import (
	"fmt"
)

type Tword uint64
type Tcptr Tword
type Tnode uint32
type Tprio uint8

const (
	WordBits  = 64
	WordBytes = WordBits / 8
)

// Initial capabilities the loader places in the root task's CNode.
const (
	CapNull             Tcptr = 0
	CapInitThreadTCB    Tcptr = 1
	CapInitThreadCNode  Tcptr = 2
	CapInitThreadVSpace Tcptr = 3
	NumInitialCaps            = 4
)

const (
	MinPrio Tprio = 0
	MaxPrio Tprio = 255
)

// Nil data word for the cspace/vspace root guard arguments.
const NilData Tword = 0

func (c Tcptr) String() string {
	if c == CapNull {
		return "null"
	}
	return fmt.Sprintf("cap %d", uint64(c))
}

func (c Tcptr) IsNull() bool {
	return c == CapNull
}

func (w Tword) String() string {
	return fmt.Sprintf("%#x", uint64(w))
}

func (n Tnode) String() string {
	return fmt.Sprintf("node %d", uint32(n))
}
