package kernel

import (
	"fmt"
)

type Tobject uint32

const (
	UntypedObject Tobject = iota
	TCBObject
	EndpointObject
	NotificationObject
	CapTableObject
	SchedContextObject
	ReplyObject
	NumObjectTypes
)

// Object sizes for x86_64.
const (
	TCBBits             = 11
	EndpointBits        = 4
	NotificationBits    = 5
	SlotBits            = 5
	ReplyBits           = 5
	MinSchedContextBits = 7
	MinUntypedBits      = 4
	MaxUntypedBits      = 47
)

// Scheduling-context layout and limits.
const (
	CoreSchedContextBytes = 64
	RefillBytes           = 16
	MinBudgetUs           = 20
	MaxPeriodUs           = 60 * 60 * 1000 * 1000
)

func (t Tobject) String() string {
	switch t {
	case UntypedObject:
		return "Untyped"
	case TCBObject:
		return "TCB"
	case EndpointObject:
		return "Endpoint"
	case NotificationObject:
		return "Notification"
	case CapTableObject:
		return "CapTable"
	case SchedContextObject:
		return "SchedContext"
	case ReplyObject:
		return "Reply"
	default:
		return fmt.Sprintf("Tobject(%d)", uint32(t))
	}
}

// FixedSize reports whether objects of type t ignore the sizeBits
// argument of a retype.
func (t Tobject) FixedSize() bool {
	switch t {
	case TCBObject, EndpointObject, NotificationObject, ReplyObject:
		return true
	}
	return false
}

// SizeBits returns log2 of the bytes an object of type t occupies
// when retyped with sizeBits.
func (t Tobject) SizeBits(sizeBits uint) (uint, bool) {
	switch t {
	case TCBObject:
		return TCBBits, true
	case EndpointObject:
		return EndpointBits, true
	case NotificationObject:
		return NotificationBits, true
	case ReplyObject:
		return ReplyBits, true
	case CapTableObject:
		return sizeBits + SlotBits, true
	case SchedContextObject:
		if sizeBits < MinSchedContextBits {
			return 0, false
		}
		return sizeBits, true
	case UntypedObject:
		if sizeBits < MinUntypedBits || sizeBits > MaxUntypedBits {
			return 0, false
		}
		return sizeBits, true
	}
	return 0, false
}

// MaxExtraRefills is the number of refills beyond the first a
// scheduling context of 2^sizeBits bytes can hold.
func MaxExtraRefills(sizeBits uint) uint64 {
	if sizeBits < MinSchedContextBits {
		return 0
	}
	n := ((uint64(1) << sizeBits) - CoreSchedContextBytes) / RefillBytes
	if n == 0 {
		return 0
	}
	return n - 1
}
