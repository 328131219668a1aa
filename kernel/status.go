package kernel

import (
	"fmt"
)

// Terror is a kernel invocation status.
type Terror uint32

const (
	NoError Terror = iota
	InvalidArgument
	InvalidCapability
	IllegalOperation
	RangeError
	AlignmentError
	FailedLookup
	TruncatedMessage
	DeleteFirst
	RevokeFirst
	NotEnoughMemory
)

var statusNames = [...]string{
	NoError:           "NoError",
	InvalidArgument:   "InvalidArgument",
	InvalidCapability: "InvalidCapability",
	IllegalOperation:  "IllegalOperation",
	RangeError:        "RangeError",
	AlignmentError:    "AlignmentError",
	FailedLookup:      "FailedLookup",
	TruncatedMessage:  "TruncatedMessage",
	DeleteFirst:       "DeleteFirst",
	RevokeFirst:       "RevokeFirst",
	NotEnoughMemory:   "NotEnoughMemory",
}

func (e Terror) Ok() bool {
	return e == NoError
}

func (e Terror) String() string {
	if int(e) < len(statusNames) {
		return statusNames[e]
	}
	return fmt.Sprintf("Terror(%d)", uint32(e))
}

func (e Terror) Error() string {
	return fmt.Sprintf("kernel: %v (%d)", e, uint32(e))
}
