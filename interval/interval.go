package interval

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"capboot/captypes"
)

// Tinterval is a half-open range of capability slots [Start, End).
type Tinterval struct {
	Start captypes.Tcptr
	End   captypes.Tcptr
}

func MkInterval(start, end captypes.Tcptr) Tinterval {
	return Tinterval{
		Start: start,
		End:   end,
	}
}

func (iv0 Tinterval) Eq(iv1 Tinterval) bool {
	return iv0.Start == iv1.Start && iv0.End == iv1.End
}

func (iv Tinterval) Size() uint64 {
	if iv.End <= iv.Start {
		return 0
	}
	return uint64(iv.End - iv.Start)
}

func (iv Tinterval) IsEmpty() bool {
	return iv.Size() == 0
}

func (iv Tinterval) Contains(c captypes.Tcptr) bool {
	return c >= iv.Start && c < iv.End
}

func (iv0 Tinterval) Overlaps(iv1 Tinterval) bool {
	if iv0.IsEmpty() || iv1.IsEmpty() {
		return false
	}
	return iv0.Start < iv1.End && iv1.Start < iv0.End
}

func (iv *Tinterval) Unmarshal(s string) error {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ')' {
		return fmt.Errorf("interval %q: want [start, end)", s)
	}
	idxs := strings.Split(s[1:len(s)-1], ",")
	if len(idxs) != 2 {
		return fmt.Errorf("interval %q: want [start, end)", s)
	}
	start, err := strconv.ParseUint(strings.TrimSpace(idxs[0]), 0, 64)
	if err != nil {
		return fmt.Errorf("interval %q: start: %v", s, err)
	}
	end, err := strconv.ParseUint(strings.TrimSpace(idxs[1]), 0, 64)
	if err != nil {
		return fmt.Errorf("interval %q: end: %v", s, err)
	}
	if end < start {
		return fmt.Errorf("interval %q: end before start", s)
	}
	iv.Start = captypes.Tcptr(start)
	iv.End = captypes.Tcptr(end)
	return nil
}

func (iv Tinterval) Marshal() string {
	return fmt.Sprintf("[%d, %d)", uint64(iv.Start), uint64(iv.End))
}

func (iv Tinterval) String() string {
	return iv.Marshal()
}

func (iv Tinterval) MarshalYAML() (interface{}, error) {
	return iv.Marshal(), nil
}

func (iv *Tinterval) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	return iv.Unmarshal(s)
}
