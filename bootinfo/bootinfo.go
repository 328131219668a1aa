// Package bootinfo holds the boot-information snapshot the loader
// hands the root task, and the reader that finds it at startup.
package bootinfo

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"capboot/captypes"
	"capboot/interval"
	"capboot/kernel"
)

// UntypedDesc describes one untyped capability; its capability is
// implied by its position in BootInfo.UntypedList.
type UntypedDesc struct {
	Paddr    captypes.Tword `yaml:"paddr"`
	SizeBits uint8          `yaml:"sizebits"`
	IsDevice bool           `yaml:"device"`
}

func (ud UntypedDesc) Bytes() uint64 {
	return uint64(1) << ud.SizeBits
}

func (ud UntypedDesc) String() string {
	kind := "ram"
	if ud.IsDevice {
		kind = "dev"
	}
	return fmt.Sprintf("{paddr %v size %v (%d bits) %v}", ud.Paddr, humanize.IBytes(ud.Bytes()), ud.SizeBits, kind)
}

// BootInfo is immutable once the loader has published it.
type BootInfo struct {
	NodeID                  captypes.Tnode
	NumNodes                uint32
	IPCBuffer               captypes.Tword
	InitThreadCNodeSizeBits uint
	Empty                   interval.Tinterval // free slots
	Untyped                 interval.Tinterval
	SchedControl            interval.Tinterval // one per node
	UntypedList             []UntypedDesc
}

// UntypedCap returns the capability for UntypedList[i].
func (bi *BootInfo) UntypedCap(i int) captypes.Tcptr {
	return bi.Untyped.Start + captypes.Tcptr(i)
}

func (bi *BootInfo) Validate() error {
	if bi.Untyped.Size() != uint64(len(bi.UntypedList)) {
		return fmt.Errorf("untyped range %v has %d descriptors", bi.Untyped, len(bi.UntypedList))
	}
	for i, ud := range bi.UntypedList {
		if ud.SizeBits < kernel.MinUntypedBits || ud.SizeBits > kernel.MaxUntypedBits {
			return fmt.Errorf("untyped %v %v: size outside [2^%d, 2^%d]", bi.UntypedCap(i), ud, kernel.MinUntypedBits, kernel.MaxUntypedBits)
		}
	}
	regions := []struct {
		name string
		iv   interval.Tinterval
	}{
		{"empty", bi.Empty},
		{"untyped", bi.Untyped},
		{"schedcontrol", bi.SchedControl},
	}
	init := interval.MkInterval(captypes.CapNull, captypes.NumInitialCaps)
	for i, r := range regions {
		if r.iv.Overlaps(init) {
			return fmt.Errorf("%v range %v overlaps initial caps", r.name, r.iv)
		}
		for _, r1 := range regions[i+1:] {
			if r.iv.Overlaps(r1.iv) {
				return fmt.Errorf("%v range %v overlaps %v range %v", r.name, r.iv, r1.name, r1.iv)
			}
		}
	}
	return nil
}

func (bi *BootInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "node %d of %d ipc buffer %v cnode %d bits\n", bi.NodeID, bi.NumNodes, bi.IPCBuffer, bi.InitThreadCNodeSizeBits)
	fmt.Fprintf(&sb, "empty %v (%d slots)\n", bi.Empty, bi.Empty.Size())
	fmt.Fprintf(&sb, "schedcontrol %v\n", bi.SchedControl)
	fmt.Fprintf(&sb, "untyped %v\n", bi.Untyped)
	var total uint64
	for i, ud := range bi.UntypedList {
		fmt.Fprintf(&sb, "  %v %v\n", bi.UntypedCap(i), ud)
		if !ud.IsDevice {
			total += ud.Bytes()
		}
	}
	fmt.Fprintf(&sb, "untyped ram %v", humanize.IBytes(total))
	return sb.String()
}
