package bootinfo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"capboot/captypes"
	"capboot/interval"
)

// Image describes the machine a loader boots: the root CNode layout
// and the untyped memory it hands over. Empty ranges are filled in by
// the loader.
type Image struct {
	CNodeBits    uint               `yaml:"cnodebits"`
	NodeID       captypes.Tnode     `yaml:"nodeid"`
	Nodes        uint32             `yaml:"nodes"`
	IPCBuffer    captypes.Tword     `yaml:"ipcbuffer"`
	Empty        interval.Tinterval `yaml:"empty"`
	UntypedStart captypes.Tcptr     `yaml:"untypedstart"`
	SchedControl captypes.Tcptr     `yaml:"schedcontrol"`
	Untypeds     []UntypedDesc      `yaml:"untypeds"`
}

func ParseImage(b []byte) (*Image, error) {
	img := &Image{}
	if err := yaml.Unmarshal(b, img); err != nil {
		return nil, err
	}
	return img, nil
}

func LoadImage(pn string) (*Image, error) {
	file, err := os.Open(pn)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img := &Image{}
	d := yaml.NewDecoder(file)
	if err := d.Decode(img); err != nil {
		return nil, fmt.Errorf("image %v: %v", pn, err)
	}
	return img, nil
}

func (img *Image) Marshal() ([]byte, error) {
	return yaml.Marshal(img)
}
