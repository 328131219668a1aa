// hello2 boots a simulated kernel, bootstraps a second thread on it
// from untyped memory and lets both threads greet.
package main

import (
	"context"
	"flag"
	"fmt"

	"capboot/boot"
	"capboot/bootinfo"
	"capboot/config"
	db "capboot/debug"
	"capboot/interval"
	"capboot/simkernel"
	"capboot/thread"
	"capboot/util/crash"
	"capboot/util/tracing"
)

const THREAD_NAME = "hello-2: thread_2"

var image = flag.String("image", "", "YAML boot image; empty boots the built-in one")
var tracehost = flag.String("tracehost", "", "Jaeger agent host")

// defaultImage is a small machine with room for a few threads.
func defaultImage() *bootinfo.Image {
	return &bootinfo.Image{
		CNodeBits: simkernel.DEFAULT_CNODE_BITS,
		Nodes:     1,
		Empty:     interval.MkInterval(16, 1<<simkernel.DEFAULT_CNODE_BITS),
		Untypeds: []bootinfo.UntypedDesc{
			{Paddr: 0xfee00000, SizeBits: 12, IsDevice: true},
			{Paddr: 0x00100000, SizeBits: 20},
			{Paddr: 0x00200000, SizeBits: 12},
		},
	}
}

// load plays the loader: it boots the kernel and hands the boot info
// to the root task through the environment.
func load(bc *config.BootConfig) *simkernel.Kernel {
	img := defaultImage()
	if bc.Image != "" {
		i, err := bootinfo.LoadImage(bc.Image)
		if err != nil {
			db.DFatalf("LoadImage %v err %v", bc.Image, err)
		}
		img = i
	}
	k, bi, err := simkernel.Boot(img)
	if err != nil {
		db.DFatalf("Boot err %v", err)
	}
	em, err := crash.ParseEvents(bc.Fail)
	if err != nil {
		db.DFatalf("ParseEvents %q err %v", bc.Fail, err)
	}
	k.SetFaults(em)
	bootinfo.SetBootInfoEnv(bootinfo.Publish(bi))
	return k
}

func thread2() {
	fmt.Println("thread_2: hallo wereld")
	thread.Halt()
}

func main() {
	flag.Parse()
	bc, err := config.GetBootConfig()
	if err != nil {
		db.DFatalf("GetBootConfig err %v", err)
	}
	if *image != "" {
		bc.Image = *image
	}
	if *tracehost != "" {
		bc.TraceHost = *tracehost
	}
	if bc.Debug != "" {
		db.SetLabels(bc.Debug)
	}
	db.SetName(bc.Name)
	db.DPrintf(db.BOOT, "BootConfig %v", bc.Marshal())

	k := load(bc)
	k.LoadText(thread2)

	bi, err := bootinfo.Get()
	if err != nil {
		db.DFatalf("Get bootinfo err %v", err)
	}
	db.DPrintf(db.BOOTINFO, "%v", bi)

	ctx := boot.NewContext(bi, k, nil)
	ctx.Tracer = tracing.Init(tracing.SVCNAME, bc.TraceHost)
	defer ctx.Tracer.Flush()

	l, err := ctx.Spawn(context.TODO(), THREAD_NAME, thread2)
	if err != nil {
		// DFatalf exits without running deferred calls.
		ctx.Tracer.Flush()
		db.DFatalf("Spawn %v err %v", THREAD_NAME, err)
	}
	fmt.Println("main: hello world")

	st, err := k.Wait(context.Background(), l.TCB.Cap)
	if err != nil {
		db.DFatalf("Wait %v err %v", l.TCB.Cap, err)
	}
	if st != simkernel.Halted {
		ti, _ := k.TCB(l.TCB.Cap)
		db.DFatalf("%v stopped %v: %v", THREAD_NAME, st, ti.Fault)
	}
	db.DPrintf(db.BOOT, "%v %v after %d invocations", THREAD_NAME, st, k.NInvocations())
}
