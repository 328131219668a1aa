package debug

type Tselector string

// ALWAYS
const (
	ALWAYS Tselector = "ALWAYS"
	ERROR            = "ERROR"
	NEVER            = "NEVER"
)

// ERR
const (
	ERR Tselector = "_ERR"
)

// Tests
const (
	TEST  Tselector = "TEST"
	TEST1           = "TEST1"
	CRASH           = "CRASH"
)

// Boot
const (
	BOOT     Tselector = "BOOT"
	BOOT_ERR           = BOOT + ERR
	BOOTINFO           = "BOOTINFO"
	BOOTENV            = "BOOTENV"
)

// Allocation
const (
	UNTYPED     Tselector = "UNTYPED"
	CSLOT                 = "CSLOT"
	RETYPE                = "RETYPE"
	RETYPE_ERR            = RETYPE + ERR
	SCHEDCTX              = "SCHEDCTX"
	SCHEDCTX_ERR          = SCHEDCTX + ERR
)

// Threads
const (
	THREAD     Tselector = "THREAD"
	THREAD_ERR           = THREAD + ERR
)

// Kernel
const (
	SIMKERNEL     Tselector = "SIMKERNEL"
	SIMKERNEL_ERR           = SIMKERNEL + ERR
	LINUXSCHED              = "LINUXSCHED"
)

// Tracing
const (
	TRACING Tselector = "TRACING"
)
