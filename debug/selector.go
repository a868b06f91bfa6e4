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

// Process lifecycle
const (
	PROCESS     Tselector = "PROCESS"
	PROCESS_ERR           = PROCESS + ERR
	WAITER                = "WAITER"
	CPU                   = "CPU"
)

// Native execution
const (
	THREAD     Tselector = "THREAD"
	THREAD_ERR           = THREAD + ERR
	PTRACE               = "PTRACE"
	SHIM                 = "SHIM"
	SECCOMP              = "SECCOMP"
)

// Simulation core
const (
	SCHED   Tselector = "SCHED"
	WORKER            = "WORKER"
	HOST              = "HOST"
	TRACKER           = "TRACKER"
)

// Descriptors
const (
	DESC  Tselector = "DESC"
	TIMER           = "TIMER"
)

// Workloads
const (
	LOADGEN Tselector = "LOADGEN"
)

// Tests
const (
	TEST Tselector = "TEST"
)
