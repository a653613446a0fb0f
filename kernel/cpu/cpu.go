// Package cpu exposes the small set of processor primitives that the rest of
// the kernel needs: port-mapped I/O for the ATA driver, and the control
// registers and instructions the paging code uses to install a page
// directory, read the faulting address and halt the processor.
//
// On real i386 hardware every function in this file is a thin wrapper around
// a single IN/OUT/MOV-CRx/HLT instruction; the instruction stream itself is
// supplied by the boot-stage trampoline (an external collaborator - see the
// package doc in kmain). What is implemented here is the hosted substitute
// used when the kernel (or, more commonly, just this package) is compiled
// and tested on the development host: a simulated I/O space and a simulated
// set of control registers. Production wiring replaces the bus package level
// variable with one that talks to real hardware; nothing above this package
// needs to know which one is active.
package cpu

var (
	// cpuidFn is the CPUID implementation IsIntel calls.
	cpuidFn = ID

	// haltFn backs Halt; tests override it to avoid stopping the test binary.
	haltFn = hostedHalt
)

// Halt stops instruction execution. On real hardware this never returns.
func Halt() { haltFn() }

// SetHaltFunc overrides the function Halt calls. It exists so that tests
// exercising fatal error paths (a full system halt) can observe that a halt
// was requested without actually blocking the test binary forever.
func SetHaltFunc(fn func()) { haltFn = fn }

func hostedHalt() {
	// A hosted build cannot actually stop the processor, so this models the
	// "the kernel never comes back" contract by blocking the caller forever.
	select {}
}

// ID returns information about the CPU and its features. It is implemented
// as a CPUID instruction with EAX=leaf and returns the values in EAX, EBX,
// ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32) {
	// CPUID is not available in the hosted build; callers only use it for
	// informational vendor strings which are not required by this kernel's
	// memory/storage core.
	return 0, 0, 0, 0
}

// IsIntel returns true if the code is running on an Intel processor.
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}
