package main

import "github.com/chriscruz06/MiniOS/kernel/kmain"

// main is the only Go symbol visible to the rt0 boot trampoline (an
// external collaborator, see kernel/kmain's package doc). It exists so the
// compiler cannot treat kmain.Kmain as dead code.
//
// main is not expected to return. If it does, the trampoline halts the CPU.
func main() {
	kmain.Kmain()
}
