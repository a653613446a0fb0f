package cpu

// Bus abstracts the processor's port-mapped I/O space. PIO drivers such as
// the ATA driver talk to hardware exclusively through this interface so that
// they can be exercised against a simulated controller in hosted tests.
type Bus interface {
	InB(port uint16) uint8
	OutB(port uint16, val uint8)
	InW(port uint16) uint16
	OutW(port uint16, val uint16)
}

// ActiveBus is the port-I/O bus used by drivers. Production wiring replaces
// it with a Bus backed by real IN/OUT instructions; hosted tests replace it
// with a fake that models a specific device.
var ActiveBus Bus = &hostedBus{}

// hostedBus is a minimal port space used when no real hardware (and no test
// fake) has been installed. Reads return zero, writes are discarded; this
// keeps the kernel linkable in isolation without requiring every caller to
// install a bus first.
type hostedBus struct{}

func (*hostedBus) InB(uint16) uint8 { return 0 }
func (*hostedBus) OutB(uint16, uint8) {}
func (*hostedBus) InW(uint16) uint16 { return 0 }
func (*hostedBus) OutW(uint16, uint16) {}

// PortReadByte reads a uint8 value from the requested port on the active bus.
func PortReadByte(port uint16) uint8 { return ActiveBus.InB(port) }

// PortWriteByte writes a uint8 value to the requested port on the active bus.
func PortWriteByte(port uint16, val uint8) { ActiveBus.OutB(port, val) }

// PortReadWord reads a uint16 value from the requested port on the active bus.
func PortReadWord(port uint16) uint16 { return ActiveBus.InW(port) }

// PortWriteWord writes a uint16 value to the requested port on the active bus.
func PortWriteWord(port uint16, val uint16) { ActiveBus.OutW(port, val) }
