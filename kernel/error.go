package kernel

// Error describes a kernel error. Kernel errors are pointers to this
// structure, most of them package level variables, since the Go allocator is
// not available during the early boot stages and code cannot rely on
// errors.New or fmt.Errorf. The page-fault handler and fat16's disk I/O
// error mapping build theirs at the point of failure instead.
type Error struct {
	// Module is the subsystem that generated the error (e.g. "pmm", "vmm",
	// "heap", "ata", "fat16").
	Module string

	// Message is a short human readable description of the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
