package kfmt

import (
	"bytes"
	"io"
	"testing"
)

func TestPrintf(t *testing.T) {
	defer func() { outputSink = nil }()

	// mute vet warnings about non-constant formatting strings
	printfn := Printf

	specs := []struct {
		fn        func()
		expOutput string
	}{
		{
			func() { printfn("starting kernel") },
			"starting kernel",
		},
		{
			func() { printfn("%s arg", "STRING") },
			"STRING arg",
		},
		{
			func() { printfn("%s arg", []byte("BYTE SLICE")) },
			"BYTE SLICE arg",
		},
		{
			func() { printfn("'%4s' padded", "AB") },
			"'  AB' padded",
		},
		{
			func() { printfn("'%4s' longer than padding", "ABCDE") },
			"'ABCDE' longer than padding",
		},
		{
			func() { printfn("uint arg: %d", uint8(10)) },
			"uint arg: 10",
		},
		{
			func() { printfn("uint arg: 0x%x", uint32(0xbadf00d)) },
			"uint arg: 0xbadf00d",
		},
		{
			func() { printfn("uint arg with padding: '%10d'", uint64(123)) },
			"uint arg with padding: '       123'",
		},
		{
			func() { printfn("uint arg with padding: '0x%10x'", uint64(0xbadf00d)) },
			"uint arg with padding: '0x000badf00d'",
		},
		{
			func() { printfn("uintptr 0x%x", uintptr(0xb8000)) },
			"uintptr 0xb8000",
		},
		{
			func() { printfn("int arg: %d", int8(-10)) },
			"int arg: -10",
		},
		{
			func() { printfn("int arg: %x", int32(-0xbadf00d)) },
			"int arg: -badf00d",
		},
		{
			func() { printfn("int arg with padding: '%10d'", int64(-12345678)) },
			"int arg with padding: ' -12345678'",
		},
		{
			func() { printfn("int arg with padding: '%10d'", int64(-1234567890)) },
			"int arg with padding: '-1234567890'",
		},
		{
			func() { printfn("int arg longer than padding: '%5x'", int(-0xbadf00d)) },
			"int arg longer than padding: '-badf00d'",
		},
		{
			// mirrors fault.go's page-fault report
			func() {
				printfn("page fault: %s on %s access to 0x%x from %s mode (eip=0x%x)\n",
					"page not present", "write", uintptr(0x1000), "supervisor", uint32(0x10020))
			},
			"page fault: page not present on write access to 0x1000 from supervisor mode (eip=0x10020)\n",
		},
		{
			// mirrors heap.Dump's per-block line
			func() { printfn("#%d 0x%x size=%d %s\n", 2, uintptr(0x200000), uint32(128), "USED") },
			"#2 0x200000 size=128 USED\n",
		},
		{
			func() { printfn("%%%s%d", "foo", 123) },
			`%foo123`,
		},
		{
			func() { printfn("more args", "foo", "bar") },
			`more args%!(EXTRA)%!(EXTRA)`,
		},
		{
			func() { printfn("missing args %s") },
			`missing args (MISSING)`,
		},
		{
			func() { printfn("bad verb %q") },
			`bad verb %!(NOVERB)`,
		},
		{
			func() { printfn("not int %d", "foo") },
			`not int %!(WRONGTYPE)`,
		},
		{
			func() { printfn("not string %s", 123) },
			`not string %!(WRONGTYPE)`,
		},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()

		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected to get\n%q\ngot:\n%q", specIndex, spec.expOutput, got)
		}
	}
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer

	exp := "FAT16 volume mounted"
	Fprintf(&buf, exp)

	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}
}

func TestSetOutputSinkFlushesEarlyBuffer(t *testing.T) {
	defer func() { outputSink = nil }()
	outputSink = nil
	earlyPrintBuffer = ringBuffer{}

	Printf("no ATA drive present; filesystem not mounted (status %d)\n", 1)

	var buf bytes.Buffer
	SetOutputSink(&buf)

	exp := "no ATA drive present; filesystem not mounted (status 1)\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected early output to flush to the new sink:\n%q\ngot:\n%q", exp, got)
	}

	buf.Reset()
	Printf("FAT16 mount failed: %s\n", "no FAT16 signature")
	if got, exp := buf.String(), "FAT16 mount failed: no FAT16 signature\n"; got != exp {
		t.Fatalf("expected subsequent Printf calls to go straight to the sink:\n%q\ngot:\n%q", exp, got)
	}
}

func TestGetOutputSink(t *testing.T) {
	defer func() { outputSink = nil }()

	if GetOutputSink() != nil {
		t.Fatal("expected a nil sink before SetOutputSink is called")
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)
	if GetOutputSink() != io.Writer(&buf) {
		t.Fatal("expected GetOutputSink to return the sink installed by SetOutputSink")
	}
}
