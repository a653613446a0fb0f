package kfmt

import (
	"io"
	"unsafe"
)

// maxBufSize bounds the scratch buffer used to render an integer plus its
// padding. No caller in this kernel ever pads past a 32-bit hex value plus a
// sign, so this is generous headroom rather than a tight fit.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")

	numFmtBuf = []byte("012345678901234567890123456789012")

	// oneByte holds a single character on its way to doWrite; reusing it
	// avoids an allocation per byte written.
	oneByte = []byte(" ")

	// earlyPrintBuffer captures Printf output produced before InitTerminal
	// attaches a real sink.
	earlyPrintBuffer ringBuffer

	// outputSink is where Printf sends formatted output. A nil sink routes
	// to earlyPrintBuffer instead.
	outputSink io.Writer
)

// SetOutputSink directs future Printf calls to w and drains anything
// earlyPrintBuffer accumulated before w was attached.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the writer Printf currently targets, or nil if
// output is still going to earlyPrintBuffer.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf is a Printf implementation safe to call before the Go runtime's
// allocator is available: every code path below this function is
// allocation-free. It supports the verbs this kernel actually needs to
// render its diagnostics:
//
//	%s  the uninterpreted bytes of a string or []byte
//	%d  a signed or unsigned integer, base 10
//	%x  a signed or unsigned integer, base 16 (lower-case a-f)
//
// An optional decimal width may precede the verb (e.g. %4x); strings and
// base-10 integers are left-padded with spaces, base-16 integers with
// zeroes. %p is deliberately unsupported: formatting a pointer requires
// importing reflect, and reflect's type-assertion path allocates.
//
// Output goes to outputSink if one has been installed via SetOutputSink,
// otherwise it is buffered in earlyPrintBuffer.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf is Printf with an explicit destination.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		ch                           byte
		argIndex                     int
		blockStart, blockEnd, padLen int
		fmtLen                       = len(format)
	)

	for blockEnd < fmtLen {
		ch = format[blockEnd]
		if ch != '%' {
			blockEnd++
			continue
		}

		if blockStart < blockEnd {
			writeRange(w, format, blockStart, blockEnd)
		}

		padLen = 0
		blockEnd++
	parseVerb:
		for ; blockEnd < fmtLen; blockEnd++ {
			ch = format[blockEnd]
			switch {
			case ch == '%':
				oneByte[0] = '%'
				doWrite(w, oneByte)
				break parseVerb
			case ch >= '0' && ch <= '9':
				padLen = (padLen * 10) + int(ch-'0')
				continue
			case ch == 'd' || ch == 'x' || ch == 's':
				if argIndex >= len(args) {
					doWrite(w, errMissingArg)
					break parseVerb
				}

				switch ch {
				case 'd':
					fmtInt(w, args[argIndex], 10, padLen)
				case 'x':
					fmtInt(w, args[argIndex], 16, padLen)
				case 's':
					fmtString(w, args[argIndex], padLen)
				}

				argIndex++
				break parseVerb
			}

			doWrite(w, errNoVerb)
		}
		blockStart, blockEnd = blockEnd+1, blockEnd+1
	}

	if blockStart != blockEnd {
		writeRange(w, format, blockStart, blockEnd)
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

// writeRange writes format[from:to] one byte at a time; slicing a string
// into a []byte for a single doWrite call would allocate.
func writeRange(w io.Writer, format string, from, to int) {
	for i := from; i < to; i++ {
		oneByte[0] = format[i]
		doWrite(w, oneByte)
	}
}

// fmtString writes v, which must be a string or []byte, left-padded with
// spaces to padLen.
func fmtString(w io.Writer, v interface{}, padLen int) {
	switch castedVal := v.(type) {
	case string:
		fmtRepeat(w, ' ', padLen-len(castedVal))
		for i := 0; i < len(castedVal); i++ {
			oneByte[0] = castedVal[i]
			doWrite(w, oneByte)
		}
	case []byte:
		fmtRepeat(w, ' ', padLen-len(castedVal))
		doWrite(w, castedVal)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtRepeat writes count copies of ch.
func fmtRepeat(w io.Writer, ch byte, count int) {
	oneByte[0] = ch
	for i := 0; i < count; i++ {
		doWrite(w, oneByte)
	}
}

// fmtInt writes v, which must be one of the built-in integer types, in the
// given base (10 or 16; no other base is handled), left-padded to padLen.
func fmtInt(w io.Writer, v interface{}, base, padLen int) {
	var (
		sval             int64
		uval             uint64
		divider          uint64
		padCh            byte
		left, right, end int
	)

	if padLen >= maxBufSize {
		padLen = maxBufSize - 1
	}

	switch base {
	case 10:
		divider = 10
		padCh = ' '
	case 16:
		divider = 16
		padCh = '0'
	}

	switch tv := v.(type) {
	case uint8:
		uval = uint64(tv)
	case uint16:
		uval = uint64(tv)
	case uint32:
		uval = uint64(tv)
	case uint64:
		uval = tv
	case uintptr:
		uval = uint64(tv)
	case int8:
		sval = int64(tv)
	case int16:
		sval = int64(tv)
	case int32:
		sval = int64(tv)
	case int64:
		sval = tv
	case int:
		sval = int64(tv)
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if sval < 0 {
		uval = uint64(-sval)
	} else if sval > 0 {
		uval = uint64(sval)
	}

	for right < maxBufSize {
		remainder := uval % divider
		if remainder < 10 {
			numFmtBuf[right] = byte(remainder) + '0'
		} else {
			numFmtBuf[right] = byte(remainder-10) + 'a'
		}

		right++

		uval /= divider
		if uval == 0 {
			break
		}
	}

	for ; right-left < padLen; right++ {
		numFmtBuf[right] = padCh
	}

	// A negative value steals the rightmost pad character for its sign, or
	// grows the buffer by one if there was no padding to steal.
	if sval < 0 {
		for end = right - 1; numFmtBuf[end] == ' '; end-- {
		}

		if end == right-1 {
			right++
		}

		numFmtBuf[end+1] = '-'
	}

	end = right
	for right = right - 1; left < right; left, right = left+1, right-1 {
		numFmtBuf[left], numFmtBuf[right] = numFmtBuf[right], numFmtBuf[left]
	}

	doWrite(w, numFmtBuf[0:end])
}

// doWrite hides p from escape analysis. Without this, the compiler can't
// prove p doesn't escape through the not-yet-known outputSink and flags it
// as escaping, which routes the call through runtime.convT2E and allocates
// - fatal if Printf runs before the allocator is up.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyPrintBuffer.Write(p)
	}
}

// noEscape is runtime.noescape, copied locally since the runtime does not
// export it.
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
