// Package wire tests cover framing, partial assembly, and limits.
package wire

import (
	"bytes"
	"testing"
)

// TestDecodeAssemblesIncrementally feeds a frame byte by byte.
func TestDecodeAssemblesIncrementally(t *testing.T) {
	frame := AppendFrame(nil, "login alice pw")
	for i := 0; i < len(frame); i++ {
		payload, _, ok, err := Decode(frame[:i])
		if err != nil {
			t.Fatalf("Decode(%d bytes): %v", i, err)
		}
		if ok {
			t.Fatalf("Decode(%d bytes) returned %q before the frame completed", i, payload)
		}
	}
	payload, rest, ok, err := Decode(frame)
	if err != nil || !ok {
		t.Fatalf("Decode: ok=%v err=%v", ok, err)
	}
	if payload != "login alice pw" {
		t.Fatalf("payload = %q", payload)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %v", rest)
	}
}

// TestDecodeLeavesTrailingBytes keeps the remainder for the next frame.
func TestDecodeLeavesTrailingBytes(t *testing.T) {
	buf := AppendFrame(nil, "first")
	buf = AppendFrame(buf, "second")
	payload, rest, ok, err := Decode(buf)
	if err != nil || !ok || payload != "first" {
		t.Fatalf("Decode = %q, ok=%v, err=%v", payload, ok, err)
	}
	payload, rest, ok, err = Decode(rest)
	if err != nil || !ok || payload != "second" || len(rest) != 0 {
		t.Fatalf("second Decode = %q, rest=%d, ok=%v, err=%v", payload, len(rest), ok, err)
	}
}

// TestDecodeRejectsOversizedFrame protects against hostile lengths.
func TestDecodeRejectsOversizedFrame(t *testing.T) {
	if _, _, _, err := Decode([]byte{0xff, 0xff, 0xff, 0xff}); err == nil {
		t.Fatalf("expected oversized length to error")
	}
}

// TestReadWriteFrame round-trips over a stream.
func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, "hello worth"); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got != "hello worth" {
		t.Fatalf("payload = %q", got)
	}
}
