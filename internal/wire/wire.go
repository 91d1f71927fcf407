// Package wire implements the request/reply framing shared by the
// request server and the subscription listener: a 4-byte big-endian
// length followed by a UTF-8 payload of that length.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrame bounds a single payload. Requests and replies are short
// command lines and listings; anything larger indicates a broken or
// hostile peer.
const MaxFrame = 1 << 20

const headerLen = 4

// AppendFrame appends the framed payload to dst and returns the
// extended slice.
func AppendFrame(dst []byte, payload string) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// Decode extracts one complete frame from the front of buf. ok is
// false while the frame is still partial; rest is the unconsumed
// remainder after a complete frame.
func Decode(buf []byte) (payload string, rest []byte, ok bool, err error) {
	if len(buf) < headerLen {
		return "", buf, false, nil
	}
	n := binary.BigEndian.Uint32(buf)
	if n > MaxFrame {
		return "", buf, false, fmt.Errorf("frame length %d exceeds limit", n)
	}
	if uint32(len(buf)-headerLen) < n {
		return "", buf, false, nil
	}
	end := headerLen + int(n)
	return string(buf[headerLen:end]), buf[end:], true, nil
}

// WriteFrame writes one framed payload to a blocking stream.
func WriteFrame(w io.Writer, payload string) error {
	if len(payload) > MaxFrame {
		return fmt.Errorf("frame length %d exceeds limit", len(payload))
	}
	_, err := w.Write(AppendFrame(make([]byte, 0, headerLen+len(payload)), payload))
	return err
}

// ReadFrame reads one complete framed payload from a blocking stream.
func ReadFrame(r io.Reader) (string, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrame {
		return "", fmt.Errorf("frame length %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
