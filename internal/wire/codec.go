package wire

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

const (
	// MaxCommandLen is the largest byte length a 4-hex-digit header can carry.
	MaxCommandLen = 0xFFFF
	// HeaderLen is the size of every hex length field and status token.
	HeaderLen = 4
)

// EncodeRequest returns the framed request for cmd. Length is counted in bytes.
func EncodeRequest(cmd string) ([]byte, error) {
	if len(cmd) > MaxCommandLen {
		return nil, ErrCommandTooLong
	}
	buf := make([]byte, 0, HeaderLen+len(cmd))
	buf = fmt.Appendf(buf, "%04X", len(cmd))
	buf = append(buf, cmd...)
	return buf, nil
}

// WriteRequest encodes cmd and sends it in a single write.
func WriteRequest(w io.Writer, cmd string) error {
	req, err := EncodeRequest(cmd)
	if err != nil {
		return err
	}
	n, err := w.Write(req)
	if err != nil {
		return &TransportError{Op: "write request", Err: err}
	}
	if n != len(req) {
		return &TransportError{Op: "write request", Err: io.ErrShortWrite}
	}
	return nil
}

// DecodeLength parses a 4-byte hex length field.
func DecodeLength(field []byte) (int, error) {
	if len(field) != HeaderLen {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHex, field)
	}
	n, err := strconv.ParseUint(string(field), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHex, field)
	}
	return int(n), nil
}

// ReadStatus reads the 4-byte status token.
func ReadStatus(r io.Reader) (string, error) {
	token, err := readExact(r, HeaderLen, "read status")
	if err != nil {
		return "", err
	}
	return decodeString(token)
}

// ReadBody consumes the reply body according to mode.
func ReadBody(r io.Reader, mode BodyMode) (string, error) {
	switch mode {
	case BodyNone:
		return "", nil
	case BodyToEOF:
		data, err := io.ReadAll(r)
		if err != nil {
			return "", &TransportError{Op: "read body", Err: err}
		}
		return decodeString(data)
	case BodyLengthPrefixed:
		field, err := readExact(r, HeaderLen, "read body length")
		if err != nil {
			return "", err
		}
		n, err := DecodeLength(field)
		if err != nil {
			return "", err
		}
		data, err := readExact(r, n, "read body")
		if err != nil {
			return "", err
		}
		return decodeString(data)
	default:
		return "", fmt.Errorf("wire: unsupported body mode %s", mode)
	}
}

func readExact(r io.Reader, n int, op string) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &TransportError{Op: op, Err: err}
	}
	return buf, nil
}

func decodeString(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrInvalidString
	}
	return string(b), nil
}
