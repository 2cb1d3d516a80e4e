package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequestHeaderMatchesByteLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cmd    string
		header string
	}{
		{name: "empty", cmd: "", header: "0000"},
		{name: "host version", cmd: "host:version", header: "000C"},
		{name: "shell", cmd: "shell:pm list packages 2> /dev/null", header: "0023"},
		{name: "multibyte counts bytes", cmd: "shell:echo é", header: "000D"},
		{name: "upper case hex", cmd: strings.Repeat("a", 255), header: "00FF"},
		{name: "max length", cmd: strings.Repeat("x", MaxCommandLen), header: "FFFF"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := EncodeRequest(tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.header, string(req[:HeaderLen]))
			assert.Equal(t, tt.cmd, string(req[HeaderLen:]))

			n, err := DecodeLength(req[:HeaderLen])
			require.NoError(t, err)
			assert.Equal(t, len(tt.cmd), n)
			assert.Len(t, req[HeaderLen:], n)
		})
	}
}

func TestEncodeRequestRejectsOversizedCommand(t *testing.T) {
	t.Parallel()

	_, err := EncodeRequest(strings.Repeat("x", MaxCommandLen+1))
	assert.ErrorIs(t, err, ErrCommandTooLong)

	var buf bytes.Buffer
	err = WriteRequest(&buf, strings.Repeat("x", MaxCommandLen+1))
	assert.ErrorIs(t, err, ErrCommandTooLong)
	assert.Zero(t, buf.Len(), "nothing should be written")
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestWriteRequestReportsTransportErrors(t *testing.T) {
	t.Parallel()

	var transportErr *TransportError

	err := WriteRequest(shortWriter{}, "host:devices")
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, io.ErrShortWrite)

	err = WriteRequest(failingWriter{}, "host:devices")
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestWriteRequestSingleWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, "host:transport:emulator-5554"))
	assert.Equal(t, "001Chost:transport:emulator-5554", buf.String())
}

func TestReadStatus(t *testing.T) {
	t.Parallel()

	token, err := ReadStatus(strings.NewReader("OKAYtrailing"))
	require.NoError(t, err)
	assert.Equal(t, "OKAY", token)

	_, err = ReadStatus(strings.NewReader("OK"))
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadStatus(strings.NewReader(""))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadStatus(bytes.NewReader([]byte{0xff, 0xfe, 'O', 'K'}))
	assert.ErrorIs(t, err, ErrInvalidString)
}

func TestReadBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   []byte
		mode    BodyMode
		want    string
		wantErr error
	}{
		{name: "none reads nothing", input: []byte("0005hello"), mode: BodyNone, want: ""},
		{name: "length prefixed", input: []byte("0005hello"), mode: BodyLengthPrefixed, want: "hello"},
		{name: "length prefixed lower case hex", input: []byte("000aabcdefghij"), mode: BodyLengthPrefixed, want: "abcdefghij"},
		{name: "length prefixed zero", input: []byte("0000"), mode: BodyLengthPrefixed, want: ""},
		{name: "length prefixed leaves trailing bytes", input: []byte("0002hiextra"), mode: BodyLengthPrefixed, want: "hi"},
		{name: "length prefixed invalid hex", input: []byte("zz01a"), mode: BodyLengthPrefixed, wantErr: ErrInvalidHex},
		{name: "length prefixed short length", input: []byte("00"), mode: BodyLengthPrefixed, wantErr: io.ErrUnexpectedEOF},
		{name: "length prefixed short body", input: []byte("0010abc"), mode: BodyLengthPrefixed, wantErr: io.ErrUnexpectedEOF},
		{name: "length prefixed invalid utf8", input: []byte{'0', '0', '0', '2', 0xc3, 0x28}, mode: BodyLengthPrefixed, wantErr: ErrInvalidString},
		{name: "to eof", input: []byte("line one\nline two\n"), mode: BodyToEOF, want: "line one\nline two\n"},
		{name: "to eof empty", input: nil, mode: BodyToEOF, want: ""},
		{name: "to eof invalid utf8", input: []byte{'a', 0xff}, mode: BodyToEOF, wantErr: ErrInvalidString},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ReadBody(bytes.NewReader(tt.input), tt.mode)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "error %v should wrap %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestReadBodyToEOFTransportError(t *testing.T) {
	t.Parallel()

	_, err := ReadBody(brokenReader{}, BodyToEOF)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "read body", transportErr.Op)
}

func TestDecodeLengthRejectsSignsAndWrongWidth(t *testing.T) {
	t.Parallel()

	for _, field := range []string{"+001", "-001", "001", "00001", "0x10"} {
		_, err := DecodeLength([]byte(field))
		assert.ErrorIs(t, err, ErrInvalidHex, "field %q", field)
	}
}
