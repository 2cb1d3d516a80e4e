package adb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []DeviceRecord
	}{
		{name: "sentinel means no devices", body: "0000", want: []DeviceRecord{}},
		{name: "empty body means no devices", body: "", want: []DeviceRecord{}},
		{
			name: "two devices in input order",
			body: "emulator-5554\tsdk_gphone64\nR58M123ABC\tSM-G973F\n",
			want: []DeviceRecord{
				{Serial: "emulator-5554", Model: "sdk_gphone64"},
				{Serial: "R58M123ABC", Model: "SM-G973F"},
			},
		},
		{
			name: "blank lines and carriage returns ignored",
			body: "\nserial-1\tdevice\r\n\n",
			want: []DeviceRecord{{Serial: "serial-1", Model: "device"}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseDeviceList(tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDeviceListRejectsLinesWithoutTab(t *testing.T) {
	t.Parallel()

	_, err := ParseDeviceList("serial-only\n")
	assert.ErrorIs(t, err, ErrMalformedListing)

	_, err = ParseDeviceList("\tmodel-without-serial\n")
	assert.ErrorIs(t, err, ErrMalformedListing)
}

func TestParseProperties(t *testing.T) {
	t.Parallel()

	output := "" +
		"[ro.build.version]: [14]\n" +
		"* daemon banner line *\n" +
		"[ro.product.model]: [Pixel 8]\r\n" +
		"[empty.value]: []\n" +
		"[dup]: [first]\n" +
		"[dup]: [second]\n" +
		"garbage [x]: [y]\n" +
		"[missing.space]:[v]\n"

	props := ParseProperties(output)
	assert.Equal(t, map[string]string{
		"ro.build.version": "14",
		"ro.product.model": "Pixel 8",
		"empty.value":      "",
		"dup":              "second",
	}, props)
}

func TestParsePropertiesEmptyOutput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ParseProperties(""))
}

func TestParsePackages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "order preserved",
			output: "package:com.example.app\npackage:com.other\n",
			want:   []string{"com.example.app", "com.other"},
		},
		{
			name:   "duplicates preserved",
			output: "package:a\npackage:b\npackage:a\n",
			want:   []string{"a", "b", "a"},
		},
		{
			name:   "carriage returns and blanks dropped",
			output: "package:com.crlf\r\n\r\n\npackage:com.lf",
			want:   []string{"com.crlf", "com.lf"},
		},
		{
			name:   "non package lines skipped",
			output: "WARNING: linker noise\npackage:com.kept\n",
			want:   []string{"com.kept"},
		},
		{
			name:   "short unprefixed lines skipped",
			output: "pkg\nPackage:com.upper\npackage:com.kept\n",
			want:   []string{"com.kept"},
		},
		{
			name:   "empty",
			output: "",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParsePackages(tt.output))
		})
	}
}
