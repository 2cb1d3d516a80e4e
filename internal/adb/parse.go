package adb

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// noDevicesSentinel is the literal listing body meaning no devices are attached.
	noDevicesSentinel = "0000"

	// packagePrefix marks package-listing lines. Lines without it are skipped
	// rather than having their first eight bytes cut off.
	packagePrefix = "package:"
)

// ErrMalformedListing is returned when a device listing line is not serial<TAB>model.
var ErrMalformedListing = errors.New("adb: malformed device listing")

var propertyLinePattern = regexp.MustCompile(`^\[(.*?)\]: \[(.*?)\]\r?$`)

// DeviceRecord is one line of the device listing.
type DeviceRecord struct {
	Serial string
	Model  string
}

// ParseDeviceList decodes a host:devices body. The literal body "0000" and an
// empty body both mean no devices.
func ParseDeviceList(body string) ([]DeviceRecord, error) {
	if body == noDevicesSentinel {
		return []DeviceRecord{}, nil
	}

	records := []DeviceRecord{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		serial, model, ok := strings.Cut(line, "\t")
		if !ok || serial == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedListing, line)
		}
		records = append(records, DeviceRecord{Serial: serial, Model: model})
	}
	return records, nil
}

// ParseProperties extracts `[key]: [value]` lines. Other lines are skipped and
// the last occurrence of a key wins.
func ParseProperties(output string) map[string]string {
	properties := map[string]string{}
	for _, line := range strings.Split(output, "\n") {
		match := propertyLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		properties[match[1]] = match[2]
	}
	return properties
}

// ParsePackages strips the "package:" prefix from each non-empty line, keeping
// daemon order and duplicates. Lines without the prefix are skipped.
func ParsePackages(output string) []string {
	packages := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		name, ok := strings.CutPrefix(line, packagePrefix)
		if !ok {
			continue
		}
		packages = append(packages, name)
	}
	return packages
}
