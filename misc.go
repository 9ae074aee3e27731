package integro

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHex parses a hex string with or without a leading 0x prefix
func ParseHex(s string, bitSize int) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(trimmed, 16, bitSize)
}

// MakeParameterId formats an index/subindex pair as "0xINDEX:SUB"
func MakeParameterId(index uint16, subindex uint8) string {
	return fmt.Sprintf("0x%04X:%02X", index, subindex)
}

// BytesToHexString renders a byte slice as space separated "0xnn" tokens
func BytesToHexString(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "0x%02x", b)
	}
	return sb.String()
}

// Split a device text payload into lines, tolerating \r\n endings
// and dropping empty lines
func splitDeviceLines(data []byte) []string {
	lines := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
