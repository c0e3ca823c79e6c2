//go:build linux

package ddpt

import "strings"

// isTapeDevice recognises the conventional Linux st/nst tape device
// naming (/dev/st0, /dev/nst0, /dev/st0a, ...). There is no portable
// stat-based way to distinguish a tape from any other character device,
// so this is name-based like the rest of the pack's device-classifying
// helpers.
func isTapeDevice(path string) bool {
	if !strings.HasPrefix(path, "/dev/") {
		return false
	}
	base := path[len("/dev/"):]
	return strings.HasPrefix(base, "st") || strings.HasPrefix(base, "nst")
}
