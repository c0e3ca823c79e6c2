//go:build !linux

package ddpt

func isTapeDevice(path string) bool { return false }
