//go:build !linux

package device

// systemMemory returns total system memory in bytes
func systemMemory() uint64 {
	return defaultSystemMemory
}
