package ioctlnum

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// TestIORMatchesBLKGETSIZE64 checks the derivation against the kernel's
// well-known pre-computed constant for _IOR(0x12, 114, size_t).
func TestIORMatchesBLKGETSIZE64(t *testing.T) {
	got := IOR(0x12, 114, unsafe.Sizeof(uint64(0)))
	assert.EqualValues(t, 0x80081272, got)
}

// TestIOMatchesBLKSSZGET checks _IO(0x12, 104).
func TestIOMatchesBLKSSZGET(t *testing.T) {
	got := IO(0x12, 104)
	assert.EqualValues(t, 0x1268, got)
}

func TestIOWDiffersFromIOR(t *testing.T) {
	r := IOR(0x12, 1, 4)
	w := IOW(0x12, 1, 4)
	assert.NotEqual(t, r, w)
}
