package scsipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUnknownProviderErrors(t *testing.T) {
	_, _, err := Open("nonexistent", DirIn, "/dev/sg0")
	assert.Error(t, err)
}

func TestOpenMemdiskRoundTripsReadWrite(t *testing.T) {
	p, h, err := Open("memdisk", DirOut, "disk0")
	require.NoError(t, err)

	buf := []byte("0123456789abcdef")
	status, err := p.Write(h, 0, buf, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)

	readBack := make([]byte, len(buf))
	n, status, err := p.Read(h, 0, readBack, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, 1, n)
	assert.Equal(t, buf, readBack)
}

func TestMemDiskReadCapacityReflectsSize(t *testing.T) {
	p := NewMemDiskProviderWithSize("disk1", 4096, 512)
	h, err := p.OpenIn("disk1")
	require.NoError(t, err)

	sectors, sectorSize, status, err := p.ReadCapacity(h, DirIn)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.EqualValues(t, 8, sectors)
	assert.Equal(t, 512, sectorSize)
}

func TestMemDiskFailNextReadsReportsConfiguredStatus(t *testing.T) {
	p := NewMemDiskProviderWithSize("disk2", 4096, 512)
	h, err := p.OpenIn("disk2")
	require.NoError(t, err)

	p.FailNextReads(1, StatusMediumHard)
	buf := make([]byte, 512)
	_, status, err := p.Read(h, 0, buf, 1, 0)
	assert.Error(t, err)
	assert.Equal(t, StatusMediumHard, status)

	// The failure budget is consumed: the next read succeeds.
	_, status, err = p.Read(h, 0, buf, 1, 0)
	assert.NoError(t, err)
	assert.Equal(t, StatusOK, status)
}

func TestMemDiskWriteSameZerosRange(t *testing.T) {
	p, h, err := Open("memdisk", DirOut, "disk3")
	require.NoError(t, err)

	buf := make([]byte, 512)
	for i := range buf {
		buf[i] = 0xFF
	}
	_, err = p.Write(h, 0, buf, 1, 0)
	require.NoError(t, err)

	status, err := p.WriteSame(h, 0, 512, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)

	readBack := make([]byte, 512)
	_, _, err = p.Read(h, 0, readBack, 1, 0)
	require.NoError(t, err)
	for _, b := range readBack {
		assert.EqualValues(t, 0, b)
	}
}
