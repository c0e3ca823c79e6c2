package ddpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalizeDefaultsBptIFromIBS(t *testing.T) {
	o := NewOptions()
	o.IBS, o.OBS = 512, 512
	assert.NoError(t, o.Finalize())
	assert.Equal(t, DefaultBptI(512), o.BptI)
}

func TestFinalizeRejectsMisalignedBlockSizes(t *testing.T) {
	o := NewOptions()
	o.IBS, o.OBS, o.BptI = 520, 512, 1
	err := o.Finalize()
	assert.Error(t, err)
	assert.Equal(t, SYNTAX, KindOf(err))
}

func TestFinalizeAcceptsAlignedBlockSizes(t *testing.T) {
	o := NewOptions()
	o.IBS, o.OBS, o.BptI = 512, 2048, 4
	assert.NoError(t, o.Finalize())
}

func TestFinalizeAppliesProtectionExtraBytes(t *testing.T) {
	o := NewOptions()
	o.IBS, o.OBS, o.BptI = 512, 512, 1
	o.RDProtect = 1
	o.PIExpIn = 0
	assert.NoError(t, o.Finalize())
	assert.Equal(t, 520, o.IBSPI)
}

func TestAllocateBuffersSizesMatchBptI(t *testing.T) {
	o := NewOptions()
	o.IBS, o.OBS, o.BptI = 512, 512, 8
	assert.NoError(t, o.Finalize())
	o.AllocateBuffers()
	assert.Len(t, o.Buf, 512*8)
	assert.Len(t, o.ZeroBuf, 512*8)
	assert.Nil(t, o.SpareBuf, "sparing buffer only allocated when oflag=sparing")
}

func TestAllocateBuffersAllocatesSpareBufferForSparing(t *testing.T) {
	o := NewOptions()
	o.IBS, o.OBS, o.BptI = 512, 512, 4
	o.OFlags.Sparing = true
	assert.NoError(t, o.Finalize())
	o.AllocateBuffers()
	assert.Len(t, o.SpareBuf, 512*4)
}
