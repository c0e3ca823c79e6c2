package ddpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIFlagUnknownToken(t *testing.T) {
	_, err := ParseIFlag("coe,bogus")
	assert.Error(t, err)
	assert.Equal(t, SYNTAX, KindOf(err))
}

func TestParseOFlagTrimAndUnmapAreSynonyms(t *testing.T) {
	trim, err := ParseOFlag("trim")
	assert.NoError(t, err)
	unmap, err := ParseOFlag("unmap")
	assert.NoError(t, err)
	assert.Equal(t, trim, unmap)
}

func TestParseOFlagSparseCounts(t *testing.T) {
	f, err := ParseOFlag("sparse")
	assert.NoError(t, err)
	assert.Equal(t, 1, f.Sparse)
}

func TestApplyConvTruncSparingIsSyntaxError(t *testing.T) {
	o := NewOptions()
	c, err := ParseConv("trunc,sparing")
	assert.NoError(t, err)
	err = ApplyConv(o, c)
	assert.Error(t, err)
	assert.Equal(t, SYNTAX, KindOf(err))
}

func TestApplyConvTruncResumeIsSilentlyDropped(t *testing.T) {
	o := NewOptions()
	o.OFlags.Resume = true
	c, err := ParseConv("trunc")
	assert.NoError(t, err)
	assert.NoError(t, ApplyConv(o, c))
	assert.False(t, o.OFlags.Trunc, "trunc must be dropped, not errored, when combined with resume")
}

func TestApplyConvNoErrorMapsToCOE(t *testing.T) {
	o := NewOptions()
	c, err := ParseConv("noerror")
	assert.NoError(t, err)
	assert.NoError(t, ApplyConv(o, c))
	assert.True(t, o.IFlags.COE)
}

// TestApplyConvSyncIsDistinctFromOSyncFlags verifies conv=sync only sets
// the short-block zero-pad behaviour, not the iflag=sync/oflag=sync
// O_SYNC descriptor bit they are unrelated to.
func TestApplyConvSyncIsDistinctFromOSyncFlags(t *testing.T) {
	o := NewOptions()
	c, err := ParseConv("sync")
	assert.NoError(t, err)
	assert.NoError(t, ApplyConv(o, c))
	assert.True(t, o.SyncPad)
	assert.False(t, o.IFlags.Sync)
	assert.False(t, o.OFlags.Sync)
}
