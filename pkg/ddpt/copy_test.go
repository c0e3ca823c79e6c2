package ddpt

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// TestRunCopiesBytesExactly covers the byte-equality testable property
// of a plain fixed-count copy.
func TestRunCopiesBytesExactly(t *testing.T) {
	dir := t.TempDir()
	src := bytes.Repeat([]byte{0xAB}, 10*512)
	srcPath := writeTempFile(t, dir, "src", src)
	dstPath := filepath.Join(dir, "dst")

	o := NewOptions()
	o.InPath = srcPath
	o.OutPath = dstPath
	o.IBS, o.OBS = 512, 512
	o.BptI = 4
	o.DDCount = 10

	require.NoError(t, Run(o))

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Equal(t, src, got)
	assert.EqualValues(t, 10, o.InFull)
	assert.EqualValues(t, 10, o.OutFull)
	assert.Zero(t, o.InPartial)
	assert.Zero(t, o.OutPartial)
}

// TestRunCounterLawHoldsForPartialTail verifies records-in == records-out
// in block-count terms even when the source length isn't a multiple of
// bpt*ibs, i.e. the final iteration is short.
func TestRunCounterLawHoldsForPartialTail(t *testing.T) {
	dir := t.TempDir()
	src := bytes.Repeat([]byte{0x5A}, 10*512)
	srcPath := writeTempFile(t, dir, "src", src)
	dstPath := filepath.Join(dir, "dst")

	o := NewOptions()
	o.InPath = srcPath
	o.OutPath = dstPath
	o.IBS, o.OBS = 512, 512
	o.BptI = 4 // 10 blocks do not divide evenly into batches of 4
	o.DDCount = 10

	require.NoError(t, Run(o))
	assert.Equal(t, o.InFull+o.InPartial, o.OutFull+o.OutPartial)
	assert.EqualValues(t, 10, o.InFull+o.InPartial)
}

// TestRunRejectsMisalignedBlockSizes exercises the alignment
// precondition from the perspective of Run, not just Finalize directly.
func TestRunRejectsMisalignedBlockSizes(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeTempFile(t, dir, "src", make([]byte, 1024))
	dstPath := filepath.Join(dir, "dst")

	o := NewOptions()
	o.InPath = srcPath
	o.OutPath = dstPath
	o.IBS, o.OBS, o.BptI = 100, 512, 1
	o.DDCount = 1

	err := Run(o)
	require.Error(t, err)
	assert.Equal(t, SYNTAX, KindOf(err))
}

// TestRunResumeIdempotent is the resume idempotence property: re-running
// with oflag=resume against a fully-copied destination advances the
// cursors past the whole file and writes nothing further.
func TestRunResumeIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := bytes.Repeat([]byte{0x11}, 4*512)
	srcPath := writeTempFile(t, dir, "src", src)
	dstPath := filepath.Join(dir, "dst")

	first := NewOptions()
	first.InPath = srcPath
	first.OutPath = dstPath
	first.IBS, first.OBS = 512, 512
	first.BptI = 4
	first.DDCount = 4
	require.NoError(t, Run(first))

	second := NewOptions()
	second.InPath = srcPath
	second.OutPath = dstPath
	second.IBS, second.OBS = 512, 512
	second.BptI = 4
	second.OFlags.Resume = true
	require.NoError(t, Run(second))

	assert.Zero(t, second.OutFull+second.OutPartial, "resume must not rewrite already-copied blocks")
	assert.Zero(t, second.InFull+second.InPartial)

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

// TestRunNoCountRegOutputCopiesWholeInput covers the no-count REG->REG
// copy: a fresh regular OFILE starts at size zero and must not be
// treated as a capacity cap when DDCount is left unset.
func TestRunNoCountRegOutputCopiesWholeInput(t *testing.T) {
	dir := t.TempDir()
	src := make([]byte, 9216) // 18 blocks of 512, matches the walkthrough length
	copy(src[512:1024], bytes.Repeat([]byte{0x7E}, 512))
	srcPath := writeTempFile(t, dir, "src", src)
	dstPath := filepath.Join(dir, "dst")

	o := NewOptions()
	o.InPath = srcPath
	o.OutPath = dstPath
	o.IBS, o.OBS = 512, 512
	o.BptI = 1
	o.OFlags.Sparse = 1
	o.OFlags.Trim = false
	// o.DDCount left at its NewOptions() default (-1): no count= given.

	require.NoError(t, Run(o))

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Len(t, got, len(src))
	assert.Equal(t, src, got)
}

// TestRunSparseSkipsZeroRuns covers the sparse post-pass's length
// guarantee: a bare sparse=1 copy produces a file of the expected final
// length even though the middle run of zero blocks is skipped.
func TestRunSparseSkipsZeroRuns(t *testing.T) {
	dir := t.TempDir()
	src := make([]byte, 4096+512+4096)
	copy(src[4096:4096+512], bytes.Repeat([]byte("A"), 512))
	srcPath := writeTempFile(t, dir, "src", src)
	dstPath := filepath.Join(dir, "dst")

	o := NewOptions()
	o.InPath = srcPath
	o.OutPath = dstPath
	o.IBS, o.OBS = 512, 512
	o.BptI = 1
	o.DDCount = int64(len(src) / 512)
	o.OFlags.Sparse = 1

	require.NoError(t, Run(o))

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Equal(t, src, got)
	assert.Greater(t, o.OutSparse, int64(0))
}
