package ddpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yiyiyouwo/ddpt/pkg/ddpt/scsipt"
)

// TestSparseCompareTrimFailureDoesNotAbort covers spec.md §4.6/§7: a
// failed WriteSame (trim/UNMAP) must count against trim_errs and let
// the copy carry on, not abort it.
func TestSparseCompareTrimFailureDoesNotAbort(t *testing.T) {
	prov, h, err := scsipt.Open("memdisk", scsipt.DirOut, "trimdisk")
	require.NoError(t, err)
	mdp, ok := prov.(interface {
		FailNextWriteSame(n int, status scsipt.Status)
	})
	require.True(t, ok, "memdisk provider must expose FailNextWriteSame")
	mdp.FailNextWriteSame(1, scsipt.StatusMediumHard)

	o := NewOptions()
	o.OBS, o.OBSPI = 512, 512
	o.Out.Type = PT
	o.Out.PTProvider = prov
	o.Out.PTHandle = h
	o.OFlags.Sparse = 1
	o.OFlags.Trim = true

	st := &iterState{ocbpt: 1}
	o.Buf = make([]byte, 512)
	o.ZeroBuf = make([]byte, 512)

	done, err := sparseCompare(o, st, false)
	require.NoError(t, err, "a trim failure must not propagate as a copy-aborting error")
	assert.True(t, done)
	assert.EqualValues(t, 1, o.TrimErrs)
	assert.EqualValues(t, 1, o.OutSparse)
}
