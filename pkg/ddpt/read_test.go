package ddpt

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReadFifoSyncPadZeroFillsShortTail covers conv=sync: a short final
// read is padded with zeros up to a full ibs and counted as a full
// block rather than a partial one.
func TestReadFifoSyncPadZeroFillsShortTail(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	payload := []byte{0x11, 0x22, 0x33} // shorter than ibs=512
	go func() {
		_, _ = w.Write(payload)
		_ = w.Close()
	}()

	o := NewOptions()
	o.IBS, o.OBS = 512, 512
	o.BptI = 1
	o.SyncPad = true
	o.In.File = r
	o.Buf = make([]byte, 512)

	st := &iterState{icbpt: 1}
	require.NoError(t, readFifo(o, st))

	assert.True(t, st.leaveAfterWrite)
	assert.Equal(t, 1, st.icbpt, "padded short tail must count as a full block")
	assert.Zero(t, st.partialWriteBytes)
	assert.Equal(t, 512, st.bytesRead)
	assert.Equal(t, payload, o.Buf[:len(payload)])
	for _, b := range o.Buf[len(payload):] {
		assert.EqualValues(t, 0, b)
	}
}
