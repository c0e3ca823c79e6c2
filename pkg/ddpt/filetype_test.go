package ddpt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRegular(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	assert.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	typ, err := Classify(path, false)
	assert.NoError(t, err)
	assert.True(t, typ.Has(REG))
	assert.False(t, typ.Has(PT))
}

func TestClassifyNullPath(t *testing.T) {
	typ, err := Classify(".", false)
	assert.NoError(t, err)
	assert.Equal(t, NULLTYPE, typ)
}

func TestClassifyForcePTOnRegularIsNotPromoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	assert.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	typ, err := Classify(path, true)
	assert.NoError(t, err)
	assert.False(t, typ.Has(PT), "forcePT only promotes BLOCK/OTHER, never REG")
}

func TestFileTypeString(t *testing.T) {
	assert.Equal(t, "NONE", FileType(0).String())
	assert.Equal(t, "REG", REG.String())
	assert.Equal(t, "BLOCK|PT", (BLOCK | PT).String())
}
