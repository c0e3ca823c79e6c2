package errblk

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecordsBlocksAndRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errblk.txt")
	l, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, l.LogBlock(0x10))
	require.NoError(t, l.LogRange(0x20, 0x24))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "0x10\n"))
	assert.True(t, strings.Contains(content, "0x20-0x24\n"))
	assert.True(t, strings.HasPrefix(content, "# start:"))
	assert.True(t, strings.Contains(content, "# stop:"))
}

func TestOpenAppendsToExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errblk.txt")
	l1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l1.LogBlock(1))
	require.NoError(t, l1.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l2.LogBlock(2))
	require.NoError(t, l2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "# start:"))
}
