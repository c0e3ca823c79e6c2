package ddpt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsBasicTokens(t *testing.T) {
	o, err := ParseArgs([]string{"if=in.img", "of=out.img", "bs=4096", "count=10", "coe=1"})
	require.NoError(t, err)
	assert.Equal(t, "in.img", o.InPath)
	assert.Equal(t, "out.img", o.OutPath)
	assert.Equal(t, 4096, o.IBS)
	assert.Equal(t, 4096, o.OBS)
	assert.EqualValues(t, 10, o.DDCount)
	assert.True(t, o.IFlags.COE)
	assert.True(t, o.OFlags.COE)
}

func TestParseArgsUnknownKeyIsSyntaxError(t *testing.T) {
	_, err := ParseArgs([]string{"bogus=1"})
	require.Error(t, err)
	assert.Equal(t, SYNTAX, KindOf(err))
}

func TestParseArgsProtect(t *testing.T) {
	o, err := ParseArgs([]string{"protect=1,3,2,0"})
	require.NoError(t, err)
	assert.Equal(t, 1, o.RDProtect)
	assert.Equal(t, 3, o.WRProtect)
	assert.Equal(t, 2, o.PIExpIn)
	assert.Equal(t, 0, o.PIExpOut)
}

func TestParseArgsIbsObsIndependent(t *testing.T) {
	o, err := ParseArgs([]string{"ibs=512", "obs=2048"})
	require.NoError(t, err)
	assert.Equal(t, 512, o.IBS)
	assert.Equal(t, 2048, o.OBS)
}

// TestParseArgsConfOverride exercises the supplemented conf= key: the
// profile supplies a default that a literal CLI token overrides.
func TestParseArgsConfOverride(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "ddpt.conf")
	require.NoError(t, os.WriteFile(confPath, []byte("[defaults]\nbs = 1024\nretries = 5\n"), 0644))

	o, err := ParseArgs([]string{"conf=" + confPath, "bs=4096"})
	require.NoError(t, err)
	assert.Equal(t, 4096, o.IBS, "literal CLI token must win over the profile default")
	assert.Equal(t, 5, o.Retries, "profile default applies when the CLI doesn't override it")
}

func TestParseArgsConfSection(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "ddpt.conf")
	require.NoError(t, os.WriteFile(confPath, []byte("[tape]\nbs = 65536\n"), 0644))

	o, err := ParseArgs([]string{"conf=" + confPath + ":tape"})
	require.NoError(t, err)
	assert.Equal(t, 65536, o.IBS)
}
