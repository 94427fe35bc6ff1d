package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTakesFirstColumnAndSkipsHeader(t *testing.T) {
	set, err := Parse(strings.NewReader("id,name\nocd-division/country:ar,Argentina"))
	require.NoError(t, err)
	assert.Equal(t, NewIdentifierSet("ocd-division/country:ar"), set)
	assert.False(t, set.Contains("id"))
}

func TestParseCollapsesDuplicatesAndBlankRows(t *testing.T) {
	input := strings.Join([]string{
		"id,name,sameAs",
		"ocd-division/country:us,United States,",
		"ocd-division/country:us/state:ak,Alaska",
		"ocd-division/country:us,United States,",
		",orphan",
		"",
		"ocd-division/country:us/state:al,\"Alabama, \"\"the\"\" state\"",
	}, "\n")

	set, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ocd-division/country:us",
		"ocd-division/country:us/state:ak",
		"ocd-division/country:us/state:al",
	}, set.Sorted())
}

func TestParseHeaderOnlyYieldsEmptySet(t *testing.T) {
	set, err := Parse(strings.NewReader("id,name\n"))
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestParseStripsByteOrderMark(t *testing.T) {
	set, err := Parse(strings.NewReader("\ufeffid,name\nocd-division/country:ar,Argentina\n"))
	require.NoError(t, err)
	assert.True(t, set.Contains("ocd-division/country:ar"))
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for name, input := range map[string]string{
		"empty":        "",
		"blank header": ",name\nocd-division/country:ar,Argentina",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestLoadMissingFileIsMalformed(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, ErrMalformed)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\nocd-division/country:ar,Argentina\n"), 0o600))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}
