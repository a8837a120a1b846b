package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p         Platform
		name      string
		delim     string
		layouts   int
		fallback  bool
		firstRaw  string
		firstDest string
	}{
		{WGS, "WGS", "\t", 1, false, "sampleid", "sample_id"},
		{WES, "WES", "\t", 0, true, "sampleid", "sample_id"},
		{LRS, "LRS", ",", 2, false, "instrument", "sequencer_id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := tc.p.Config()
			assert.Equal(t, tc.name, cfg.Name)
			assert.Equal(t, tc.name, tc.p.String())
			assert.Equal(t, tc.delim, cfg.Delimiter)
			assert.Len(t, cfg.DateLayouts, tc.layouts)
			assert.Equal(t, tc.fallback, cfg.FilenameDateFallback)
			require.NotEmpty(t, cfg.Aliases)
			assert.Equal(t, Alias{tc.firstRaw, tc.firstDest}, cfg.Aliases[0])
		})
	}
}

func TestInvalidPlatform(t *testing.T) {
	t.Parallel()

	var p Platform
	assert.False(t, p.Valid())
	assert.Equal(t, "Platform(0)", p.String())
	assert.Panics(t, func() { _ = p.Config() })
}

func TestParse(t *testing.T) {
	t.Parallel()

	p, err := Parse(" lrs ")
	require.NoError(t, err)
	assert.Equal(t, LRS, p)

	_, err = Parse("nanopore")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nanopore")
}

func TestParseList(t *testing.T) {
	t.Parallel()

	got, err := ParseList("wes, WGS,,wes")
	require.NoError(t, err)
	assert.Equal(t, []Platform{WES, WGS}, got)

	_, err = ParseList("WGS,foo")
	require.Error(t, err)
}
