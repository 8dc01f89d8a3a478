package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
projects:
  - id: p1
    title: Green Acres
    category: plots
    status: ongoing
    city: Pune
faq:
  - question: "  Do you offer home loans? "
    answer: We partner with major banks.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	seed, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, seed.Projects, 1)
	assert.Equal(t, "Green Acres", seed.Projects[0].Title)
	assert.Equal(t, "Pune", seed.Projects[0].City)
	require.Len(t, seed.FAQ, 1)
	assert.Equal(t, "We partner with major banks.", seed.FAQ[0].Answer)
}

func TestLoadSeedFile_Errors(t *testing.T) {
	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("projects:\n  - city: Pune\n"), 0o600))
	_, err = LoadSeedFile(path)
	assert.ErrorContains(t, err, "no title")
}
