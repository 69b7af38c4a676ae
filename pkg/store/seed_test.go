package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeedValidates(t *testing.T) {
	require.NoError(t, DefaultSeed().Validate())
}

func TestSeedValidateRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		seed SeedData
	}{
		{
			name: "empty category name",
			seed: SeedData{Categories: []SeedCategory{{Name: ""}}},
		},
		{
			name: "duplicate category",
			seed: SeedData{Categories: []SeedCategory{{Name: "A"}, {Name: "A"}}},
		},
		{
			name: "site with unknown category",
			seed: SeedData{
				Categories: []SeedCategory{{Name: "A"}},
				Sites:      []SeedSite{{Name: "x", URL: "https://x.example", Category: "B"}},
			},
		},
		{
			name: "site with bad url",
			seed: SeedData{Sites: []SeedSite{{Name: "x", URL: "not a url"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.seed.Validate())
		})
	}
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	content := `
categories:
  - name: Tools
    icon: "T"
    sort_order: 1
sites:
  - name: Example
    url: https://example.com
    category: Tools
    sort_order: 1
users:
  - username: admin
    email: admin@example.com
    password_hash: "$2a$12$x"
    role: admin
settings:
  - key: site_title
    value: Demo
    type: string
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	seed, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.NoError(t, seed.Validate())
	require.Len(t, seed.Categories, 1)
	require.Len(t, seed.Sites, 1)
	assert.Equal(t, "Tools", seed.Sites[0].Category)

	_, err = LoadSeedFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("categories: {not: a list}"), 0o644))
	_, err = LoadSeedFile(bad)
	assert.Error(t, err)
}
