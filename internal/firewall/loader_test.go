package firewall

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_TextFile(t *testing.T) {
	path := writeFile(t, "blocked_ips.txt", "# denied clients\r\n10.0.0.1\r\n\n192.168.1.0  # scanner\n::ffff:192.168.1.7\n")

	reg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, path, reg.Source())
	assert.True(t, reg.IsBlocked("10.0.0.1"))
	assert.True(t, reg.IsBlocked("192.168.1.0"))
	assert.True(t, reg.IsBlocked("192.168.1.7"), "mapped IPv6 form is stored canonically")
	assert.False(t, reg.IsBlocked("10.0.0.2"))
	assert.Equal(t, []string{"10.0.0.1", "192.168.1.0", "192.168.1.7"}, reg.Addresses())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "blocked.yaml", "blocked:\n  - 10.0.0.1\n  - 2001:db8::1\n")

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.IsBlocked("2001:db8::1"))
}

func TestLoad_EmptyPathDisablesBlocking(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
	assert.False(t, reg.IsBlocked("10.0.0.1"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_MalformedEntriesAllReported(t *testing.T) {
	path := writeFile(t, "blocked_ips.txt", "10.0.0.1\nnot-an-ip\n10.0.0.300\n10.0.0.2\n")

	reg, err := Load(path)
	require.Error(t, err)
	assert.Nil(t, reg, "no partially loaded registry")

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	errs := multierr.Errors(cfgErr.Err)
	require.Len(t, errs, 2)

	var entryErr *EntryError
	require.True(t, errors.As(errs[0], &entryErr))
	assert.Equal(t, 2, entryErr.Line)
	assert.Equal(t, "not-an-ip", entryErr.Entry)
	require.True(t, errors.As(errs[1], &entryErr))
	assert.Equal(t, 3, entryErr.Line)
}

func TestLoad_CorruptYAML(t *testing.T) {
	path := writeFile(t, "blocked.yml", "blocked: [10.0.0.1\n")

	_, err := Load(path)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "blocked.yml")
}

func TestLoad_YAMLWithoutBlockedList(t *testing.T) {
	cases := map[string]string{
		"misspelled key": "blockd:\n  - 10.0.0.1\n",
		"extra key":      "blocked:\n  - 10.0.0.1\nallowed:\n  - 10.0.0.2\n",
		"null list":      "blocked:\n",
		"empty document": "",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			reg, err := Load(writeFile(t, "blocked.yaml", content))
			assert.Nil(t, reg)
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}

	reg, err := Load(writeFile(t, "blocked.yaml", "blocked: []\n"))
	require.NoError(t, err, "an explicit empty list is allowed")
	assert.Equal(t, 0, reg.Len())
}

func TestParseText_Reader(t *testing.T) {
	reg, err := ParseText(strings.NewReader("10.0.0.1\n"), "inline")
	require.NoError(t, err)
	assert.True(t, reg.IsBlocked(" 10.0.0.1 "))
}

func TestRegistry_NilSafe(t *testing.T) {
	var reg *Registry
	assert.False(t, reg.IsBlocked("10.0.0.1"))
	assert.Equal(t, 0, reg.Len())
	assert.Nil(t, reg.Addresses())
}
