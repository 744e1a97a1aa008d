package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		prefix string
		want   string
	}{
		{"no prefix", "a/b.txt", "", "a/b.txt"},
		{"no prefix with leading delimiter", "/a/b.txt", "", "a/b.txt"},
		{"blank prefix", "a/b.txt", "   ", "a/b.txt"},
		{"simple prefix", "test-key", "folder", "folder/test-key"},
		{"prefix with trailing delimiter", "test-key", "folder/", "folder/test-key"},
		{"key with leading delimiter", "/test-key", "folder", "folder/test-key"},
		{"both delimiters", "//test-key", "folder//", "folder/test-key"},
		{"nested prefix", "x/y", "a/b", "a/b/x/y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.key, tt.prefix, "/"))
		})
	}
}

func TestNormalizeKeyCustomDelimiter(t *testing.T) {
	assert.Equal(t, "root|leaf", NormalizeKey("leaf", "root|", "|"))
	assert.Equal(t, "root/leaf", NormalizeKey("leaf", "root", ""))
}

func TestKeySpaceRoundTrip(t *testing.T) {
	keys := []string{"a", "a/b", "a/b/c.txt", "file with spaces.txt", "x//y"}
	prefixes := []string{"", "folder", "folder/", "deep/er/root"}

	for _, p := range prefixes {
		ks := NewKeySpace(p, "/")
		for _, k := range keys {
			effective, err := ks.Resolve(k)
			require.NoError(t, err)
			assert.Equal(t, k, ks.Strip(effective), "prefix=%q key=%q", p, k)
		}
	}
}

func TestKeySpaceLeadingDelimiterIsCanonicalized(t *testing.T) {
	for _, p := range []string{"", "folder", "deep/er/root"} {
		ks := NewKeySpace(p, "/")
		for _, k := range []string{"/x", "//x", "/a/b.txt"} {
			canonical := strings.TrimLeft(k, "/")
			withDelim, err := ks.Resolve(k)
			require.NoError(t, err)
			plain, err := ks.Resolve(canonical)
			require.NoError(t, err)

			assert.Equal(t, plain, withDelim, "prefix=%q key=%q", p, k)
			assert.Equal(t, canonical, ks.Strip(withDelim), "prefix=%q key=%q", p, k)
		}
	}
}

func TestKeySpaceResolveRejectsBlankKeys(t *testing.T) {
	ks := NewKeySpace("folder", "/")
	for _, k := range []string{"", " ", "\t\n", "/", "// "} {
		_, err := ks.Resolve(k)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestKeySpaceSearchPrefix(t *testing.T) {
	assert.Equal(t, "", NewKeySpace("", "/").SearchPrefix(""))
	assert.Equal(t, "", NewKeySpace("", "/").SearchPrefix("  "))
	assert.Equal(t, "bar/", NewKeySpace("", "/").SearchPrefix("bar"))
	assert.Equal(t, "bar/", NewKeySpace("", "/").SearchPrefix("bar/"))
	assert.Equal(t, "folder/", NewKeySpace("folder", "/").SearchPrefix(""))
	assert.Equal(t, "folder/bar/", NewKeySpace("/folder/", "/").SearchPrefix("bar"))
}

func TestKeySpaceStripLeavesForeignKeys(t *testing.T) {
	ks := NewKeySpace("folder", "/")
	assert.Equal(t, "other/x", ks.Strip("other/x"))
	assert.Equal(t, "", ks.Strip("folder"))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("key", "a"))
	err := ValidateKey("destination key", " ")
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "destination key")
}
