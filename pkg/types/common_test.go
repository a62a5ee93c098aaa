package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		input Hash
		want  bool
	}{
		{
			name:  "Valid Hash (64 chars)",
			input: Hash(strings.Repeat("a", 64)),
			want:  true,
		},
		{
			name:  "Too Short",
			input: Hash("abc"),
			want:  false,
		},
		{
			name:  "Empty",
			input: Hash(""),
			want:  false,
		},
		{
			name:  "Too Long",
			input: Hash(strings.Repeat("a", 65)),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.input.IsValid())
		})
	}
}

func TestHash_String(t *testing.T) {
	s := "aabbcc"
	h := Hash(s)
	assert.Equal(t, s, h.String())
	assert.Equal(t, s, h.Short(), "短于 8 位时原样返回")
	assert.False(t, h.IsZero())

	var zero Hash
	assert.True(t, zero.IsZero())

	long := Hash(strings.Repeat("ab", 32))
	assert.Equal(t, "abababab", long.Short())
}

func TestParseIDs(t *testing.T) {
	pkg, err := ParsePackageID("241526")
	require.NoError(t, err)
	assert.Equal(t, PackageID(241526), pkg)
	assert.Equal(t, "241526", pkg.String())

	_, err = ParsePackageID("-1")
	assert.Error(t, err)

	_, err = ParsePackageID("99999999999") // 超出 uint32
	assert.Error(t, err)

	v, err := ParseVersionID("7")
	require.NoError(t, err)
	assert.Equal(t, VersionID(7), v)
	assert.Equal(t, "7", v.String())

	assert.Equal(t, "3", ContentID(3).String())
}
