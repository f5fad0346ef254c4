package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
	}{
		{"sample.csv", Ref{Name: "sample.csv", Alias: LatestAlias}},
		{"sample.csv:latest", Ref{Name: "sample.csv", Alias: LatestAlias}},
		{"sample.csv:v3", Ref{Name: "sample.csv", Alias: "v3"}},
		{"bundle:v0/data.csv", Ref{Name: "bundle", Alias: "v0", File: "data.csv"}},
		{" bundle/data.csv ", Ref{Name: "bundle", Alias: LatestAlias, File: "data.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRef_Invalid(t *testing.T) {
	for _, in := range []string{"", ":v1", "name:prod", "name:v", "name:v01", "name:v-1", "a/b/c", "name/", ".."} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRef(in)
			assert.ErrorIs(t, err, ErrInvalidRef)
		})
	}
}

func TestRef_StringRoundTrip(t *testing.T) {
	ref, err := ParseRef("bundle:v12/data.csv")
	require.NoError(t, err)
	assert.Equal(t, "bundle:v12/data.csv", ref.String())

	n, ok := ref.Version()
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	assert.False(t, ref.IsLatest())
}
