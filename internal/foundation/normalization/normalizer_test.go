package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level string

const (
	levelLow  level = "low"
	levelHigh level = "high"
)

func newLevels() *Normalizer[level] {
	return NewNormalizer(map[string]level{
		"low":  levelLow,
		"high": levelHigh,
		"HI":   levelHigh,
	}, levelLow)
}

func TestNormalize(t *testing.T) {
	n := newLevels()
	tests := []struct {
		name  string
		input string
		want  level
	}{
		{"exact match", "high", levelHigh},
		{"case and spaces", "  HIGH ", levelHigh},
		{"alias", "hi", levelHigh},
		{"unknown falls back", "medium", levelLow},
		{"empty falls back", "", levelLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeWithError(t *testing.T) {
	n := newLevels()

	got, err := n.NormalizeWithError("Hi")
	require.NoError(t, err)
	assert.Equal(t, levelHigh, got)

	got, err = n.NormalizeWithError("  ")
	require.NoError(t, err)
	assert.Equal(t, levelLow, got)

	_, err = n.NormalizeWithError("medium")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[hi high low]")
}

func TestValidKeysIsACopy(t *testing.T) {
	n := newLevels()
	keys := n.ValidKeys()
	keys[0] = "changed"
	assert.Equal(t, []string{"hi", "high", "low"}, n.ValidKeys())
}
