package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveAttributes(t *testing.T) {
	vars := map[string]any{
		"order": map[string]any{"id": "o-1", "total": 42},
		"user":  "ann",
	}
	out := ResolveAttributes(map[string]string{
		"url":     "https://shop/{$.order.id}/{$.user}",
		"plain":   "no tokens",
		"missing": "x{$.nope}y",
		"brace":   "{notpath}",
	}, vars)
	require.Equal(t, "https://shop/o-1/ann", out["url"])
	require.Equal(t, "no tokens", out["plain"])
	require.Equal(t, "xy", out["missing"])
	require.Equal(t, "{notpath}", out["brace"])
}

func TestLookup(t *testing.T) {
	v, err := Lookup(map[string]any{"a": map[string]any{"b": "c"}}, "$.a.b")
	require.NoError(t, err)
	require.Equal(t, "c", v)
}
