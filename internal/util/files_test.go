package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAtomicCreatesParents(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "a", "b", "out.json")
	require.NoError(t, WriteJSONAtomic(jsonPath, map[string]int{"pages": 3}))
	b, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.JSONEq(t, `{"pages":3}`, string(b))

	txtPath := filepath.Join(dir, "summary.txt")
	require.NoError(t, WriteTextAtomic(txtPath, "TL;DR\n"))
	b, err = os.ReadFile(txtPath)
	require.NoError(t, err)
	require.Equal(t, "TL;DR\n", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotRegexp(t, `^tmp-`, e.Name())
	}
}

func TestWriteJSONAtomicLeavesNoTempOnError(t *testing.T) {
	dir := t.TempDir()
	err := WriteJSONAtomic(filepath.Join(dir, "bad.json"), map[string]any{"f": func() {}})
	require.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
