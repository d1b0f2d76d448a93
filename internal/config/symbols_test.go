package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSymbols(t *testing.T) {
	symbols := DefaultSymbols()

	assert.Len(t, symbols, 216)
	assert.Equal(t, "ABB", symbols[0])
	assert.Contains(t, symbols, "M&M")
	assert.Contains(t, symbols, "BAJAJ-AUTO")
	assert.Equal(t, "NIFTY50", symbols[len(symbols)-1])
}

func TestLoadSymbols_EmptyPathUsesDefault(t *testing.T) {
	symbols, err := LoadSymbols("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSymbols(), symbols)
}

func TestLoadSymbols_NormalizesAndDedupes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols:\n  - infy\n  - \" TCS \"\n  - INFY\n  - \"\"\n"), 0o600))

	symbols, err := LoadSymbols(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"INFY", "TCS"}, symbols)
}

func TestLoadSymbols_EmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols: []\n"), 0o600))

	_, err := LoadSymbols(path)
	assert.Error(t, err)
}

func TestLoadSymbols_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols: {infy"), 0o600))

	_, err := LoadSymbols(path)
	assert.Error(t, err)
}
