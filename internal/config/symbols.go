package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed symbols.yaml
var defaultSymbolsYAML []byte

type symbolsFile struct {
	Symbols []string `yaml:"symbols"`
}

// DefaultSymbols returns the embedded symbol universe.
func DefaultSymbols() []string {
	symbols, err := parseSymbols(defaultSymbolsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded symbols.yaml: %v", err))
	}
	return symbols
}

// LoadSymbols reads a YAML symbol list from path. An empty path returns the
// embedded universe.
func LoadSymbols(path string) ([]string, error) {
	if path == "" {
		return DefaultSymbols(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}

	symbols, err := parseSymbols(data)
	if err != nil {
		return nil, fmt.Errorf("symbols file %s: %w", path, err)
	}
	return symbols, nil
}

// parseSymbols decodes and normalizes a symbol list: upper-cased, trimmed,
// de-duplicated, order preserved.
func parseSymbols(data []byte) ([]string, error) {
	var f symbolsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse symbols YAML: %w", err)
	}

	seen := make(map[string]bool, len(f.Symbols))
	symbols := make([]string, 0, len(f.Symbols))
	for _, s := range f.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols listed")
	}
	return symbols, nil
}
