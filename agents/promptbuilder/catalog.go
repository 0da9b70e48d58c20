/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoTemplate is returned when neither a rule-specific nor a default
// template exists for a rule.
var ErrNoTemplate = errors.New("no prompt template for rule")

// DefaultKey names the fallback template.
const DefaultKey = "default"

// Placeholder names bound for every finding.
const (
	PlaceholderMessage  = "message"
	PlaceholderCode     = "code"
	PlaceholderRule     = "rule"
	PlaceholderPath     = "path"
	PlaceholderLine     = "line"
	PlaceholderSeverity = "severity"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// catalogFile is the on-disk YAML layout.
type catalogFile struct {
	System  string            `yaml:"system"`
	Default string            `yaml:"default"`
	Rules   map[string]string `yaml:"rules"`
}

// Catalog maps rule identifiers to fix prompt templates.
type Catalog struct {
	// System is the system prompt sent with every fix request.
	System string

	def   *Prompt
	rules map[string]*Prompt
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(builtinCatalog)
}

// LoadCatalogFile reads a catalog from a YAML file.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening prompt catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog reads a catalog from YAML.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading prompt catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing prompt catalog: %w", err)
	}

	c := &Catalog{System: strings.TrimSpace(cf.System), rules: make(map[string]*Prompt, len(cf.Rules))}
	if cf.Default != "" {
		p, err := Parse(cf.Default)
		if err != nil {
			return nil, fmt.Errorf("default template: %w", err)
		}
		c.def = p
	}
	for key, tmpl := range cf.Rules {
		p, err := Parse(tmpl)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", key, err)
		}
		c.rules[key] = p
	}
	return c, nil
}

// RuleKey maps a rule such as "java:S1192" to its RSPEC key "RSPEC-1192".
// Rules without an ":S<number>" suffix have no RSPEC key.
func RuleKey(rule string) (string, bool) {
	_, num, ok := strings.Cut(rule, ":S")
	if !ok {
		return "", false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return "", false
	}
	return "RSPEC-" + strconv.Itoa(n), true
}

// Resolve returns the template for a rule and the catalog key it came from.
// Lookup tries the exact rule, then its RSPEC key, then the default.
func (c *Catalog) Resolve(rule string) (*Prompt, string, error) {
	if p, ok := c.rules[rule]; ok {
		return p, rule, nil
	}
	if key, ok := RuleKey(rule); ok {
		if p, ok := c.rules[key]; ok {
			return p, key, nil
		}
	}
	if c.def != nil {
		return c.def, DefaultKey, nil
	}
	return nil, "", fmt.Errorf("%w %s", ErrNoTemplate, rule)
}
