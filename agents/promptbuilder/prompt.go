/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Prompt is a parsed template with {{placeholder}} slots. Prompts are
// immutable; Bind returns a new instance.
type Prompt struct {
	segments []segment
	values   map[string]string
}

// Parse parses a template and collects its placeholders.
func Parse(template string) (*Prompt, error) {
	segs, err := tokenize(template)
	if err != nil {
		return nil, err
	}
	return &Prompt{segments: segs, values: map[string]string{}}, nil
}

// Placeholders returns the sorted, de-duplicated placeholder names.
func (p *Prompt) Placeholders() []string {
	var names []string
	for _, s := range p.segments {
		if s.placeholder != "" && !slices.Contains(names, s.placeholder) {
			names = append(names, s.placeholder)
		}
	}
	slices.Sort(names)
	return names
}

// Has reports whether the template references the named placeholder.
func (p *Prompt) Has(name string) bool {
	return slices.ContainsFunc(p.segments, func(s segment) bool { return s.placeholder == name })
}

// Bind binds a value to a placeholder. Binding a name the template does not
// reference, or binding the same name twice, is an error.
func (p *Prompt) Bind(name, value string) (*Prompt, error) {
	if !p.Has(name) {
		return nil, fmt.Errorf("placeholder %q not found in template", name)
	}
	if _, bound := p.values[name]; bound {
		return nil, fmt.Errorf("placeholder %q already bound", name)
	}
	np := &Prompt{segments: p.segments, values: maps.Clone(p.values)}
	np.values[name] = value
	return np, nil
}

// Fill binds every value whose placeholder appears in the template, ignoring
// the rest, and builds the result.
func (p *Prompt) Fill(values map[string]string) (string, error) {
	np := p
	for _, name := range p.Placeholders() {
		v, ok := values[name]
		if !ok {
			continue
		}
		var err error
		if np, err = np.Bind(name, v); err != nil {
			return "", err
		}
	}
	return np.Build()
}

// Build renders the prompt, failing if any placeholder is unbound.
func (p *Prompt) Build() (string, error) {
	var b strings.Builder
	for _, s := range p.segments {
		if s.placeholder == "" {
			b.WriteString(s.text)
			continue
		}
		v, ok := p.values[s.placeholder]
		if !ok {
			return "", fmt.Errorf("placeholder %q is unbound", s.placeholder)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}
