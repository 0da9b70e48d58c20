/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// segment is either literal text or a placeholder name.
type segment struct {
	text        string
	placeholder string
}

// tokenize splits a template into literal and placeholder segments in a
// single pass. Bound values are never re-scanned, so content containing
// "{{" cannot introduce new placeholders.
func tokenize(template string) ([]segment, error) {
	var segs []segment
	for len(template) > 0 {
		start := strings.Index(template, "{{")
		if start == -1 {
			segs = append(segs, segment{text: template})
			break
		}
		if start > 0 {
			segs = append(segs, segment{text: template[:start]})
		}

		end := strings.Index(template[start:], "}}")
		if end == -1 {
			return nil, errors.New("unclosed placeholder: missing '}}'")
		}
		end += start + 2

		name := strings.TrimSpace(template[start+2 : end-2])
		if !isValidIdentifier(name) {
			return nil, fmt.Errorf("invalid placeholder identifier %q", name)
		}
		segs = append(segs, segment{placeholder: name})
		template = template[end:]
	}
	return segs, nil
}

// isValidIdentifier checks if a string is a valid placeholder identifier.
// Valid identifiers start with a letter and contain only letters, digits, and underscores.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	runes := []rune(s)
	if !unicode.IsLetter(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
