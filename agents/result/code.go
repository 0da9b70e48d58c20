/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"errors"
	"strings"
)

// ErrNoCode is returned when a response holds no usable replacement code.
var ErrNoCode = errors.New("no code found in response")

const fence = "```"

// proseLeadIns are lower-cased prefixes that mark a line as conversational
// text rather than source code.
var proseLeadIns = []string{
	"here",
	"the ",
	"i ",
	"i'",
	"this ",
	"sorry",
	"certainly",
	"sure",
	"unfortunately",
	"as an ai",
}

// proseWindow is how many leading lines are checked for prose.
const proseWindow = 3

// ExtractCode reduces a model response to the replacement file body.
//
// The first fenced code block wins; its language tag, if any, is dropped and
// the inner text is trimmed. Without a fence the whole response is accepted
// only when it spans several lines and none of its first lines read like
// prose. An unterminated fence or an empty block yields ErrNoCode.
func ExtractCode(response string) (string, error) {
	if start := strings.Index(response, fence); start >= 0 {
		rest := response[start+len(fence):]
		end := strings.Index(rest, fence)
		if end < 0 {
			return "", ErrNoCode
		}
		body := rest[:end]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && isLanguageTag(body[:nl]) {
			body = body[nl+1:]
		}
		body = strings.TrimSpace(body)
		if body == "" {
			return "", ErrNoCode
		}
		return body, nil
	}

	body := strings.TrimSpace(response)
	lines := strings.Split(body, "\n")
	if len(lines) < 2 {
		return "", ErrNoCode
	}
	for _, line := range lines[:min(proseWindow, len(lines))] {
		if looksLikeProse(line) {
			return "", ErrNoCode
		}
	}
	return body, nil
}

// isLanguageTag reports whether the text after an opening fence is an info
// string such as "go", "c++" or "python3" rather than code.
func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	return !strings.ContainsAny(s, " \t(){};=")
}

func looksLikeProse(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	for _, p := range proseLeadIns {
		if strings.HasPrefix(l, p) {
			return true
		}
	}
	return false
}
