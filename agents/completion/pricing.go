/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package completion

import (
	"maps"
	"strings"
)

// Rate is the USD price per 1,000 tokens.
type Rate struct {
	Input  float64
	Output float64
}

// Catalog describes a provider's models and their prices.
type Catalog struct {
	Provider     string
	DefaultModel string
	Rates        map[string]Rate
}

// RateFor returns the rate of model: an exact match, else the longest
// catalog entry model starts with, else the default model's rate.
func (c Catalog) RateFor(model string) Rate {
	if r, ok := c.Rates[model]; ok {
		return r
	}
	best := ""
	for name := range c.Rates {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return c.Rates[best]
	}
	return c.Rates[c.DefaultModel]
}

// Cost prices a call of model with the given token counts.
func (c Catalog) Cost(model string, promptTokens, completionTokens int64) float64 {
	r := c.RateFor(model)
	return float64(promptTokens)/1000*r.Input + float64(completionTokens)/1000*r.Output
}

var (
	mistral = Catalog{
		Provider:     "mistral",
		DefaultModel: "mistral-small-latest",
		Rates: map[string]Rate{
			"mistral-tiny":         {Input: 0.00025, Output: 0.00025},
			"mistral-small":        {Input: 0.002, Output: 0.006},
			"mistral-small-latest": {Input: 0.002, Output: 0.006},
			"mistral-medium":       {Input: 0.0027, Output: 0.0081},
			"mistral-large":        {Input: 0.008, Output: 0.024},
			"mistral-large-latest": {Input: 0.008, Output: 0.024},
			"codestral-latest":     {Input: 0.001, Output: 0.003},
		},
	}
	gemini = Catalog{
		Provider:     "gemini",
		DefaultModel: "gemini-2.0-flash",
		Rates: map[string]Rate{
			"gemini-1.5-pro":   {Input: 0.00125, Output: 0.005},
			"gemini-1.5-flash": {Input: 0.000075, Output: 0.0003},
			"gemini-2.0-flash": {Input: 0.000075, Output: 0.0003},
		},
	}
	claude = Catalog{
		Provider:     "claude",
		DefaultModel: "claude-sonnet-4-5",
		Rates: map[string]Rate{
			"claude-sonnet": {Input: 0.003, Output: 0.015},
			"claude-opus":   {Input: 0.015, Output: 0.075},
			"claude-haiku":  {Input: 0.0008, Output: 0.004},
			// Dated model ids put the family first.
			"claude-sonnet-4-5": {Input: 0.003, Output: 0.015},
			"claude-3-5-sonnet": {Input: 0.003, Output: 0.015},
			"claude-3-5-haiku":  {Input: 0.0008, Output: 0.004},
			"claude-opus-4":     {Input: 0.015, Output: 0.075},
		},
	}
	openAI = Catalog{
		Provider:     "openai",
		DefaultModel: "gpt-4o-mini",
		Rates: map[string]Rate{
			"gpt-4o":      {Input: 0.0025, Output: 0.01},
			"gpt-4o-mini": {Input: 0.00015, Output: 0.0006},
		},
	}
)

func clone(c Catalog) Catalog {
	c.Rates = maps.Clone(c.Rates)
	return c
}

// MistralCatalog returns the Mistral price list.
func MistralCatalog() Catalog { return clone(mistral) }

// GeminiCatalog returns the Gemini price list.
func GeminiCatalog() Catalog { return clone(gemini) }

// ClaudeCatalog returns the Anthropic Claude price list.
func ClaudeCatalog() Catalog { return clone(claude) }

// OpenAICatalog returns the OpenAI price list.
func OpenAICatalog() Catalog { return clone(openAI) }

// CatalogFor returns the catalog of a named provider.
func CatalogFor(provider string) (Catalog, bool) {
	switch provider {
	case mistral.Provider:
		return MistralCatalog(), true
	case gemini.Provider:
		return GeminiCatalog(), true
	case claude.Provider:
		return ClaudeCatalog(), true
	case openAI.Provider:
		return OpenAICatalog(), true
	}
	return Catalog{}, false
}
