/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder builds fix prompts from rule-keyed templates.

Templates use {{name}} placeholders. Parsing is single pass, so values bound
into a prompt, such as file content that itself contains braces, are never
re-interpreted as placeholders.

	p, err := promptbuilder.Parse("Fix {{message}} in:\n{{code}}")
	if err != nil {
		return err
	}
	text, err := p.Fill(map[string]string{
		promptbuilder.PlaceholderMessage: finding.Message,
		promptbuilder.PlaceholderCode:    content,
	})

# Catalog

A Catalog groups a system prompt, a default template and per-rule templates,
loaded from YAML:

	system: You are an expert software engineer...
	default: |
	  Fix {{message}} ...
	rules:
	  RSPEC-1192: |
	    ...

Resolve looks up a rule by its exact identifier, then by its RSPEC key
("java:S1192" becomes "RSPEC-1192"), then falls back to the default template.
When none applies it returns ErrNoTemplate. A catalog is embedded in the
binary and DefaultCatalog returns it.
*/
package promptbuilder
