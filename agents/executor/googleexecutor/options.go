/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"errors"
	"fmt"
)

// Option is a functional option for configuring the executor
type Option func(*Executor) error

// WithModel overrides the model name
func WithModel(model string) Option {
	return func(e *Executor) error {
		if model == "" {
			return errors.New("model name cannot be empty")
		}
		e.model = model
		return nil
	}
}

// WithTemperature sets the temperature for responses
// Gemini models support temperature values from 0.0 to 2.0
func WithTemperature(temp float32) Option {
	return func(e *Executor) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		e.temperature = temp
		return nil
	}
}

// WithMaxOutputTokens sets the maximum output tokens
func WithMaxOutputTokens(tokens int32) Option {
	return func(e *Executor) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		e.maxOutputTokens = tokens
		return nil
	}
}
