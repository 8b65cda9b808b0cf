// Package worker provides initialization and setup utilities for Temporal workers.
// This package contains initialization logic that should be executed during
// worker startup, keeping activity packages focused on pure activity logic.
package worker

import (
	"fmt"

	"github.com/ahrav/go-consilium/internal/config"
	"github.com/ahrav/go-consilium/internal/llm"
)

// InitializeLLMClient creates the specialist LLM client from application
// configuration. Returns the client for dependency injection rather than
// setting global state.
func InitializeLLMClient(cfg config.LLM) (llm.Client, error) {
	client, err := llm.NewClient(llm.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	return client, nil
}
