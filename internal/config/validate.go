package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are checked
// separately by RequireCredentials because read-only commands do not need them.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateInput(); err != nil {
		return err
	}
	if err := c.validateTasks(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAzure, ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be one of openai, azure, openrouter, gemini (got %q)", c.LLM.Provider)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts <= 0 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if c.Retry.BackoffSeconds < 0 {
		return errors.New("retry.backoff_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateInput() error {
	if c.Input.IDColumn == "" {
		return errors.New("input.id_column must be set")
	}
	if c.Input.ContentColumn == "" {
		return errors.New("input.content_column must be set")
	}
	return nil
}

func (c *Config) validateTasks() error {
	switch c.Relevance.Variant {
	case "broad", "simple", "cameo":
	default:
		return fmt.Errorf("relevance.variant must be broad, simple, or cameo (got %q)", c.Relevance.Variant)
	}
	for name, value := range map[string]int{
		"cameo.max_chars":     c.Cameo.MaxChars,
		"relevance.max_chars": c.Relevance.MaxChars,
		"sentiment.max_chars": c.Sentiment.MaxChars,
		"filter.max_chars":    c.Filter.MaxChars,
		"sentiment.row_delay": c.Sentiment.RowDelayMillis,
	} {
		if value < 0 {
			return fmt.Errorf("%s must be zero or positive", name)
		}
	}
	if !strings.HasPrefix(strings.ToLower(c.Output.Language), "turk") &&
		!strings.HasPrefix(strings.ToLower(c.Output.Language), "eng") {
		return fmt.Errorf("output.language must be English or Turkish (got %q)", c.Output.Language)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
