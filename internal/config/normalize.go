package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeLLM()
	c.normalizeInput()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTasks()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultProvider
	}

	// Environment variables take precedence over file values so credentials
	// can stay out of the config file.
	switch c.LLM.Provider {
	case ProviderAzure:
		if value, ok := lookupEnv("AZURE_OPENAI_KEY"); ok {
			c.LLM.APIKey = value
		}
		if value, ok := lookupEnv("AZURE_OPENAI_ENDPOINT"); ok {
			c.LLM.BaseURL = value
		}
		if strings.TrimSpace(c.LLM.APIVersion) == "" {
			c.LLM.APIVersion = defaultAzureAPIVersion
		}
	case ProviderOpenRouter:
		if value, ok := lookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	case ProviderGemini:
		for _, key := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"} {
			if value, ok := lookupEnv(key); ok {
				c.LLM.APIKey = value
				break
			}
		}
	default:
		if value, ok := lookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel
		if c.LLM.Provider == ProviderGemini {
			c.LLM.Model = defaultGeminiModel
		}
	}
	c.LLM.Deployment = strings.TrimSpace(c.LLM.Deployment)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeInput() {
	c.Input.IDColumn = strings.TrimSpace(c.Input.IDColumn)
	c.Input.ContentColumn = strings.TrimSpace(c.Input.ContentColumn)
	c.Input.SourceColumn = strings.TrimSpace(c.Input.SourceColumn)
	c.Input.DateColumn = strings.TrimSpace(c.Input.DateColumn)
	c.Input.TitleColumn = strings.TrimSpace(c.Input.TitleColumn)
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeTasks() {
	c.Output.Language = strings.TrimSpace(c.Output.Language)
	if c.Output.Language == "" {
		c.Output.Language = defaultLanguage
	}
	c.Relevance.Variant = strings.ToLower(strings.TrimSpace(c.Relevance.Variant))
	if c.Relevance.Variant == "" {
		c.Relevance.Variant = defaultRelevanceVariant
	}
	if strings.TrimSpace(c.Relevance.CountryA) == "" {
		c.Relevance.CountryA = defaultCountryA
	}
	if strings.TrimSpace(c.Relevance.CountryB) == "" {
		c.Relevance.CountryB = defaultCountryB
	}
	if strings.TrimSpace(c.Sentiment.Target) == "" {
		c.Sentiment.Target = c.Relevance.CountryA
	}
	c.Filter.KeywordsA = normalizeKeywords(c.Filter.KeywordsA)
	c.Filter.KeywordsB = normalizeKeywords(c.Filter.KeywordsB)
	c.Filter.PoliticalTerms = normalizeKeywords(c.Filter.PoliticalTerms)
	if c.Feeds.TimeoutSeconds <= 0 {
		c.Feeds.TimeoutSeconds = defaultFeedTimeout
	}
	urls := c.Feeds.URLs[:0]
	for _, u := range c.Feeds.URLs {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	c.Feeds.URLs = urls
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeKeywords(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}
