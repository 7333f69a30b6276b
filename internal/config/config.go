package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// LLM contains the chat completion connection settings.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Deployment     string `toml:"deployment"`
	APIVersion     string `toml:"api_version"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Retry controls the per-call retry budget.
type Retry struct {
	MaxAttempts    int `toml:"max_attempts"`
	BackoffSeconds int `toml:"backoff_seconds"`
}

// Input names the columns read from the article table.
type Input struct {
	IDColumn      string `toml:"id_column"`
	ContentColumn string `toml:"content_column"`
	SourceColumn  string `toml:"source_column"`
	DateColumn    string `toml:"date_column"`
	TitleColumn   string `toml:"title_column"`
}

// Output contains settings shared by every task's output table.
type Output struct {
	Dir      string `toml:"dir"`
	Language string `toml:"language"`
}

// Cameo contains settings for CAMEO event extraction.
type Cameo struct {
	MaxChars         int  `toml:"max_chars"`
	EventsMaxTokens  int  `toml:"events_max_tokens"`
	SummaryMaxTokens int  `toml:"summary_max_tokens"`
	Topics           bool `toml:"topics"`
	ClusterMaxTokens int  `toml:"cluster_max_tokens"`
}

// Relevance contains settings for the bilateral relevance verdict.
type Relevance struct {
	Variant  string `toml:"variant"`
	MaxChars int    `toml:"max_chars"`
	CountryA string `toml:"country_a"`
	CountryB string `toml:"country_b"`
}

// Sentiment contains settings for societal sentiment scoring.
type Sentiment struct {
	Target           string `toml:"target"`
	MaxChars         int    `toml:"max_chars"`
	MaxTokens        int    `toml:"max_tokens"`
	SummaryMaxTokens int    `toml:"summary_max_tokens"`
	RowDelayMillis   int    `toml:"row_delay_ms"`
}

// Filter contains the keyword lists used by the cheap pre-filter.
type Filter struct {
	KeywordsA      []string `toml:"keywords_a"`
	KeywordsB      []string `toml:"keywords_b"`
	PoliticalTerms []string `toml:"political_terms"`
	MaxChars       int      `toml:"max_chars"`
}

// Journal configures the SQLite call journal.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Metrics configures the Prometheus textfile written after each run.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Feeds configures RSS/Atom ingestion.
type Feeds struct {
	URLs           []string `toml:"urls"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Notifications configures ntfy delivery of run events.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for eventcoder.
//
// Configuration sections:
//   - LLM: completion provider, credentials, model
//   - Retry: attempt budget and linear backoff base
//   - Input: article table column names
//   - Output: output directory and response language
//   - Cameo, Relevance, Sentiment, Filter: per-task settings
//   - Journal: SQLite call journal
//   - Metrics: Prometheus textfile export
//   - Feeds: RSS/Atom ingestion
//   - Notifications: ntfy topic for run events
//   - Logging: log format, level, optional file
type Config struct {
	LLM           LLM           `toml:"llm"`
	Retry         Retry         `toml:"retry"`
	Input         Input         `toml:"input"`
	Output        Output        `toml:"output"`
	Cameo         Cameo         `toml:"cameo"`
	Relevance     Relevance     `toml:"relevance"`
	Sentiment     Sentiment     `toml:"sentiment"`
	Filter        Filter        `toml:"filter"`
	Journal       Journal       `toml:"journal"`
	Metrics       Metrics       `toml:"metrics"`
	Feeds         Feeds         `toml:"feeds"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("eventcoder.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output directory and the journal's parent.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Output.Dir}
	if c.Journal.Enabled && c.Journal.Path != "" {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// OutputPath resolves name inside the output directory unless it is already absolute.
func (c *Config) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}

// RequireCredentials reports a fatal error when the selected provider lacks a
// key or endpoint. Commands that call the completion API check this before
// touching any input.
func (c *Config) RequireCredentials() error {
	switch c.LLM.Provider {
	case ProviderAzure:
		if c.LLM.APIKey == "" || c.LLM.BaseURL == "" {
			return errors.New("azure openai endpoint/key missing: set AZURE_OPENAI_KEY and AZURE_OPENAI_ENDPOINT or llm.api_key and llm.base_url")
		}
	case ProviderOpenRouter:
		if c.LLM.APIKey == "" {
			return errors.New("llm.api_key is required: set OPENROUTER_API_KEY or edit the config file")
		}
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			return errors.New("llm.api_key is required: set GOOGLE_API_KEY or edit the config file")
		}
	default:
		if c.LLM.APIKey == "" {
			return errors.New("llm.api_key is required: set OPENAI_API_KEY or edit the config file")
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
