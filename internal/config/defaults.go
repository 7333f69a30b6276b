package config

const (
	ProviderOpenAI     = "openai"
	ProviderAzure      = "azure"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	defaultConfigPath        = "~/.config/eventcoder/config.toml"
	defaultProvider          = ProviderOpenAI
	defaultModel             = "gpt-4.1"
	defaultGeminiModel       = "gemini-2.0-flash"
	defaultAzureAPIVersion   = "2025-04-01-preview"
	defaultLLMTimeoutSeconds = 120
	defaultMaxAttempts       = 4
	defaultBackoffSeconds    = 5
	defaultOutputDir         = "."
	defaultLanguage          = "English"
	defaultJournalPath       = "~/.local/share/eventcoder/journal.db"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultFeedTimeout       = 30
	defaultNtfyTimeout       = 10
	defaultRelevanceVariant  = "broad"
	defaultCountryA          = "Israel"
	defaultCountryB          = "Turkey"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:       defaultProvider,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Retry: Retry{
			MaxAttempts:    defaultMaxAttempts,
			BackoffSeconds: defaultBackoffSeconds,
		},
		Input: Input{
			IDColumn:      "NewsID",
			ContentColumn: "Content",
			SourceColumn:  "Source",
			DateColumn:    "Date",
			TitleColumn:   "Title",
		},
		Output: Output{
			Dir:      defaultOutputDir,
			Language: defaultLanguage,
		},
		Cameo: Cameo{
			MaxChars:         30000,
			EventsMaxTokens:  1500,
			SummaryMaxTokens: 250,
			Topics:           true,
			ClusterMaxTokens: 700,
		},
		Relevance: Relevance{
			Variant:  defaultRelevanceVariant,
			MaxChars: 15000,
			CountryA: defaultCountryA,
			CountryB: defaultCountryB,
		},
		Sentiment: Sentiment{
			Target:           defaultCountryA,
			MaxChars:         30000,
			MaxTokens:        600,
			SummaryMaxTokens: 600,
			RowDelayMillis:   500,
		},
		Filter: Filter{
			KeywordsA: []string{
				"israel", "israeli", "jerusalem", "gaza", "idf", "netanyahu", "herzog", "sharon",
				"israil", "israilli", "kudüs", "gazze",
				"ישראל", "ישראלי", "עזה", "ירושלים", "צה\"ל",
			},
			KeywordsB: []string{
				"turkey", "turkish", "türkiye", "ankara", "istanbul", "erdogan", "erdoğan", "akp",
				"türk",
				"טורקיה", "טורקי", "איסטנבול", "ארדואן",
			},
			PoliticalTerms: []string{
				"prime minister", "president", "foreign minister", "diplomat", "cabinet", "government", "minister",
				"başbakan", "cumhurbaşkanı",
				"ראש הממשלה", "שר החוץ", "משרד החוץ",
			},
			MaxChars: 30000,
		},
		Journal: Journal{
			Enabled: true,
			Path:    defaultJournalPath,
		},
		Feeds: Feeds{
			TimeoutSeconds: defaultFeedTimeout,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
