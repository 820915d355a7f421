package config

// Pipeline defaults
const (
	// DefaultMaxArticles is the ranking cut-off when max_articles is unset
	DefaultMaxArticles = 10

	// DefaultSummaryLength is the number of sentences requested per summary
	DefaultSummaryLength = 3

	// DefaultLLMModel is the chat model used for summaries
	DefaultLLMModel = "gpt-4o"

	// DefaultTimeoutSeconds bounds a single text-generation call
	DefaultTimeoutSeconds = 30

	// DefaultLLMProvider selects the text generator
	DefaultLLMProvider = "openai"
)

// Directory and file defaults
const (
	// DefaultRawDir holds the fetched articles collection
	DefaultRawDir = "data/raw"

	// DefaultOutputDir holds summaries and scripts
	DefaultOutputDir = "data/processed"

	// DefaultSourcesFile is the source catalog path
	DefaultSourcesFile = "news_sources.yaml"

	// DefaultConfigFile is the runtime config path
	DefaultConfigFile = "config.yaml"
)

// Providers accepted by llm_provider
const (
	ProviderOpenAI = "openai"
	ProviderCohere = "cohere"
	ProviderNone   = "none"
)
