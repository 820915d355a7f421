package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("logging_level: DEBUG\n"), "inline")
	require.NoError(t, err)

	require.Equal(t, "DEBUG", cfg.LoggingLevel)
	require.Equal(t, DefaultMaxArticles, cfg.MaxArticles)
	require.True(t, cfg.DeduplicateEnabled())
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
	require.Equal(t, DefaultRawDir, cfg.RawDir)
	require.Equal(t, DefaultLLMModel, cfg.LLMModel)
	require.Equal(t, DefaultSummaryLength, cfg.SummaryLength)
	require.Equal(t, 30*time.Second, cfg.Timeout())
	require.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	require.Zero(t, cfg.MaxAge())
}

func TestParseExplicitValues(t *testing.T) {
	raw := `
max_articles: 5
deduplicate: false
output_dir: out
template_file: tmpl.md
llm_model: gpt-4o-mini
llm_provider: Cohere
summary_length: 2
openai_timeout: 10
max_age_days: 7
`
	cfg, err := Parse([]byte(raw), "inline")
	require.NoError(t, err)

	require.Equal(t, 5, cfg.MaxArticles)
	require.False(t, cfg.DeduplicateEnabled())
	require.Equal(t, "out", cfg.OutputDir)
	require.Equal(t, "tmpl.md", cfg.TemplateFile)
	require.Equal(t, ProviderCohere, cfg.LLMProvider)
	require.Equal(t, 2, cfg.SummaryLength)
	require.Equal(t, 10*time.Second, cfg.Timeout())
	require.Equal(t, 7*24*time.Hour, cfg.MaxAge())
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative max":    "max_articles: -1\n",
		"bad provider":    "llm_provider: claude\n",
		"negative age":    "max_age_days: -3\n",
		"negative length": "summary_length: -2\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw), "inline")
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCatalogMappingAndList(t *testing.T) {
	dir := t.TempDir()

	mapped := filepath.Join(dir, "mapped.yaml")
	require.NoError(t, os.WriteFile(mapped, []byte(`
sources:
  - name: Quantum Daily
    type: rss
    url: https://example.com/feed
  - name: Newsletter
    type: email
    url: https://example.com/mail
`), 0o644))

	cat, err := LoadCatalog(mapped)
	require.NoError(t, err)
	require.Len(t, cat.Sources, 2)
	require.Equal(t, "rss", cat.Sources[0].Type)
	require.Equal(t, "email", cat.Sources[1].Type)

	list := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(list, []byte(`
- name: Only
  type: RSS
  url: http://example.org/rss
`), 0o644))

	cat, err = LoadCatalog(list)
	require.NoError(t, err)
	require.Len(t, cat.Sources, 1)
	require.Equal(t, "RSS", cat.Sources[0].Type)
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParseCatalog([]byte("sources:\n  - name: x\n    type: rss\n"), "inline")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = ParseCatalog([]byte("sources: [unterminated"), "inline")
	require.Error(t, err)
}

func TestLoadInfra(t *testing.T) {
	env := map[string]string{
		"S3_BUCKET":               "reports",
		"S3_PREFIX":               "/weekly/",
		"S3_USE_PATH_STYLE":       "TRUE",
		"REDIS_ADDR":              "localhost:6379",
		"HISTORY_TTL_DAYS":        "14",
		"KAFKA_BOOTSTRAP_SERVERS": "a:9092, b:9092,",
	}
	infra := LoadInfra(func(k string) string { return env[k] })

	require.True(t, infra.S3.Enabled())
	require.Equal(t, "weekly/", infra.S3.Prefix)
	require.True(t, infra.S3.UsePathStyle)
	require.True(t, infra.Redis.Enabled())
	require.Equal(t, 14*24*time.Hour, infra.Redis.TTL)
	require.Equal(t, []string{"a:9092", "b:9092"}, infra.Kafka.Brokers)
	require.Equal(t, "weekly-scripts", infra.Kafka.ScriptTopic)

	empty := LoadInfra(func(string) string { return "" })
	require.False(t, empty.S3.Enabled())
	require.False(t, empty.Redis.Enabled())
	require.False(t, empty.Kafka.Enabled())
}
