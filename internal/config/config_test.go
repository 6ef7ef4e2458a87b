package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/folio/pkg/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
site: aps
storage:
  driver: redis
  redis_url: redis://cache:6379/2
logging:
  mode: production
  level: debug
journals:
  - code: EMBO
    name: EMBO Journal
    issues: ["2024-1", "2024-2"]
  - code: advma
templates:
  - id: theme
    category: theme
    sections:
      - section:
          name: Header
          layout: one-column
          areas:
            - name: main
              widgets:
                - kind: banner
                  props: {color: black}
  - id: toc
    category: publication
    inherits_from: theme
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "aps", config.Site)
	assert.Equal(t, DriverRedis, config.Storage.Driver)
	assert.Equal(t, "redis://cache:6379/2", config.Storage.RedisURL)
	assert.Equal(t, DefaultSQLitePath, config.Storage.Path)
	assert.Equal(t, "production", config.Logging.Mode)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "embo", config.Journals[0].Code, "codes are lowercased")

	require.Len(t, config.Templates, 2)
	section := config.Templates[0].Sections[0].Section
	require.NotNil(t, section)
	assert.NotEmpty(t, section.ID, "missing ids are generated")
	assert.NotEmpty(t, section.Areas[0].Widgets[0].ID)
	assert.Equal(t, "black", section.Areas[0].Widgets[0].Props["color"])

	assert.Equal(t, []site.Route{
		"journal/embo",
		"journal/embo/issue/2024-1",
		"journal/embo/issue/2024-2",
		"journal/advma",
	}, config.KnownRoutes())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"`))
	require.NoError(t, err)

	assert.Equal(t, DefaultSite, config.Site)
	assert.Equal(t, DefaultDriver, config.Storage.Driver)
	assert.Equal(t, DefaultSQLitePath, config.Storage.Path)
	assert.Equal(t, DefaultRedisURL, config.Storage.RedisURL)
	assert.Equal(t, DefaultLogMode, config.Logging.Mode)
	assert.Equal(t, DefaultLogLevel, config.Logging.Level)
	assert.Empty(t, config.KnownRoutes())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvSite, "staging")
	t.Setenv(EnvRedisURL, "redis://elsewhere:6379/0")

	config, err := Load(writeConfig(t, "version: \"1.0\"\nsite: aps\n"))
	require.NoError(t, err)
	assert.Equal(t, "staging", config.Site)
	assert.Equal(t, "redis://elsewhere:6379/0", config.Storage.RedisURL)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/folio.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	config, err := Load(writeConfig(t, "version: \"1.0\"\njournals:\n  - code: [unclosed\n"))
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_Rejections(t *testing.T) {
	testCases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"wrong version", `version: "2.0"`, "unsupported version"},
		{"bad driver", "version: \"1.0\"\nstorage:\n  driver: postgres\n", "invalid storage.driver"},
		{"bad redis url", "version: \"1.0\"\nstorage:\n  redis_url: localhost:6379\n", "invalid storage.redis_url"},
		{"bad log mode", "version: \"1.0\"\nlogging:\n  mode: verbose\n", "invalid logging.mode"},
		{"bad log level", "version: \"1.0\"\nlogging:\n  level: trace\n", "invalid logging.level"},
		{"site with colon", "version: \"1.0\"\nsite: a:b\n", "cannot contain"},
		{"missing journal code", "version: \"1.0\"\njournals:\n  - name: Nameless\n", "journal code is required"},
		{"bad journal code", "version: \"1.0\"\njournals:\n  - code: em/bo\n", "invalid code"},
		{"bad issue id", "version: \"1.0\"\njournals:\n  - code: embo\n    issues: [\"a b\"]\n", "invalid issue id"},
		{"duplicate journal", "version: \"1.0\"\njournals:\n  - code: embo\n  - code: EMBO\n", "duplicate journal code"},
		{"bad template category", "version: \"1.0\"\ntemplates:\n  - id: toc\n    category: blog\n", "unknown category"},
		{"duplicate template", "version: \"1.0\"\ntemplates:\n  - id: toc\n    category: publication\n  - id: toc\n    category: publication\n", "duplicate template id"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "1.0", c.Version)
	assert.Equal(t, DefaultDriver, c.Storage.Driver)
}
