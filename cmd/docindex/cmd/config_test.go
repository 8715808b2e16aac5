package cmd

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docindex/configs"
	"github.com/Aman-CERP/docindex/internal/config"
	ierrors "github.com/Aman-CERP/docindex/internal/errors"
)

func TestConfigCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"init", "show", "path"} {
		sub, _, err := cmd.Find([]string{"config", name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestConfigInit_WritesTemplate(t *testing.T) {
	// Given: an empty directory
	workspace(t)

	// When: running config init
	out, err := execute(t, "config", "init")

	// Then: .docindex.yaml holds the template
	require.NoError(t, err)
	assert.Contains(t, out, "Created configuration")
	data, err := os.ReadFile(config.DefaultConfigFile)
	require.NoError(t, err)
	assert.Equal(t, configs.ConfigTemplate, string(data))
	assert.NoFileExists(t, config.DefaultEnvFile)
}

func TestConfigInit_ExistingFile(t *testing.T) {
	// Given: an existing configuration
	workspace(t)
	require.NoError(t, os.WriteFile(config.DefaultConfigFile, []byte("version: 1\n"), 0o644))

	t.Run("kept without --force", func(t *testing.T) {
		out, err := execute(t, "config", "init")

		require.NoError(t, err)
		assert.Contains(t, out, "already exists")
		data, _ := os.ReadFile(config.DefaultConfigFile)
		assert.Equal(t, "version: 1\n", string(data))
	})

	t.Run("replaced with --force", func(t *testing.T) {
		_, err := execute(t, "config", "init", "--force")

		require.NoError(t, err)
		data, _ := os.ReadFile(config.DefaultConfigFile)
		assert.Equal(t, configs.ConfigTemplate, string(data))
	})
}

func TestConfigInit_Env(t *testing.T) {
	// Given: an empty directory
	workspace(t)

	// When: running config init --env twice
	_, err := execute(t, "config", "init", "--env")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(config.DefaultEnvFile, []byte("HUGGINGFACE_KEY=mine\n"), 0o600))
	out, err := execute(t, "config", "init", "--env", "--force")

	// Then: the .env written first is never overwritten
	require.NoError(t, err)
	assert.Contains(t, out, ".env already exists")
	data, _ := os.ReadFile(config.DefaultEnvFile)
	assert.Equal(t, "HUGGINGFACE_KEY=mine\n", string(data))
}

func TestConfigInit_ExplicitPath(t *testing.T) {
	workspace(t)

	_, err := execute(t, "config", "init", "--config", "custom.yaml")

	require.NoError(t, err)
	assert.FileExists(t, "custom.yaml")
	assert.NoFileExists(t, config.DefaultConfigFile)
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	// Given: credentials in the environment
	workspace(t)
	t.Setenv("HUGGINGFACE_KEY", "hf_abcdefghijklmnop")
	t.Setenv("SUPABASE_KEY", "short")

	// When: showing the configuration as JSON
	out, err := execute(t, "config", "show", "--json")
	require.NoError(t, err)

	// Then: keys are masked and defaults are present
	assert.NotContains(t, out, "hf_abcdefghijklmnop")

	var cfg struct {
		Documents  struct{ Dir string }
		Embeddings struct {
			APIKey  string `json:"api_key"`
			Timeout string
		}
		Store struct {
			APIKey  string `json:"api_key"`
			Table   string
			Timeout string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "hf_a****", cfg.Embeddings.APIKey)
	assert.Equal(t, "****", cfg.Store.APIKey)
	assert.Equal(t, config.DefaultDocumentsDir, cfg.Documents.Dir)
	assert.Equal(t, config.DefaultTable, cfg.Store.Table)
}

func TestConfigShow_JSONDurationsMatchYAML(t *testing.T) {
	// Given: the default configuration
	workspace(t)

	// When: showing it as JSON and as YAML
	jsonOut, err := execute(t, "config", "show", "--json")
	require.NoError(t, err)
	yamlOut, err := execute(t, "config", "show")
	require.NoError(t, err)

	// Then: timeouts read the same in both views
	var view struct {
		Embeddings map[string]any `json:"embeddings"`
		Store      map[string]any `json:"store"`
	}
	require.NoError(t, json.Unmarshal([]byte(jsonOut), &view))
	assert.Equal(t, "2m0s", view.Embeddings["timeout"])
	assert.Equal(t, "30s", view.Store["timeout"])
	assert.Contains(t, yamlOut, "timeout: 2m0s")
	assert.NotContains(t, jsonOut, "120000000000")
}

func TestConfigShow_YAMLReflectsFile(t *testing.T) {
	// Given: a config file selecting the sqlite backend
	workspace(t)
	require.NoError(t, os.WriteFile(config.DefaultConfigFile, []byte("store:\n  backend: sqlite\n"), 0o644))

	// When: showing the configuration
	out, err := execute(t, "config", "show")

	// Then: the file value wins over the default
	require.NoError(t, err)
	assert.Contains(t, out, "backend: sqlite")
	assert.Contains(t, out, "dir: ./documentos")
}

func TestConfigShow_MissingExplicitFile(t *testing.T) {
	workspace(t)

	_, err := execute(t, "config", "show", "--config", "nope.yaml")

	require.Error(t, err)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeConfigInvalid))
}

func TestConfigPath(t *testing.T) {
	workspace(t)

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, ".docindex.yaml (not found)\n", out)

	require.NoError(t, os.WriteFile(".docindex.yml", []byte("version: 1\n"), 0o644))
	out, err = execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, ".docindex.yml\n", out)

	out, err = execute(t, "config", "path", "--config", "other.yaml")
	require.NoError(t, err)
	assert.Equal(t, "other.yaml\n", out)
}
