package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docindex/configs"
	"github.com/Aman-CERP/docindex/internal/config"
	"github.com/Aman-CERP/docindex/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the docindex configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. YAML file (--config, or .docindex.yaml in the working directory)
  3. .env file in the working directory
  4. Environment variables (HUGGINGFACE_KEY, SUPABASE_URL, SUPABASE_KEY, DOCINDEX_*)`,
		Example: `  # Create .docindex.yaml and .env from templates
  docindex config init --env

  # Show effective configuration (secrets masked)
  docindex config show

  # Print the config file in use
  docindex config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		withEnv bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		Long: `Create .docindex.yaml (or the --config path) from a commented template
whose values are the built-in defaults.

With --env a .env skeleton for the credentials is written too. An
existing .env is never overwritten.`,
		Example: `  # Create .docindex.yaml
  docindex config init

  # Overwrite an existing file
  docindex config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, withEnv)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	cmd.Flags().BoolVar(&withEnv, "env", false, "Also write a .env skeleton")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging all sources. API keys are masked.`,
		Example: `  # Show as YAML
  docindex config show

  # Show as JSON
  docindex config show --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use",
		Long: `Print the YAML file docindex reads, or the default location when none
exists yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configFile
			if path == "" {
				path = config.FindConfigFile(".")
			}
			if path == "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (not found)\n", config.DefaultConfigFile)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func runConfigInit(cmd *cobra.Command, force, withEnv bool) error {
	out := output.New(cmd.OutOrStdout())

	path := configFile
	if path == "" {
		path = config.DefaultConfigFile
	}

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Configuration already exists")
		out.Statusf("📁", "Location: %s", path)
		out.Newline()
		out.Status("💡", "Use --force to overwrite it with the defaults")
		return nil
	}

	if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)

	if withEnv {
		if err := writeEnvTemplate(out); err != nil {
			return err
		}
	}

	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Set HUGGINGFACE_KEY, SUPABASE_URL and SUPABASE_KEY")
	out.Status("", "  2. Run 'docindex check' to verify")

	return nil
}

func writeEnvTemplate(out *output.Writer) error {
	_, err := os.Stat(config.DefaultEnvFile)
	if err == nil {
		out.Warningf("%s already exists, left unchanged", config.DefaultEnvFile)
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", config.DefaultEnvFile, err)
	}

	// Credentials only: owner read/write.
	if err := os.WriteFile(config.DefaultEnvFile, []byte(configs.EnvTemplate), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.DefaultEnvFile, err)
	}
	out.Successf("Created %s", config.DefaultEnvFile)
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if jsonOutput {
		// Decoding the YAML view keeps durations as "2m0s" rather than nanoseconds.
		var view map[string]any
		if err := yaml.Unmarshal(data, &view); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}
