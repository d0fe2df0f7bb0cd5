package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonyos/wfgen/internal/config"
)

// configKey describes one key accepted by 'wfgen config'
type configKey struct {
	name  string
	alias string
	about string
	def   string
}

var configKeys = []configKey{
	{name: "anthropic_api_key", alias: "anthropic", about: "Anthropic API key"},
	{name: "openai_api_key", alias: "openai", about: "OpenAI API key"},
	{name: "openrouter_api_key", alias: "openrouter", about: "OpenRouter API key"},
	{name: "litellm_api_key", alias: "litellm", about: "LiteLLM proxy key"},
	{name: "litellm_url", about: "LiteLLM proxy URL", def: config.DefaultLiteLLMURL},
	{name: "default_provider", alias: "provider", about: "provider used without -p", def: config.DefaultProvider},
	{name: "default_model", alias: "model", about: "model used without -m"},
	{name: "prompts_dir", alias: "prompts", about: "first directory searched for templates"},
	{name: "max_tokens", about: "output limit per generation call", def: strconv.Itoa(config.DefaultGenerationTokens)},
	{name: "max_iterations", about: "failed candidates before the final review", def: "0 (no limit)"},
	{name: "nats_url", alias: "nats", about: "NATS server receiving run events"},
}

// lookupConfigKey resolves a key name or its alias
func lookupConfigKey(key string) (configKey, bool) {
	for _, k := range configKeys {
		if key == k.name || (k.alias != "" && key == k.alias) {
			return k, true
		}
	}
	return configKey{}, false
}

func configKeyHelp() string {
	var b strings.Builder
	for _, k := range configKeys {
		name := k.name
		if k.alias != "" {
			name += " (" + k.alias + ")"
		}
		fmt.Fprintf(&b, "  %-32s %s", name, k.about)
		if k.def != "" {
			fmt.Fprintf(&b, ", default %s", k.def)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change wfgen settings",
	Long: `Settings live in ~/.config/wfgen/config.json. API keys fall back to
ANTHROPIC_API_KEY, OPENAI_API_KEY, OPENROUTER_API_KEY and LITELLM_API_KEY,
and flags on 'wfgen generate' override everything here.

Keys (alias in parentheses):
` + configKeyHelp(),
	Run: func(cmd *cobra.Command, args []string) {
		showConfig(cmd)
	},
}

var configSetCmd = &cobra.Command{
	Use:          "set <key> <value>",
	Short:        "Store a setting",
	Example:      "  wfgen config set anthropic sk-ant-...\n  wfgen config set max_iterations 5",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, ok := lookupConfigKey(args[0])
		if !ok {
			return fmt.Errorf("unknown key %q, see 'wfgen config --help'", args[0])
		}
		if err := config.Set(k.name, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k.name, config.ListKeys()[k.name])
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:          "get <key>",
	Short:        "Print one setting (keys are masked)",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, ok := lookupConfigKey(args[0])
		if !ok {
			return fmt.Errorf("unknown key %q, see 'wfgen config --help'", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeSetting(k, config.ListKeys()))
		return nil
	},
}

var configDeleteCmd = &cobra.Command{
	Use:          "delete <key>",
	Aliases:      []string{"remove", "unset"},
	Short:        "Clear a setting so its default applies again",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, ok := lookupConfigKey(args[0])
		if !ok {
			return fmt.Errorf("unknown key %q, see 'wfgen config --help'", args[0])
		}
		if err := config.Delete(k.name); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeSetting(k, config.ListKeys()))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
	},
}

// describeSetting renders "key = value", or the default when unset
func describeSetting(k configKey, set map[string]string) string {
	if v, ok := set[k.name]; ok {
		return k.name + " = " + v
	}
	if k.def != "" {
		return k.name + " is not set (default " + k.def + ")"
	}
	return k.name + " is not set"
}

func showConfig(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", config.ConfigPath())

	set := config.ListKeys()
	for _, k := range configKeys {
		fmt.Fprintln(out, describeSetting(k, set))
	}
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configDeleteCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
