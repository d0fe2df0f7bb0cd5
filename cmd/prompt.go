package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonyos/wfgen/internal/config"
	"github.com/simonyos/wfgen/internal/prompts"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Inspect prompt templates",
}

var promptShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print the template a run would use",
	Long: `Print the resolved prompt template and where it was loaded from.
Templates are searched in --prompts, prompts_dir, ./.wfgen/prompts and
~/.config/wfgen/prompts before the built-in default.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := prompts.DefaultTemplate
		if len(args) == 1 {
			name = args[0]
		}

		store, err := buildStore()
		if err != nil {
			return err
		}
		t, err := store.Load(cmd.Context(), name)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", t.Source)
		fmt.Fprintln(cmd.OutOrStdout(), t.Text())
		return nil
	},
}

var promptPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List the template search directories",
	Run: func(cmd *cobra.Command, args []string) {
		if promptsFlag != "" {
			fmt.Fprintln(cmd.OutOrStdout(), promptsFlag)
		}
		for _, p := range config.GetPromptPaths() {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
	},
}

func init() {
	promptCmd.PersistentFlags().StringVar(&promptsFlag, "prompts", "", "Directory searched first for prompt templates")
	promptShowCmd.Flags().StringVar(&templateFlag, "template", "", "Prompt template file to show")
	promptCmd.AddCommand(promptShowCmd)
	promptCmd.AddCommand(promptPathsCmd)
	rootCmd.AddCommand(promptCmd)
}
