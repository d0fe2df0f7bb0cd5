package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simonyos/wfgen/internal/config"
	"github.com/simonyos/wfgen/internal/events"
	"github.com/simonyos/wfgen/internal/llm"
	"github.com/simonyos/wfgen/internal/logging"
	"github.com/simonyos/wfgen/internal/pipeline"
	"github.com/simonyos/wfgen/internal/prompts"
	"github.com/simonyos/wfgen/internal/tui"
)

// defaultRequest is used when no request is given on the command line
const defaultRequest = `Create a workflow that writes a recipe article.
1. Search the web for recipes on the requested dish.
2. Take the URLs of the top 3 results.
3. Fetch the page content of each of the 3 URLs.
4. Have the LLM organise the fetched information into one recipe article.`

var (
	providerFlag      string
	modelFlag         string
	promptsFlag       string
	templateFlag      string
	requestFileFlag   string
	outputFlag        string
	natsURLFlag       string
	maxTokensFlag     int
	maxIterationsFlag int
	tuiFlag           bool
	debugFlag         bool
)

var rootCmd = &cobra.Command{
	Use:   "wfgen [request...]",
	Short: "Generate Dify workflows with an LLM, checked and reviewed",
	Long: `wfgen turns a natural-language request into a Dify workflow document.
Each candidate is checked by the model against the rules in the prompt
template; when the check fails you decide whether to regenerate (y) or
accept the candidate anyway (n).

Supported providers:
  anthropic   - Anthropic API (default, requires ANTHROPIC_API_KEY)
  openai      - OpenAI API (requires OPENAI_API_KEY)
  openrouter  - OpenRouter API (requires OPENROUTER_API_KEY)
  litellm     - LiteLLM proxy (requires --model)`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runGenerate,
}

var generateCmd = &cobra.Command{
	Use:   "generate [request...]",
	Short: "Generate a workflow (default command)",
	Long: `Generate a workflow from the request given as arguments, from
--request-file, or from the built-in recipe-article example.

Examples:
  wfgen generate "summarise a web page and translate it to French"
  wfgen generate --request-file request.txt -o workflow.yml
  wfgen generate -p openai -m gpt-4o --tui`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logger := logging.New(cmd.ErrOrStderr(), debugFlag)

	query, err := resolveRequest(args)
	if err != nil {
		return err
	}

	providerName := firstNonEmpty(providerFlag, cfg.DefaultProvider, config.DefaultProvider)
	provider, err := llm.New(providerName, firstNonEmpty(modelFlag, cfg.DefaultModel))
	if err != nil {
		return err
	}

	store, err := buildStore()
	if err != nil {
		return err
	}

	maxTokens := maxTokensFlag
	if maxTokens <= 0 {
		maxTokens = config.GetMaxTokens()
	}
	maxIterations := cfg.MaxIterations
	if cmd.Flags().Changed("max-iterations") {
		maxIterations = maxIterationsFlag
	}

	var gate pipeline.OperatorGate = pipeline.NewConsoleGate(cmd.InOrStdin(), cmd.OutOrStdout())
	if tuiFlag {
		gate = tui.NewGate()
	}

	observers := events.Multi{events.NewSlogObserver(logger)}
	if url := firstNonEmpty(natsURLFlag, config.GetNATSURL()); url != "" {
		bus, err := events.Connect(events.DefaultNATSConfig(url), logger)
		if err != nil {
			logger.Warn("nats: run events disabled", "error", err)
		} else {
			defer bus.Close()
			observers = append(observers, bus)
		}
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	logger.Info("run: configured",
		"provider", providerName,
		"model", provider.ModelName(),
		"max_tokens", maxTokens,
		"max_iterations", maxIterations)

	engine := pipeline.NewEngine(
		pipeline.NewLLMGenerator(provider, store, pipeline.StepConfig{MaxTokens: maxTokens, Logger: logger}),
		pipeline.NewLLMValidator(provider, store, pipeline.StepConfig{Logger: logger}),
		pipeline.Options{
			Gate:          gate,
			MaxIterations: maxIterations,
			Logger:        logger,
			Observer:      observers,
		},
	)

	res, err := engine.Run(ctx, query)
	if err != nil {
		return err
	}
	if res.ExtractErr != nil {
		return nil
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(res.Workflow), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outputFlag, err)
		}
		logger.Info("workflow written", "path", outputFlag)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), res.Workflow)
	return nil
}

func resolveRequest(args []string) (string, error) {
	if requestFileFlag != "" {
		data, err := os.ReadFile(requestFileFlag)
		if err != nil {
			return "", fmt.Errorf("reading request: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return defaultRequest, nil
}

// buildStore resolves templates from --template, or from the prompt search
// paths with the embedded defaults as the last resort.
func buildStore() (prompts.Store, error) {
	if templateFlag != "" {
		t, err := prompts.LoadFile(templateFlag)
		if err != nil {
			return nil, err
		}
		return prompts.StaticStore{Template: t}, nil
	}

	paths := config.GetPromptPaths()
	if promptsFlag != "" {
		paths = append([]string{promptsFlag}, paths...)
	}
	return prompts.NewCachedStore(prompts.ChainStore{
		prompts.NewFileStore(paths...),
		prompts.EmbeddedStore{},
	}), nil
}

// signalContext is canceled on interrupt or termination
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func addGenerateFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVarP(&providerFlag, "provider", "p", "", "LLM provider (anthropic, openai, openrouter, litellm)")
	f.StringVarP(&modelFlag, "model", "m", "", "Model to use (provider-specific)")
	f.StringVar(&promptsFlag, "prompts", "", "Directory searched first for prompt templates")
	f.StringVar(&templateFlag, "template", "", "Prompt template file to use instead of the search paths")
	f.StringVar(&requestFileFlag, "request-file", "", "Read the request from a file")
	f.StringVarP(&outputFlag, "output", "o", "", "Write the extracted workflow to a file instead of stdout")
	f.IntVar(&maxTokensFlag, "max-tokens", 0, fmt.Sprintf("Output limit per generation call (default %d)", config.DefaultGenerationTokens))
	f.IntVar(&maxIterationsFlag, "max-iterations", 0, "Failed candidates before the final review (0 = no limit)")
	f.BoolVar(&tuiFlag, "tui", false, "Review failed candidates in a full-screen view")
	f.StringVar(&natsURLFlag, "nats-url", "", "Publish run events to this NATS server")
	f.BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

func init() {
	addGenerateFlags(rootCmd)
	addGenerateFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}
