package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-scorer/internal/ai"
	"github.com/spigell/cv-scorer/internal/ai/gemini"
	"github.com/spigell/cv-scorer/internal/ai/openai"
	"github.com/spigell/cv-scorer/internal/extract"
	"github.com/spigell/cv-scorer/internal/logger"
	"github.com/spigell/cv-scorer/internal/metrics"
	"github.com/spigell/cv-scorer/internal/pipeline"
	"github.com/spigell/cv-scorer/internal/secrets"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score every new document in the submissions directory",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before scoring")
	runCmd.Flags().StringP("submissions-dir", "s", "", "directory with documents to score")
	runCmd.Flags().String("metrics-file", "", "write run metrics in node-exporter textfile format")

	viper.BindPFlag("submissions-dir", runCmd.Flags().Lookup("submissions-dir"))
	viper.BindPFlag("metrics-file", runCmd.Flags().Lookup("metrics-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	base, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer base.Sync()

	logger := logger.WithRun(base, uuid.NewString())

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-scorer", zap.String("version", version))
	logger.Debug("starting with config", zap.Any("config", redacted(config)))

	schema, err := getSchema(config)
	if err != nil {
		logger.Fatal("building criteria schema", zap.Error(err))
	}

	st, err := openStore(config)
	if err != nil {
		logger.Fatal("opening result store", zap.Error(err))
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scorer, err := newScorer(ctx, config, logger)
	if err != nil {
		logger.Fatal("building scorer", zap.Error(err), zap.String("hint", "set OPENAI_CUSTOM_API_KEY, GEMINI_API_KEY or the api-key-file keys in the configuration file"))
	}

	recorder := metrics.New()

	runner, err := pipeline.NewRunner(pipeline.Config{
		Timeout:     config.Timeout,
		Temperature: config.Temperature,
	}, pipeline.Deps{
		Schema:    schema,
		Extractor: extract.New(),
		Scorer:    scorer,
		Store:     st,
		Logger:    logger,
		Metrics:   recorder,
	})
	if err != nil {
		logger.Fatal("creating pipeline", zap.Error(err))
	}

	pending, err := runner.EnumeratePending(config.SubmissionsDir)
	if err != nil {
		logger.Fatal("listing submissions", zap.Error(err))
	}

	if pending.Empty() {
		fmt.Println("No new CVs to process.")
		return
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		if !confirm(len(pending.Documents), pending.Skipped) {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	summary, runErr := runner.Run(ctx, config.SubmissionsDir)

	if err := recorder.WriteTextfile(config.MetricsFile); err != nil {
		logger.Warn("writing metrics", zap.Error(err))
	}

	if summary != nil {
		printSummary(os.Stdout, summary)
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		logger.Warn("interrupted, remaining documents will be picked up by the next run")
	default:
		logger.Fatal("run aborted", zap.Error(runErr))
	}
}

func confirm(pending, skipped int) bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Score %d new document(s), %d already processed", pending, skipped),
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err == nil
}

func printSummary(w io.Writer, s *pipeline.Summary) {
	if s.NothingToDo {
		fmt.Fprintln(w, "No new CVs to process.")
		return
	}

	fmt.Fprintf(w, "\nProcessed %d new CVs\n", s.Processed)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d already processed\n", s.Skipped)
	}
	if len(s.Errors) > 0 {
		fmt.Fprintf(w, "Failed %d:\n", len(s.Errors))
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s: %s (%v)\n", e.Filename, e.Kind, e.Err)
		}
	}
	if s.Cancelled {
		fmt.Fprintln(w, "Run was interrupted")
	}
	fmt.Fprintf(w, "Results saved to %s\n", s.Output)
}

func scorerSettings(config *Config) (ai.Settings, error) {
	settings := ai.Settings{
		Provider:    strings.TrimSpace(strings.ToLower(config.AI.Provider)),
		Timeout:     config.Timeout,
		Temperature: config.Temperature,
	}

	switch settings.Provider {
	case "", ai.ProviderOpenAI:
		cfg := config.AI.OpenAI
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   []string{"OPENAI_CUSTOM_API_KEY"},
		})
		if err != nil {
			return settings, err
		}
		settings.Provider = ai.ProviderOpenAI
		settings.APIKey = apiKey
		settings.Endpoint = cfg.BaseURL
		settings.Model = cfg.Model
		settings.MaxTokens = cfg.MaxTokens
	case ai.ProviderGemini:
		cfg := config.AI.Gemini
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   []string{"GEMINI_API_KEY"},
		})
		if err != nil {
			return settings, err
		}
		settings.APIKey = apiKey
		settings.Model = cfg.Model
		settings.MaxRetries = cfg.MaxRetries
		settings.MaxLogLen = cfg.MaxLogLength
	default:
		return settings, fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
	}

	return settings, nil
}

func newScorer(ctx context.Context, config *Config, logger *zap.Logger) (ai.Scorer, error) {
	settings, err := scorerSettings(config)
	if err != nil {
		return nil, err
	}

	if settings.Provider == ai.ProviderGemini {
		scorer, err := gemini.New(ctx, settings, logger)
		if err != nil {
			return nil, err
		}
		return scorer, nil
	}

	client, err := openai.New(settings, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// redacted returns a copy of the config safe to log.
func redacted(config *Config) Config {
	out := *config
	aiConfig := *config.AI
	openAI := *config.AI.OpenAI
	gem := *config.AI.Gemini
	if openAI.APIKey != "" {
		openAI.APIKey = "***"
	}
	if gem.APIKey != "" {
		gem.APIKey = "***"
	}
	aiConfig.OpenAI = &openAI
	aiConfig.Gemini = &gem
	out.AI = &aiConfig
	return out
}
