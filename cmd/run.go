package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/hellio/hr-mailroom/internal/ai"
	"github.com/hellio/hr-mailroom/internal/ai/gemini"
	"github.com/hellio/hr-mailroom/internal/hellio"
	"github.com/hellio/hr-mailroom/internal/logger"
	"github.com/hellio/hr-mailroom/internal/mail"
	"github.com/hellio/hr-mailroom/internal/poller"
	"github.com/hellio/hr-mailroom/internal/secrets"
	"github.com/hellio/hr-mailroom/internal/workflow"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mailroom polling daemon",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// run is the daemon entrypoint: wire the gateway, backend client, composer,
// engine and scheduler, then poll until a shutdown signal arrives. Shutdown
// is honored between cycles; an in-flight message always drains first.
func run(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hr-mailroom", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if err := validateConfig(config); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	backend, err := newBackendClient(config, logger)
	if err != nil {
		logger.Fatal("building backend client",
			zap.Error(err),
			zap.String("hint", "set HELLIO_API_PASSWORD_FILE or the 'backend.password-file' key in the configuration file"),
		)
	}

	gateway, err := mail.NewGmailGateway(ctx, config.Gmail.CredentialsFile, config.Gmail.TokenFile, logger)
	if err != nil {
		logger.Fatal("building gmail gateway", zap.Error(err))
	}

	composer, err := newComposer(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("running without the draft composer", zap.Error(err))
	}

	logger.Info("monitoring mailboxes",
		zap.String("candidates", config.Mailboxes.Candidates),
		zap.String("positions", config.Mailboxes.Positions),
		zap.Int("poll_interval_seconds", config.Poll.IntervalSeconds),
	)

	engine := workflow.NewEngine(
		gateway,
		backend,
		composer,
		config.Mailboxes.Candidates,
		config.Mailboxes.Positions,
		logger,
	)

	var resetter poller.Resetter
	if composer != nil {
		resetter = composer
	}

	scheduler := poller.New(
		engine,
		resetter,
		backend,
		time.Duration(config.Poll.IntervalSeconds)*time.Second,
		config.Poll.SessionResetCycles,
		logger,
	)

	if err := scheduler.Run(ctx); err != nil {
		logger.Fatal("poll loop failed", zap.Error(err))
	}

	logger.Info("hr-mailroom stopped")
}

func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is required")
	}
	if config.Backend == nil || config.Backend.URL == "" || config.Backend.Email == "" {
		return fmt.Errorf("backend url and email are required")
	}
	if config.Gmail == nil || config.Gmail.CredentialsFile == "" || config.Gmail.TokenFile == "" {
		return fmt.Errorf("gmail credentials-file and token-file are required")
	}
	if config.Mailboxes == nil || config.Mailboxes.Candidates == "" || config.Mailboxes.Positions == "" {
		return fmt.Errorf("both monitored mailbox addresses are required")
	}
	if config.Poll == nil || config.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

func newBackendClient(config *Config, logger *zap.Logger) (*hellio.Client, error) {
	password, err := secrets.Load(secrets.Source{
		Name: "backend password",
		File: config.Backend.PasswordFile,
	})
	if err != nil {
		return nil, err
	}

	return hellio.New(config.Backend.URL, config.Backend.Email, password, logger), nil
}

// newComposer builds the optional Gemini draft composer. Returns (nil, nil)
// when the feature is disabled.
func newComposer(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Composer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	composerLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
	)

	composer, err := gemini.NewComposer(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, cfg.Gemini.MaxLogLength, composerLogger)
	if err != nil {
		return nil, err
	}

	return composer, nil
}
