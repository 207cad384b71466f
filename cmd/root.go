package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hr-mailroom"

	defaultPollIntervalSeconds = 30
	defaultSessionResetCycles  = 50
)

type Config struct {
	Backend   *BackendConfig `mapstructure:"backend"`
	Gmail     *GmailConfig   `mapstructure:"gmail"`
	Mailboxes *MailboxConfig `mapstructure:"mailboxes"`
	Poll      *PollConfig    `mapstructure:"poll"`
	AI        *AIConfig      `mapstructure:"ai"`
}

type BackendConfig struct {
	URL          string `mapstructure:"url"`
	Email        string `mapstructure:"email"`
	PasswordFile string `mapstructure:"password-file"`
}

type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials-file"`
	TokenFile       string `mapstructure:"token-file"`
}

type MailboxConfig struct {
	Candidates string `mapstructure:"candidates"`
	Positions  string `mapstructure:"positions"`
}

type PollConfig struct {
	IntervalSeconds    int `mapstructure:"interval-seconds"`
	SessionResetCycles int `mapstructure:"session-reset-cycles"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hr-mailroom routes Hellio's HR mailboxes into drafts and notifications for human review",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"backend.url":               "HELLIO_API_URL",
		"backend.email":             "HELLIO_API_EMAIL",
		"backend.password-file":     "HELLIO_API_PASSWORD_FILE",
		"mailboxes.candidates":      "MAILROOM_CANDIDATES_ADDRESS",
		"mailboxes.positions":       "MAILROOM_POSITIONS_ADDRESS",
		"poll.interval-seconds":     "POLL_INTERVAL",
		"poll.session-reset-cycles": "SESSION_RESET_CYCLES",
		"ai.gemini.api-key-file":    "GEMINI_API_KEY_FILE",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("poll.interval-seconds", defaultPollIntervalSeconds)
	viper.SetDefault("poll.session-reset-cycles", defaultSessionResetCycles)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hr-mailroom.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the run and review commands.
	if runCmd.CalledAs() == "" && reviewCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// Everything essential can arrive via environment variables, so a
	// missing config file is fine; a malformed one is not.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	return config, nil
}
