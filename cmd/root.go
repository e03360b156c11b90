package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-scorer/internal/ai"
	"github.com/spigell/cv-scorer/internal/criteria"
	"github.com/spigell/cv-scorer/internal/store"
)

const (
	app = "cv-scorer"

	defaultSubmissionsDir = "submissions"
	defaultMaxRetries     = 3
	defaultMaxLogLength   = 200
)

type Config struct {
	SubmissionsDir string        `mapstructure:"submissions-dir"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Temperature    float64       `mapstructure:"temperature"`
	ValidateTotal  bool          `mapstructure:"validate-total"`
	MetricsFile    string        `mapstructure:"metrics-file"`
	Store          *StoreConfig  `mapstructure:"store"`
	AI             *AIConfig     `mapstructure:"ai"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	OpenAI   *OpenAIConfig `mapstructure:"openai"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	BaseURL    string `mapstructure:"base-url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxTokens  int    `mapstructure:"max-tokens"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
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
		Short: "cv-scorer scores résumés against configurable criteria with a language model and keeps the results in a resumable store",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-scorer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("store-backend", "", "result store backend: csv or sqlite")
	rootCmd.PersistentFlags().String("store-path", "", "result store location")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("store.backend", rootCmd.PersistentFlags().Lookup("store-backend"))
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store-path"))

	if err := viper.BindEnv("ai.openai.base-url", "OPENAI_CUSTOM_API_BASE"); err != nil {
		log.Fatalf("binding OPENAI_CUSTOM_API_BASE environment variable: %v", err)
	}

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("submissions-dir", defaultSubmissionsDir)
	viper.SetDefault("timeout", ai.DefaultTimeout)
	viper.SetDefault("temperature", ai.DefaultTemperature)
	viper.SetDefault("store.backend", store.BackendCSV)
	viper.SetDefault("ai.provider", ai.ProviderOpenAI)
	viper.SetDefault("ai.openai.max-tokens", ai.DefaultMaxTokens)
	viper.SetDefault("ai.gemini.max-retries", defaultMaxRetries)
	viper.SetDefault("ai.gemini.max-log-length", defaultMaxLogLength)
}

func initConfig() {
	// .env is optional; the variables it holds are read through viper and secrets.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without --config the file is optional and the defaults apply.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Store == nil {
		config.Store = &StoreConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.OpenAI == nil {
		config.AI.OpenAI = &OpenAIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}

func getSchema(config *Config) (*criteria.Schema, error) {
	var opts []criteria.Option
	if config.ValidateTotal {
		opts = append(opts, criteria.WithTotalCheck(0))
	}
	return criteria.Decode(viper.Get("criteria"), opts...)
}

func storePath(cfg *StoreConfig) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	if cfg.Backend == store.BackendSQLite {
		return store.DefaultSQLitePath
	}
	return store.DefaultCSVPath
}

func openStore(config *Config) (store.Store, error) {
	return store.Open(config.Store.Backend, storePath(config.Store))
}
