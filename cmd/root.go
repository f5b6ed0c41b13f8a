package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/evaluation"
	"github.com/spigell/cv-screener/internal/server"
	"github.com/spigell/cv-screener/internal/storage"
)

const (
	app       = "cv-screener"
	envPrefix = "CV_SCREENER"
)

type Config struct {
	AI         *AIConfig            `mapstructure:"ai"`
	Evaluation *EvaluationConfig    `mapstructure:"evaluation"`
	Thresholds candidate.Thresholds `mapstructure:"thresholds"`
	Batch      *BatchConfig         `mapstructure:"batch"`
	Storage    *StorageConfig       `mapstructure:"storage"`
	Notify     *NotifyConfig        `mapstructure:"notify"`
	Server     server.Config        `mapstructure:"server"`
	PDFToText  string               `mapstructure:"pdftotext"`
}

type AIConfig struct {
	Provider     string           `mapstructure:"provider"`
	MaxRetries   int              `mapstructure:"max-retries"`
	MaxLogLength int              `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig    `mapstructure:"gemini"`
	Anthropic    *AnthropicConfig `mapstructure:"anthropic"`
	Vertex       *VertexConfig    `mapstructure:"vertex"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

type AnthropicConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type VertexConfig struct {
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
	Model    string `mapstructure:"model"`
}

type EvaluationConfig struct {
	Timeout     time.Duration      `mapstructure:"timeout"`
	RoleTimeout time.Duration      `mapstructure:"role-timeout"`
	Weights     evaluation.Weights `mapstructure:"weights"`
}

type BatchConfig struct {
	MaxConcurrency int `mapstructure:"max-concurrency"`
}

type StorageConfig struct {
	Backend    string             `mapstructure:"backend"`
	Dir        string             `mapstructure:"dir"`
	Bucket     string             `mapstructure:"bucket"`
	Containers storage.Containers `mapstructure:"containers"`
}

type NotifyConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	DryRun          bool    `mapstructure:"dry-run"`
	CredentialsFile string  `mapstructure:"credentials-file"`
	TokenFile       string  `mapstructure:"token-file"`
	From            string  `mapstructure:"from"`
	RatePerSecond   float64 `mapstructure:"rate-per-second"`
	CalendarID      string  `mapstructure:"calendar-id"`
	TimeZone        string  `mapstructure:"time-zone"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-screener scores resumes against a job description and helps to review the results",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	setDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The default config file is optional, an explicit one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func setDefaults() {
	th := candidate.DefaultThresholds()
	w := evaluation.DefaultWeights()
	containers := storage.DefaultContainers()

	defaults := map[string]any{
		"ai.provider":                      providerGemini,
		"ai.max-retries":                   3,
		"ai.max-log-length":                200,
		"ai.gemini.api-key":                "",
		"ai.gemini.api-key-file":           "",
		"ai.gemini.model":                  "",
		"ai.gemini.embedding-model":        "",
		"ai.anthropic.api-key":             "",
		"ai.anthropic.api-key-file":        "",
		"ai.anthropic.model":               "",
		"ai.vertex.project":                "",
		"ai.vertex.location":               "",
		"ai.vertex.model":                  "",
		"evaluation.timeout":               "60s",
		"evaluation.role-timeout":          "20s",
		"evaluation.weights.skills":        w.Skills,
		"evaluation.weights.domain":        w.Domain,
		"evaluation.weights.experience":    w.Experience,
		"evaluation.weights.jd-similarity": w.JDSimilarity,
		"thresholds.jd-similarity":         th.JDSimilarity,
		"thresholds.skills":                th.Skills,
		"thresholds.domain":                th.Domain,
		"thresholds.experience":            th.Experience,
		"thresholds.final-score":           th.FinalScore,
		"batch.max-concurrency":            0,
		"storage.backend":                  storageLocal,
		"storage.dir":                      "cv-screener-data",
		"storage.bucket":                   "",
		"storage.containers.resumes":       containers.Resumes,
		"storage.containers.exports":       containers.Exports,
		"storage.containers.reports":       containers.Reports,
		"notify.enabled":                   false,
		"notify.dry-run":                   false,
		"notify.credentials-file":          "credentials.json",
		"notify.token-file":                "token.json",
		"notify.from":                      "",
		"notify.rate-per-second":           1.0,
		"notify.calendar-id":               "primary",
		"notify.time-zone":                 "",
		"server.addr":                      ":8080",
		"pdftotext":                        "pdftotext",
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
