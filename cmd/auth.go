package cmd

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/notify"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize gmail and calendar access and cache the oauth token",
	Run: func(_ *cobra.Command, _ []string) {
		authorize()
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func authorize() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config.Notify == nil {
		logger.Fatal("notify configuration is required")
	}

	oauthCfg, err := notify.OAuthConfig(config.Notify.CredentialsFile)
	if err != nil {
		logger.Fatal("loading oauth credentials", zap.Error(err))
	}

	if err := notify.Authorize(context.Background(), oauthCfg, config.Notify.TokenFile, os.Stdin, os.Stdout); err != nil {
		logger.Fatal("authorizing", zap.Error(err))
	}
	logger.Info("token saved", zap.String("filename", config.Notify.TokenFile))
}
