package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	devConfig "github.com/idowu-gb/MAD-Project/dev/config"
	"github.com/idowu-gb/MAD-Project/server"
	"github.com/idowu-gb/MAD-Project/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serverConfigFile string

func init() {
	rootCmd.AddCommand(createServerCmd())
	rootCmd.PersistentFlags().StringVar(&serverConfigFile, "config", "", "server config file (required unless --dev is set)")
}

func createServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start a safetrip server",
		Long: `The safetrip server exposes the trips, contacts & panic alert API,
live views over websockets, and sends SMS alerts to emergency contacts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := serverConfig()
			if err != nil {
				return err
			}

			server.Start(config, isDevEnv)
			return nil
		},
	}
}

// serverConfig reads the server config file. In dev mode, 'dev/config/server.yml'
// is used and created with dev defaults when missing.
func serverConfig() (*viper.Viper, error) {
	config := viper.New()

	if isDevEnv {
		configFilePath, err := devConfigFilePath()
		if err != nil {
			return nil, err
		}
		serverConfigFile = configFilePath
	}

	if serverConfigFile == "" {
		return nil, formattedError("must set '--config' to the server config file, or run with '--dev'")
	}

	config.SetConfigFile(serverConfigFile)

	// Secrets can come from the environment (or a .env file) instead of the config file.
	// FYI: The env var overrides whatever is in the config file
	config.BindEnv("safetrip.privateKeyPem", "SAFETRIP_PRIVATE_KEY_PEM")
	config.BindEnv("sqlite.passPhrase", "SAFETRIP_SQLITE_PASSPHRASE")
	config.BindEnv("database.dsn", "SAFETRIP_DATABASE_DSN")
	config.BindEnv("google.applicationCredentials", "GOOGLE_APPLICATION_CREDENTIALS")
	config.BindEnv("twilio.accountSid", "TWILIO_ACCOUNT_SID")
	config.BindEnv("twilio.authToken", "TWILIO_AUTH_TOKEN")

	config.AutomaticEnv() // read in environment variables that match

	if err := config.ReadInConfig(); err != nil {
		return nil, formattedError("error reading server config file: %v", err)
	}

	fmt.Fprintln(os.Stderr, "Using config file:", config.ConfigFileUsed())
	return config, nil
}

func devConfigFilePath() (string, error) {
	configDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	configDir = filepath.Join(configDir, "dev", "config")
	configFilePath := filepath.Join(configDir, "server.yml")
	if utils.FileExist(configFilePath) {
		return configFilePath, nil
	}

	if err := utils.CreateDirIfNotExist(configDir); err != nil {
		return "", err
	}

	fmt.Fprintln(os.Stderr, warningLabel, "creating dev config", configFilePath)
	if err := os.WriteFile(configFilePath, []byte(devConfig.SERVER_YML), 0600); err != nil {
		return "", err
	}

	return configFilePath, nil
}
