package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/avatarstream/internal/account"
	"github.com/dkeye/avatarstream/internal/config"
	"github.com/dkeye/avatarstream/internal/streaming"
)

var (
	cfgFile    string
	outputJSON bool
	verbose    bool

	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "avatarctl",
	Short: "Streaming avatar CLI tool",
	Long: `avatarctl - a command line interface for the streaming avatar service.

The API key is read from AVATAR_API_KEY (or api_key in the config file).

Examples:
  # Issue a token for a browser host
  avatarctl token

  # Make an avatar say something and keep the session up for 10 seconds
  avatarctl talk --avatar Wayne_20240711 --text "Hello there" --hold 10s

  # Stream a recording as the user's voice
  avatarctl talk --avatar Wayne_20240711 --wav question.wav --hold 30s`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config/config.$CONFIG_ENV.yaml)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(avatarsCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(talkCmd)
}

func initConfig() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	_ = godotenv.Load()

	var err error
	if cfgFile != "" {
		globalConfig, err = config.LoadFile(cfgFile)
	} else {
		globalConfig, err = config.Load()
	}
	if err != nil {
		return err
	}
	if !verbose {
		if lvl, err := zerolog.ParseLevel(globalConfig.LogLevel); err == nil && lvl > zerolog.InfoLevel {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	return nil
}

func requireAPIKey() (*config.Config, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	if globalConfig.APIKey == "" {
		return nil, fmt.Errorf("no API key: set AVATAR_API_KEY or api_key in the config file")
	}
	return globalConfig, nil
}

func keyedClient(cfg *config.Config) *streaming.Client {
	return streaming.New(
		streaming.WithBaseURL(cfg.APIBaseURL),
		streaming.WithAPIKey(cfg.APIKey),
	)
}

func accountClient(cfg *config.Config) *account.Client {
	return account.New(cfg.APIKey,
		account.WithBaseURL(cfg.APIBaseURL),
		account.WithUploadURL(cfg.UploadBaseURL),
	)
}

func outputResult(result any) error {
	return writeResult(os.Stdout, result, outputJSON)
}

func writeResult(w io.Writer, result any, asJSON bool) error {
	var (
		data []byte
		err  error
	)
	if asJSON {
		data, err = json.MarshalIndent(result, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}
