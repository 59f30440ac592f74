package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/pogo-pad/internal/config"
	"github.com/MeKo-Tech/pogo-pad/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pogo-pad",
	Short: "Click recognized text out of scans into a text editor",
	Long: `pogo-pad loads scanned images and PDF pages, recognizes the text regions on
them and lets you copy a region's text into an editor by clicking it.

Recognition engines:
- sidecar:   read regions recorded next to the input (<file>.regions.yaml)
- remote:    send the page to a pogo OCR server
- pdftext:   read the text layer of a PDF page
- tesseract: local tesseract (build with -tags tesseract)

Examples:
  pogo-pad edit scan.png
  pogo-pad regions scan.png --at 120,48
  pogo-pad serve --port 8090`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupLogging(cmd.ErrOrStderr(), cfg)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/pogo-pad, /etc/pogo-pad)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("engine", "e", "", "recognition engine (sidecar, remote, pdftext, tesseract)")
	rootCmd.PersistentFlags().StringSliceP("languages", "l", nil, "recognition languages as BCP 47 tags, e.g. ja,en")

	bindFlags()
}

// bindFlags binds the global flags to viper keys.
func bindFlags() {
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("recognition.engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("recognition.languages", rootCmd.PersistentFlags().Lookup("languages"))
}

// loadConfig reads the config file, environment and bound flags.
func loadConfig() (*config.Config, error) {
	configLoader = config.NewLoader()
	cfg, err := configLoader.LoadWithFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, nil
}

// GetConfig returns the configuration including CLI flag overrides.
func GetConfig() (*config.Config, error) {
	return loadConfig()
}

func setupLogging(w io.Writer, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	// Logs go to stderr; stdout carries command output.
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}
