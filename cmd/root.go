package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reshare/internal/config"
	"reshare/internal/coordinator"
	"reshare/internal/transport"
	"reshare/internal/ui"
	"reshare/pkg/logging"
)

var (
	cfg     *config.Config
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reshare",
	Short: "reshare - share files through a small HTTP server",
	Long: `reshare uploads files to a reshare server and downloads them back.

Files are public unless uploaded with a key phrase; private files are only
listed and served under the same key phrase.

Usage:
  Configure server: reshare conf --server-url http://localhost:8080
  List files:       reshare ls
  Upload files:     reshare put file1 file2
  Download files:   reshare get --dst ./downloads file1
  Run the server:   reshare serve --addr :8080 --storage ./storage`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(debug, logrus.WarnLevel)

		// Initialize viper configuration
		initConfig()

		var err error
		cfg, err = config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/reshare/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Int("parallel", 0, "maximum number of concurrent transfers (0 = all at once)")
	rootCmd.PersistentFlags().Int("workers", 0, "number of blocking I/O workers (0 = number of CPUs)")

	viper.BindPFlag("transfer.parallel", rootCmd.PersistentFlags().Lookup("parallel"))
	viper.BindPFlag("transfer.workers", rootCmd.PersistentFlags().Lookup("workers"))

	config.SetDefaults(viper.GetViper())

	// Set up viper environment variable support
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		path, err := config.DefaultFile()
		if err != nil {
			logging.Log.Warnf("Could not resolve config directory: %v", err)
			return
		}
		viper.SetConfigFile(path)
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		logging.Log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else {
		logging.Log.Debugf("No config file loaded: %v", err)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// createContext creates a context that cancels on interrupt signals
func createContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	return ctx
}

// createClient validates the client configuration and creates the HTTP client
func createClient() (*transport.Client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return transport.NewClient(cfg.Client.ServerURL, nil)
}

// createOrchestrator creates an orchestrator rendering progress for operation
func createOrchestrator(operation string) *coordinator.Orchestrator {
	return coordinator.NewOrchestrator(coordinator.Options{
		Parallel: cfg.Transfer.Parallel,
		Display:  ui.NewProgressDisplay(operation),
	})
}

func addKeyPhraseFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "key-phrase", "k", "", "key phrase of a private namespace")
}
