package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reshare/internal/config"
	"reshare/internal/index"
	"reshare/internal/server"
	"reshare/internal/storage"
	"reshare/internal/workpool"
	"reshare/pkg/logging"
)

const indexDirName = ".index"

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reshare server",
	Long: `Run the reshare HTTP server.

Uploaded files are stored under --storage with random names. The name index is
kept in memory by default; --index badger persists it next to the files so that
uploads survive a restart.

A .env file in the working directory is loaded first. PORT is honored when
--addr is not given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := config.NewDefaultConfig()
	serveCmd.Flags().String("addr", defaults.Server.Addr, "address to listen on")
	serveCmd.Flags().String("storage", defaults.Server.StoragePath, "directory for uploaded files")
	serveCmd.Flags().String("index", defaults.Server.Index, "name index backend: memory or badger")
	serveCmd.Flags().Int("server-workers", 0, "number of blocking I/O workers (0 = number of CPUs)")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.storage", serveCmd.Flags().Lookup("storage"))
	viper.BindPFlag("server.index", serveCmd.Flags().Lookup("index"))
	viper.BindPFlag("server.workers", serveCmd.Flags().Lookup("server-workers"))
}

func runServer(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// Reload so values from .env are visible
	serverCfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if port := os.Getenv("PORT"); port != "" && !cmd.Flags().Changed("addr") && os.Getenv(config.EnvPrefix+"_SERVER_ADDR") == "" {
		serverCfg.Server.Addr = ":" + port
	}
	if err := serverCfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !debug {
		logging.Log.SetLevel(logrus.InfoLevel)
	}
	log := logging.Component("serve")

	store, err := storage.NewLocal(serverCfg.Server.StoragePath)
	if err != nil {
		return err
	}

	idx, err := openIndex(serverCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := idx.Close(); err != nil {
			log.WithError(err).Error("Failed to close index")
		}
	}()

	pool := workpool.New(serverCfg.Server.Workers)
	defer pool.Close()

	log.WithFields(logrus.Fields{
		"storage": serverCfg.Server.StoragePath,
		"index":   serverCfg.Server.Index,
	}).Info("Starting server")

	return server.New(idx, store, pool).ListenAndServe(createContext(), serverCfg.Server.Addr)
}

func openIndex(c *config.Config) (index.Index, error) {
	if c.Server.Index == config.IndexBadger {
		return index.OpenBadger(filepath.Join(c.Server.StoragePath, indexDirName))
	}
	return index.NewMemory(), nil
}
