package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reshare/internal/config"
	"reshare/internal/ui"
)

type ConfFlags struct {
	ServerURL string
}

var confFlags ConfFlags

// confCmd represents the conf command
var confCmd = &cobra.Command{
	Use:   "conf",
	Short: "Configure the server address",
	Long: `Store the address of the reshare server used by ls, put and get.

The address is asked for interactively when --server-url is not given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConf(&confFlags)
	},
}

func init() {
	rootCmd.AddCommand(confCmd)

	confCmd.Flags().StringVarP(&confFlags.ServerURL, "server-url", "s", "", "server address, e.g. http://localhost:8080")
}

func runConf(flags *ConfFlags) error {
	console := ui.NewConsoleUI()

	serverURL := flags.ServerURL
	if serverURL == "" {
		var err error
		serverURL, err = console.InputServerURL(createContext(), config.ValidateServerURL)
		if err != nil {
			return fmt.Errorf("failed to read server address: %w", err)
		}
	}

	path, err := config.SaveServerURL(viper.GetViper(), serverURL)
	if err != nil {
		return err
	}

	console.ShowMessage(fmt.Sprintf("Configuration successful (%s)", path))
	return nil
}
