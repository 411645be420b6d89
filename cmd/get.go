package cmd

import (
	"github.com/spf13/cobra"

	"reshare/internal/app"
	"reshare/internal/ui"
	"reshare/internal/workpool"
	"reshare/pkg/types"
)

type GetFlags struct {
	KeyPhrase string
	DestDir   string
}

var getFlags GetFlags

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get NAME...",
	Short: "Download files",
	Long: `Download one or more files concurrently into --dst.

Existing local files are never overwritten: a taken name is saved as name(1),
name(2) and so on.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownloaderApp(args, &getFlags)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	addKeyPhraseFlag(getCmd, &getFlags.KeyPhrase)
	getCmd.Flags().StringVarP(&getFlags.DestDir, "dst", "d", "", "destination directory (default is the working directory)")
}

// runDownloaderApp creates and runs the downloader application
func runDownloaderApp(names []string, flags *GetFlags) error {
	client, err := createClient()
	if err != nil {
		return err
	}

	pool := workpool.New(cfg.Transfer.Workers)
	defer pool.Close()

	downloader := app.NewDownloaderApp(client, pool, createOrchestrator("Downloading"), ui.NewConsoleUI())
	_, err = downloader.Run(createContext(), &app.DownloadOptions{
		Names:     names,
		Namespace: types.NewNamespace(flags.KeyPhrase),
		DestDir:   flags.DestDir,
	})
	return err
}
