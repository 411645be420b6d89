package cmd

import (
	"github.com/spf13/cobra"

	"reshare/internal/app"
	"reshare/internal/ui"
	"reshare/internal/workpool"
	"reshare/pkg/types"
)

type PutFlags struct {
	KeyPhrase string
}

var putFlags PutFlags

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put FILE...",
	Short: "Upload files",
	Long: `Upload one or more files concurrently, each in its own request.

Every file is reported as OK or FAIL with a reason; a failed file does not stop
the others. Empty files are rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUploaderApp(args, &putFlags)
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
	addKeyPhraseFlag(putCmd, &putFlags.KeyPhrase)
}

// runUploaderApp creates and runs the uploader application
func runUploaderApp(paths []string, flags *PutFlags) error {
	client, err := createClient()
	if err != nil {
		return err
	}

	pool := workpool.New(cfg.Transfer.Workers)
	defer pool.Close()

	uploader := app.NewUploaderApp(client, pool, createOrchestrator("Uploading"), ui.NewConsoleUI())
	_, err = uploader.Run(createContext(), &app.UploadOptions{
		Paths:     paths,
		Namespace: types.NewNamespace(flags.KeyPhrase),
	})
	return err
}
