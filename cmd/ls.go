package cmd

import (
	"github.com/spf13/cobra"

	"reshare/internal/app"
	"reshare/internal/ui"
	"reshare/pkg/types"
)

type LsFlags struct {
	KeyPhrase string
}

var lsFlags LsFlags

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List files on the server",
	Long:  `List the public files on the server, or the files of a private key phrase.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := createClient()
		if err != nil {
			return err
		}

		lister := app.NewListerApp(client, ui.NewConsoleUI())
		_, err = lister.Run(createContext(), types.NewNamespace(lsFlags.KeyPhrase))
		return err
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	addKeyPhraseFlag(lsCmd, &lsFlags.KeyPhrase)
}
