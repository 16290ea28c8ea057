package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/RichardoC/dehost/internal/ipfs"
	"github.com/RichardoC/dehost/internal/models"
)

var (
	deployConversation int64
	deployFile         string
	deployCopy         bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the latest generated site to IPFS",
	Long: `Deploys the most recent complete HTML document from a conversation, or
from a file, to IPFS through Lighthouse and prints the gateway URL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (deployConversation == 0) == (deployFile == "") {
			return errors.New("exactly one of --conversation or --file is required")
		}

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		messages, err := deployMessages(a.DB.GetMessages)
		if err != nil {
			return err
		}

		bar := progressbar.DefaultBytes(-1, "Uploading")
		res, err := a.Deployer.Deploy(cmd.Context(), deployConversation, messages, ipfs.WithProgress(bar))
		_ = bar.Finish()
		if err != nil {
			// The notifier has already printed the reason.
			return err
		}

		if deployCopy {
			copyToClipboard(cmd.OutOrStdout(), res.ViewURL)
		}
		return nil
	},
}

// deployMessages loads the conversation, or treats the file as a single
// assistant reply so it goes through the same extraction.
func deployMessages(load func(int64) ([]models.Message, error)) ([]models.Message, error) {
	if deployFile == "" {
		messages, err := load(deployConversation)
		if err != nil {
			return nil, fmt.Errorf("loading conversation %d: %w", deployConversation, err)
		}
		return messages, nil
	}

	content, err := os.ReadFile(deployFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", deployFile, err)
	}
	return []models.Message{{Role: models.RoleAssistant, Content: string(content)}}, nil
}

func init() {
	deployCmd.Flags().Int64VarP(&deployConversation, "conversation", "c", 0, "conversation ID to deploy from")
	deployCmd.Flags().StringVarP(&deployFile, "file", "f", "", "HTML file to deploy")
	deployCmd.Flags().BoolVar(&deployCopy, "copy", false, "copy the gateway URL to the clipboard")
	rootCmd.AddCommand(deployCmd)
}
