package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/RichardoC/dehost/internal/ipfs"
)

var shareCopy bool

var shareCmd = &cobra.Command{
	Use:   "share [TEXT]",
	Short: "Upload text to IPFS and print its gateway URL",
	Long:  `Uploads TEXT, or standard input when TEXT is "-" or omitted, as a file on IPFS.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := shareText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("nothing to share: text is empty")
		}

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		bar := progressbar.DefaultBytes(-1, "Uploading")
		res, err := a.Sharer.Share(cmd.Context(), text, ipfs.WithProgress(bar))
		_ = bar.Finish()
		if err != nil {
			return err
		}

		if shareCopy {
			copyToClipboard(cmd.OutOrStdout(), res.ViewURL)
		}
		return nil
	},
}

func shareText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func init() {
	shareCmd.Flags().BoolVar(&shareCopy, "copy", false, "copy the gateway URL to the clipboard")
	rootCmd.AddCommand(shareCmd)
}
