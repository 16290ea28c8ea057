package cli

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/domainlink"
)

var (
	linkCID    string
	linkDomain string
	linkCopy   string
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Show the DNS records that point a domain at a deployment",
	Long: `Prompts for a domain and prints the A and DNSLink TXT records to add at
your DNS provider. Without --cid the most recent deployment is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		cid := linkCID
		if cid == "" {
			latest, err := a.DB.GetDeployments(0, 1)
			if err != nil {
				return fmt.Errorf("loading deployments: %w", err)
			}
			if len(latest) == 0 {
				return errors.New("nothing deployed yet; run dehost deploy first")
			}
			cid = latest[0].ContentID
		}

		dialog := domainlink.NewDialog(domainlink.LogRegistrar{Logger: a.Logger.Named("domainlink")})
		if err := dialog.Open(cid); err != nil {
			return err
		}
		defer dialog.Close()

		domain := linkDomain
		if domain == "" {
			prompt := promptui.Prompt{
				Label:    "Domain name",
				Validate: domainlink.Validate,
			}
			domain, err = prompt.Run()
			if err != nil {
				return fmt.Errorf("domain prompt: %w", err)
			}
		}

		dialog.Change(domain)
		advanced, err := dialog.Submit(cmd.Context())
		if !advanced {
			return errors.New(dialog.State().Error)
		}
		if err != nil {
			a.Logger.Warn("Domain registrar failed", zap.String("domain", domain), zap.Error(err))
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Add these records at your DNS provider for %s:\n", domain)
		for _, r := range dialog.Records() {
			fmt.Fprintln(out, renderRecord(r))
		}
		fmt.Fprintln(out, hintStyle.Render("DNS changes can take up to 48 hours to propagate."))

		if linkCopy != "" {
			text, err := dialog.CopyText(domainlink.RecordKind(linkCopy))
			if err != nil {
				return err
			}
			copyToClipboard(out, text)
		}
		return nil
	},
}

func init() {
	linkCmd.Flags().StringVar(&linkCID, "cid", "", "content ID to link (default: latest deployment)")
	linkCmd.Flags().StringVarP(&linkDomain, "domain", "d", "", "domain to link; prompts when empty")
	linkCmd.Flags().StringVar(&linkCopy, "copy", "", "copy a record to the clipboard (a or txt)")
	rootCmd.AddCommand(linkCmd)
}
