// Package cli implements the dehost command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/RichardoC/dehost/internal/app"
	"github.com/RichardoC/dehost/internal/config"
	"github.com/RichardoC/dehost/internal/deploy"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dehost",
	Short: "Chat up a single-page site and host it on IPFS",
	Long: `DeHost serves an AI assistant that writes single-file HTML sites,
deploys the latest one to IPFS through Lighthouse and prints the DNS
records needed to point a custom domain at it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line. Errors the terminal notifier has already
// shown are not printed again.
func Execute() error {
	err := rootCmd.Execute()
	printError(os.Stderr, err)
	return err
}

func printError(w io.Writer, err error) {
	var reported *deploy.Error
	if err == nil || errors.As(err, &reported) {
		return
	}
	fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "dehost.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	return cfg, nil
}

// newApp wires the services for a one-shot command. Notifications go to the terminal.
func newApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.WithNotifier(newTerminalNotifier(cmd.OutOrStdout())))
}
