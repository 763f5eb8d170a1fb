package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/salafibot/salafibot/internal/client"
	"github.com/salafibot/salafibot/internal/config"
	"github.com/salafibot/salafibot/internal/defaults"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/svc"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile   string
	serverURL string
	verbose   bool
)

// ServerConfig holds the loaded configuration (set by main, finalised before
// each command runs)
var ServerConfig *config.Config

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	ServerConfig = c

	rootCmd := &cobra.Command{
		Use:   "salafibot",
		Short: "Salafibot - Discord command bot",
		Long: `Salafibot serves slash commands loaded from a module tree of Go
source files, keeps a catalog of which commands are enabled, and deploys their
definitions to Discord.

Run 'salafibot serve' to start the bot.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return finalizeConfig(ServerConfig)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <data dir>/salafibot.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "admin API of a running bot (e.g. http://127.0.0.1:8787)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add commands
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(CommandsCmd())
	rootCmd.AddCommand(DeployCmd())
	rootCmd.AddCommand(TokenCmd())
	rootCmd.AddCommand(InitCmd())

	return rootCmd
}

// finalizeConfig overlays the data dir config file and --config onto the
// embedded defaults, derives paths and configures logging.
func finalizeConfig(c *config.Config) error {
	if c.DataDir == "" {
		dir, err := defaults.DataDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if err := c.MergeFile(filepath.Join(c.DataDir, "salafibot.yaml")); err != nil {
		return err
	}
	if cfgFile != "" {
		if err := c.MergeFile(cfgFile); err != nil {
			return err
		}
	}
	if err := c.Resolve(); err != nil {
		return err
	}

	level := c.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.Configure(level, c.Logging.Development)
}

// newServiceContext seeds the data directory on first use and wires the
// components.
func newServiceContext() (*svc.ServiceContext, error) {
	if err := defaults.Seed(ServerConfig.DataDir, false); err != nil {
		return nil, err
	}
	return svc.NewServiceContext(*ServerConfig)
}

// adminClient returns a client for --server, or nil when the command should
// run in-process.
func adminClient() (*client.Client, error) {
	if serverURL == "" {
		return nil, nil
	}
	c, err := client.New(serverURL, ServerConfig.Admin.Secret)
	if err != nil {
		return nil, fmt.Errorf("--server: %w", err)
	}
	return c, nil
}
