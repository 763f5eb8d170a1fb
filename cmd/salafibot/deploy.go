package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salafibot/salafibot/internal/svc"
	"github.com/salafibot/salafibot/internal/syncer"
	"github.com/salafibot/salafibot/internal/types"
)

// DeployCmd creates the deploy command
func DeployCmd() *cobra.Command {
	var (
		global  bool
		command string
		dedup   bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy slash command definitions to Discord",
		Long: `Loads the module tree and pushes the command definitions to Discord.

  salafibot deploy                    replace every guild command
  salafibot deploy --global           replace every global command
  salafibot deploy --command ping     redeploy one command
  salafibot deploy --dedup            only add commands Discord does not have`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if command != "" && dedup {
				return errors.New("--command and --dedup cannot be combined")
			}
			return runDeploy(cmd.Context(), command, global, dedup)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "deploy to all servers instead of the configured guild")
	cmd.Flags().StringVar(&command, "command", "", "deploy a single command by name")
	cmd.Flags().BoolVar(&dedup, "dedup", false, "skip commands that are already deployed")
	return cmd
}

func runDeploy(ctx context.Context, command string, global, dedup bool) error {
	c, err := adminClient()
	if err != nil {
		return err
	}
	if c != nil {
		var resp *types.DeployResponse
		if command != "" {
			resp, err = c.DeployCommand(ctx, command, global)
		} else {
			resp, err = c.DeployAll(ctx, global, dedup)
		}
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	}

	return withService(func(s *svc.ServiceContext) error {
		cfg := s.Config
		cfg.Discord.Token = s.Token
		if err := cfg.ValidateRemote(global); err != nil {
			return err
		}
		if _, err := s.Admin.Bootstrap(ctx); err != nil {
			return err
		}

		if command != "" {
			fmt.Printf("Deploying command %q...\n", command)
		} else {
			fmt.Println("Started refreshing application (/) commands.")
		}

		deploy := func() (string, error) {
			if command != "" {
				res, err := s.Admin.Deploy(ctx, command, global)
				if err != nil {
					return "", err
				}
				return res.Message(), nil
			}
			res, err := s.Admin.DeployAll(ctx, global, dedup)
			if err != nil {
				return "", err
			}
			return res.Message(), nil
		}

		msg, err := deploy()
		if err != nil {
			if syncer.IsKind(err, syncer.KindTimeout) {
				fmt.Println("Discord did not answer in time; the deployment may still have been applied.")
			}
			return err
		}
		fmt.Println(msg)
		return nil
	})
}
