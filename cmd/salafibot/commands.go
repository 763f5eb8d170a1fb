package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/svc"
)

// CommandsCmd creates the command catalog management command
func CommandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commands",
		Aliases: []string{"cmd"},
		Short:   "Manage the command catalog",
		Long: `Inspect and change the catalog of slash commands.

Without --server these commands edit the catalog document directly; pass
--server to act on a running bot so the change reaches its dispatch table.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all registered commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCommands(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print the number of registered commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCount(cmd.Context(), false)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enabled",
		Short: "Print the number of enabled commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCount(cmd.Context(), true)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get [name]",
		Short: "Show a command record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getCommand(cmd.Context(), args[0])
		},
	})

	var module string
	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Register a new enabled command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createCommand(cmd.Context(), args[0], module)
		},
	}
	create.Flags().StringVar(&module, "module", "", "owning module (category directory)")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "enable [name]",
		Short: "Enable a command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setEnabled(cmd.Context(), args[0], true)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disable [name]",
		Short: "Disable a command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setEnabled(cmd.Context(), args[0], false)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reload [name...]",
		Short: "Re-import commands from the module tree",
		Long: `Re-imports the named commands. With --server the running bot swaps in the
new implementations; without it the files are only checked for errors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reloadCommands(cmd.Context(), args)
		},
	})

	return cmd
}

// withService runs fn against an in-process service context. Log output is
// suppressed unless --verbose so it does not mix with command output.
func withService(fn func(*svc.ServiceContext) error) error {
	if !verbose {
		logging.Disable()
		defer logging.Enable()
	}
	s, err := newServiceContext()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func listCommands(ctx context.Context) error {
	c, err := adminClient()
	if err != nil {
		return err
	}

	var records []registry.Record
	if c != nil {
		resp, err := c.ListCommands(ctx)
		if err != nil {
			return err
		}
		records = resp.Commands
	} else {
		err := withService(func(s *svc.ServiceContext) error {
			records = s.Admin.List()
			return nil
		})
		if err != nil {
			return err
		}
	}

	if len(records) == 0 {
		fmt.Println("No commands registered.")
		fmt.Printf("\nCommands directory: %s\n", ServerConfig.Commands.Dir)
		return nil
	}

	enabled := 0
	fmt.Println("Registered commands:")
	for _, rec := range records {
		if rec.Enabled {
			enabled++
		}
		printRecord(rec)
	}
	fmt.Printf("\n%d commands, %d enabled\n", len(records), enabled)
	return nil
}

func printCount(ctx context.Context, enabledOnly bool) error {
	c, err := adminClient()
	if err != nil {
		return err
	}
	if c != nil {
		count := c.Count
		if enabledOnly {
			count = c.EnabledCount
		}
		n, err := count(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	}
	return withService(func(s *svc.ServiceContext) error {
		n := s.Admin.Count()
		if enabledOnly {
			n = s.Admin.EnabledCount()
		}
		fmt.Println(n)
		return nil
	})
}

func createCommand(ctx context.Context, name, module string) error {
	c, err := adminClient()
	if err != nil {
		return err
	}
	if c != nil {
		rec, err := c.CreateCommand(ctx, name, module)
		if err != nil {
			return err
		}
		printRecord(*rec)
		return nil
	}
	return withService(func(s *svc.ServiceContext) error {
		rec, err := s.Admin.Create(name, module)
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	})
}

func getCommand(ctx context.Context, name string) error {
	c, err := adminClient()
	if err != nil {
		return err
	}
	if c != nil {
		rec, err := c.GetCommand(ctx, name)
		if err != nil {
			return err
		}
		printRecord(*rec)
		return nil
	}
	return withService(func(s *svc.ServiceContext) error {
		rec, err := s.Admin.Get(name)
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	})
}

func setEnabled(ctx context.Context, name string, enabled bool) error {
	c, err := adminClient()
	if err != nil {
		return err
	}
	if c != nil {
		rec, err := c.SetEnabled(ctx, name, enabled)
		if err != nil {
			return err
		}
		printRecord(*rec)
		return nil
	}
	return withService(func(s *svc.ServiceContext) error {
		op := s.Admin.Disable
		if enabled {
			op = s.Admin.Enable
		}
		rec, err := op(name)
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	})
}

func reloadCommands(ctx context.Context, names []string) error {
	c, err := adminClient()
	if err != nil {
		return err
	}
	if c != nil {
		resp, err := c.Reload(ctx, names...)
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	}
	return withService(func(s *svc.ServiceContext) error {
		if _, err := s.Admin.Bootstrap(ctx); err != nil {
			return err
		}
		res, err := s.Admin.Reload(ctx, names...)
		if err != nil {
			return err
		}
		fmt.Println(res.Message())
		return nil
	})
}

func printRecord(rec registry.Record) {
	status := "\033[32m✓\033[0m"
	if !rec.Enabled {
		status = "\033[31m✗\033[0m"
	}
	module := rec.Module
	if module == "" {
		module = "-"
	}
	fmt.Printf("  %s %s (module: %s)\n", status, rec.Name, module)
}
