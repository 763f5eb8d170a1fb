package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salafibot/salafibot/internal/defaults"
)

// InitCmd creates the data directory seeding command
func InitCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory with the bundled commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ServerConfig.DataDir
			if reset {
				if err := defaults.Reset(dir); err != nil {
					return err
				}
				files, err := defaults.ListDefaults()
				if err != nil {
					return err
				}
				for _, f := range files {
					if f != defaults.ConfigDocument {
						fmt.Printf("  restored %s\n", f)
					}
				}
				fmt.Printf("Bundled commands restored in %s (catalog kept)\n", dir)
				return nil
			}
			if err := defaults.Seed(dir, false); err != nil {
				return err
			}
			fmt.Printf("Data directory: %s\n", dir)
			fmt.Printf("Commands:       %s\n", ServerConfig.Commands.Dir)
			fmt.Printf("Catalog:        %s\n", ServerConfig.Store.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "overwrite bundled command files with the shipped versions")
	return cmd
}
