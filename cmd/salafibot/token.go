package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salafibot/salafibot/internal/keyring"
)

// TokenCmd creates the bot token management command
func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bot token in the OS keychain",
		Long: `The bot token is read from discord.token (DISCORD_TOKEN) first and from
the OS keychain otherwise. Store it once with 'salafibot token set'.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [token]",
		Short: "Store the bot token (reads stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !keyring.Available() {
				return errors.New("OS keychain is not available; set DISCORD_TOKEN instead")
			}
			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				fmt.Fprint(os.Stderr, "Bot token: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token is empty")
			}
			if err := keyring.Set(token); err != nil {
				return err
			}
			fmt.Println("Bot token stored in the OS keychain.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored bot token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keyring.Delete(); err != nil {
				return err
			}
			fmt.Println("Bot token removed.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show where the bot token comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ServerConfig.Discord.Token != "" {
				fmt.Println("Bot token: from configuration (DISCORD_TOKEN)")
				return nil
			}
			_, err := keyring.Get()
			switch {
			case err == nil:
				fmt.Println("Bot token: stored in the OS keychain")
			case errors.Is(err, keyring.ErrNotFound):
				fmt.Println("Bot token: not set")
			default:
				fmt.Printf("Bot token: keychain error: %v\n", err)
			}
			return nil
		},
	})

	return cmd
}
