package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-clinic-client/sessions"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// The refresh cookie only lives as long as the process, so a session that
// outlives its access token can only be renewed from inside one shell.
func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands against one long-lived client",
		RunE: func(cmd *cobra.Command, args []string) error {
			unsubscribe := a.client.Subscribe(func(s sessions.Snapshot) {
				if s.IsAuthenticated() {
					pterm.Info.Printf("session v%d: %s\n", s.Version, s.User.Email)
					return
				}
				pterm.Info.Printf("session v%d: signed out\n", s.Version)
			})
			defer unsubscribe()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.OutOrStdout(), "clinic> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.Fields(scanner.Text())
				if len(line) == 0 {
					continue
				}
				if line[0] == "exit" || line[0] == "quit" {
					return nil
				}

				sub := newRootCmd(a)
				sub.SetArgs(line)
				if err := sub.ExecuteContext(cmd.Context()); err != nil {
					pterm.Error.Println(err)
				}
			}
		},
	}
}
