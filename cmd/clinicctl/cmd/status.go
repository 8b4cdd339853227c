package cmd

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-clinic-client/token"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Display the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := a.client.Session()
			pterm.DefaultSection.Println("Session")
			if !snap.IsAuthenticated() {
				pterm.Info.Println("Not signed in")
				return nil
			}

			tok, err := a.client.TokenSource().Token()
			if err != nil {
				return err
			}
			expiry := "unknown"
			if !tok.Expiry.IsZero() {
				expiry = tok.Expiry.Format(time.RFC1123)
			}
			state := "valid"
			if token.IsExpired(tok.AccessToken) {
				state = "expired, renewed on next request"
			}

			data := pterm.TableData{
				{"User", snap.User.DisplayName()},
				{"ID", snap.User.ID},
				{"Email", snap.User.Email},
				{"Roles", strings.Join(snap.User.RoleStrings(), ", ")},
				{"Access token", state},
				{"Expires", expiry},
			}
			return pterm.DefaultTable.WithData(data).Render()
		},
	}
}
