package cmd

import (
	"github.com/jrsteele09/go-clinic-client/gate"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newVisitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "visit <location>",
		Short: "Ask the route gate whether a location may be shown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.client.Visit(args[0])
			if d.State == gate.Loading {
				pterm.Info.Println("Session still loading")
			}
			return nil
		},
	}
}

func newRoutesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the client routes and who may see them",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := a.client.Session()
			data := pterm.TableData{{"PATTERN", "ACCESS", "YOU"}}
			for _, r := range gate.DefaultRoutes() {
				access := "signed in"
				switch {
				case r.Public:
					access = "public"
				case r.RequiredRole != "":
					access = string(r.RequiredRole)
				}

				you := "no"
				if d := a.client.Gate().Decide(snap, r.Pattern); d.State == gate.Render {
					you = "yes"
				}
				data = append(data, []string{r.Pattern, access, you})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
}
