package cmd

import (
	"fmt"
	"os"

	"github.com/jrsteele09/go-clinic-client/internal/config"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree around a. The shell builds a fresh tree
// for every line it reads, all sharing one app.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "clinicctl",
		Short: "Clinic client command line",
		Long: `clinicctl signs in to the clinic backend and keeps the session between
invocations. API calls are retried once with a renewed token when the access
token has expired.

Configuration comes from the environment (or a .env file):

` + config.Usage(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
	}

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newGetCmd(a),
		newPostCmd(a),
		newVisitCmd(a),
		newRoutesCmd(a),
	)
	return root
}

// Execute runs the root command
func Execute() {
	a := &app{}
	root := newRootCmd(a)
	root.AddCommand(newShellCmd(a))

	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
