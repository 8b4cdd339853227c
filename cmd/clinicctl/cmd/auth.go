package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/jrsteele09/go-clinic-client/auth"
	"github.com/jrsteele09/go-clinic-client/users"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const passwordEnv = "CLINIC_PASSWORD"

func newLoginCmd(a *app) *cobra.Command {
	var creds auth.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Password == "" {
				creds.Password = os.Getenv(passwordEnv)
			}
			if err := a.client.Login(cmd.Context(), creds); err != nil {
				return describeAuthError(err)
			}
			user := a.client.Session().User
			pterm.Success.Printf("Signed in as %s %v\n", user.DisplayName(), user.RoleStrings())
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password (or "+passwordEnv+")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		profile auth.Profile
		roles   []string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if profile.Password == "" {
				profile.Password = os.Getenv(passwordEnv)
			}
			profile.Roles = users.ParseRoles(roles)
			if err := a.client.Register(cmd.Context(), profile); err != nil {
				return describeAuthError(err)
			}
			pterm.Success.Printf("Account created for %s\n", profile.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&profile.LastName, "last-name", "", "last name")
	cmd.Flags().StringVarP(&profile.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&profile.Password, "password", "p", "", "account password (or "+passwordEnv+")")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "requested roles, patient when omitted")
	for _, f := range []string{"first-name", "last-name", "email"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.client.Session().IsAuthenticated() {
				pterm.Info.Println("Not signed in")
				return nil
			}
			a.client.Logout(cmd.Context())
			pterm.Success.Println("Signed out")
			return nil
		},
	}
}

// describeAuthError keeps the backend's message but says what kind of
// failure it was.
func describeAuthError(err error) error {
	var re *auth.ResponseError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fmt.Errorf("wrong email or password")
	case errors.As(err, &re) && re.Message != "":
		return fmt.Errorf("%s failed: %s", re.Op, re.Message)
	default:
		return err
	}
}
