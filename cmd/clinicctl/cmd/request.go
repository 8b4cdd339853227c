package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jrsteele09/go-clinic-client/clinic"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "GET an API path with the session's credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Get(cmd.Context(), args[0])
			return printResponse(resp, err)
		},
	}
}

func newPostCmd(a *app) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "post <path>",
		Short: "POST a JSON body to an API path",
		Long:  `POST a JSON body to an API path. Use --data @file to read the body from a file, or --data - for stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(cmd.InOrStdin(), data)
			if err != nil {
				return err
			}
			resp, err := a.client.Post(cmd.Context(), args[0], "application/json", bytes.NewReader(body))
			return printResponse(resp, err)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "{}", "request body")
	return cmd
}

func readBody(stdin io.Reader, data string) ([]byte, error) {
	switch {
	case data == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(data, "@"):
		return os.ReadFile(strings.TrimPrefix(data, "@"))
	default:
		return []byte(data), nil
	}
}

func printResponse(resp *http.Response, err error) error {
	if clinic.IsSessionExpired(err) {
		return fmt.Errorf("session expired, sign in again")
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode < 300:
		pterm.Success.Println(resp.Status)
	case resp.StatusCode == http.StatusUnauthorized:
		pterm.Warning.Println(resp.Status + " (not signed in?)")
	default:
		pterm.Error.Println(resp.Status)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	}
	return nil
}
