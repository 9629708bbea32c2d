package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
)

var loginCmd = &cobra.Command{
	Use:   "login TOKEN",
	Short: "Store the credential issued by the notes service",
	Long: `Login stores the credential so later commands act on your behalf.
Pass "-" to read the token from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]
		if token == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}
			token = strings.TrimSpace(string(data))
		}

		creds, err := openCredentials()
		if err != nil {
			return err
		}
		user, err := creds.Login(token)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", displayName(user))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := openCredentials()
		if err != nil {
			return err
		}
		if err := creds.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := openCredentials()
		if err != nil {
			return err
		}
		user, ok := creds.User()
		if !ok {
			return errNotLoggedIn
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, header(user))
		fmt.Fprintf(out, "id:    %s\n", user.ID)
		if user.Email != "" {
			fmt.Fprintf(out, "email: %s\n", user.Email)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func displayName(u quire.User) string {
	switch {
	case u.Name != "" && u.Email != "":
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

// header is the dashboard title.
func header(u quire.User) string {
	name := u.Name
	if name == "" {
		name = displayName(u)
	}
	return name + "'s Notes"
}
