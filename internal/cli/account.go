package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"workflow/internal/app"
	"workflow/internal/models"
	"workflow/internal/policy"
)

var errNotSignedIn = errors.New("not signed in; run `workflow login` first")

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, _, err := opts.open(ctx, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.Services.Identity.Login(ctx, username, password)
			if err != nil {
				return err
			}
			if err := a.Session.Set(ctx, &user); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "signed in as %s (%s)\n", user.Username, user.Role)
			if user.FirstLogin {
				fmt.Fprintln(out, "password change required: run `workflow passwd`")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, _, err := opts.open(ctx, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Session.Set(ctx, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, _, err := opts.open(ctx, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()
			user, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			if err := policy.RequireActive(user); err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), user)
			return nil
		},
	}
}

func newPasswdCommand(opts *rootOptions) *cobra.Command {
	var oldPassword, newPassword string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, _, err := opts.open(ctx, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()
			user, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			updated, err := a.Services.Identity.ChangePassword(ctx, user, oldPassword, newPassword)
			if err != nil {
				return err
			}
			if err := a.Session.Set(ctx, &updated); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password changed")
			return nil
		},
	}
	cmd.Flags().StringVar(&oldPassword, "old", "", "current password")
	cmd.Flags().StringVar(&newPassword, "new", "", "new password")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

// currentUser resolves the stored session against the accounts so that
// deleted accounts and changed roles take effect.
func currentUser(ctx context.Context, a *app.App) (models.User, error) {
	session, err := a.Session.Get(ctx)
	if err != nil {
		return models.User{}, err
	}
	if session == nil {
		return models.User{}, errNotSignedIn
	}
	return a.Services.Identity.Get(ctx, session.ID)
}

func printUser(w io.Writer, u models.User) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Name, u.Role)
}
