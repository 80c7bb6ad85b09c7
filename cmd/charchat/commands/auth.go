package commands

import (
	"io"

	"github.com/spf13/cobra"

	"charchat-client/internal/models"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.quietUnauthorized.Store(true)
			defer a.quietUnauthorized.Store(false)

			user, err := a.sess.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.printf("Logged in as %s (%d tokens)\n", user.Username, user.TokenBalance)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.quietUnauthorized.Store(true)
			defer a.quietUnauthorized.Store(false)

			user, err := a.sess.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printf("Welcome, %s! You have %d tokens to start with.\n", user.Username, user.TokenBalance)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Username, "username", "", "public username")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (at least 8 characters)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sess.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("Logged out\n")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(user, func(w io.Writer) { printUser(w, user) })
		},
	}
}

func (a *app) localeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locale [code]",
		Short: "Show or set the preferred language sent as Accept-Language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				locale := a.sess.Locale(ctx)
				if locale == "" {
					locale = "(server default)"
				}
				a.printf("%s\n", locale)
				return nil
			}
			if err := a.sess.SetLocale(ctx, args[0]); err != nil {
				return err
			}
			a.printf("Locale set to %s\n", args[0])
			return nil
		},
	}
}
