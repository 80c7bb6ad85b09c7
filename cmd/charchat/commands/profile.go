package commands

import (
	"io"

	"github.com/spf13/cobra"

	"charchat-client/internal/models"
)

func (a *app) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit your profile",
	}

	show := &cobra.Command{
		Use:   "show [userId]",
		Short: "Show your profile or another user's public profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				user *models.User
				err  error
			)
			if len(args) == 1 {
				a.optionalAuth(ctx)
				user, err = a.svcs.Users.Get(ctx, args[0])
			} else {
				user, err = a.currentUser(ctx)
			}
			if err != nil {
				return err
			}
			return a.render(user, func(w io.Writer) { printUser(w, user) })
		},
	}

	var displayName, bio, avatarURL string
	update := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var upd models.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("display-name") {
				upd.DisplayName = &displayName
			}
			if flags.Changed("bio") {
				upd.Bio = &bio
			}
			if flags.Changed("avatar-url") {
				upd.AvatarURL = &avatarURL
			}
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			user, err := a.svcs.Users.UpdateProfile(ctx, upd)
			if err != nil {
				return err
			}
			return a.render(user, func(w io.Writer) { printUser(w, user) })
		},
	}
	update.Flags().StringVar(&displayName, "display-name", "", "display name")
	update.Flags().StringVar(&bio, "bio", "", "about you")
	update.Flags().StringVar(&avatarURL, "avatar-url", "", "avatar image URL")

	var change models.PasswordChange
	password := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if change.CurrentPassword != "" && change.NewPassword != "" {
				if err := a.requireAuth(ctx); err != nil {
					return err
				}
			}
			if err := a.svcs.Users.ChangePassword(ctx, change); err != nil {
				return err
			}
			a.printf("Password changed\n")
			return nil
		},
	}
	password.Flags().StringVar(&change.CurrentPassword, "current", "", "current password")
	password.Flags().StringVar(&change.NewPassword, "new", "", "new password")

	cmd.AddCommand(show, update, password)
	return cmd
}
