package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"charchat-client/internal/models"
)

func listFlags(cmd *cobra.Command, p *models.ListParams) {
	cmd.Flags().IntVar(&p.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&p.Limit, "limit", models.DefaultPageLimit, "items per page")
}

func (a *app) charactersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "characters",
		Aliases: []string{"chars"},
		Short:   "Browse and manage characters",
	}
	cmd.AddCommand(a.charactersListCmd(), a.charactersShowCmd(), a.charactersCreateCmd(),
		a.charactersLikeCmd(), a.charactersDeleteCmd())
	return cmd
}

func (a *app) charactersListCmd() *cobra.Command {
	var params models.ListParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.optionalAuth(ctx)
			page, err := a.svcs.Characters.List(ctx, params)
			if err != nil {
				return err
			}
			return a.render(page, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tLIKES\tCHATS\tTAGS\tDESCRIPTION")
				for _, c := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", c.ID, c.Name, c.LikesCount, c.ChatsCount,
						strings.Join(c.Tags, ","), truncate(c.Description, 48))
				}
				pageFooter(w, page.Page, page.Total, page.HasMore)
			})
		},
	}
	listFlags(cmd, &params)
	cmd.Flags().StringVar(&params.Search, "search", "", "search by name or description")
	cmd.Flags().StringVar(&params.Tag, "tag", "", "filter by tag")
	cmd.Flags().StringVar(&params.Sort, "sort", "", "sort order: newest, popular, name")
	return cmd
}

func (a *app) charactersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show character details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.optionalAuth(ctx)
			c, err := a.svcs.Characters.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return a.render(c, func(w io.Writer) {
				fmt.Fprintf(w, "Name:\t%s\n", c.Name)
				fmt.Fprintf(w, "ID:\t%s\n", c.ID)
				fmt.Fprintf(w, "Description:\t%s\n", c.Description)
				if c.Greeting != "" {
					fmt.Fprintf(w, "Greeting:\t%s\n", c.Greeting)
				}
				fmt.Fprintf(w, "Tags:\t%s\n", strings.Join(c.Tags, ", "))
				fmt.Fprintf(w, "Likes:\t%d\n", c.LikesCount)
				fmt.Fprintf(w, "Chats:\t%d\n", c.ChatsCount)
				fmt.Fprintf(w, "Creator level:\t%d\n", c.CreatorLevel)
				fmt.Fprintf(w, "Public:\t%t\n", c.IsPublic)
			})
		},
	}
}

func (a *app) charactersCreateCmd() *cobra.Command {
	var in models.CharacterInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a character",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			c, err := a.svcs.Characters.Create(ctx, in)
			if err != nil {
				return err
			}
			a.printf("Created character %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "character name")
	cmd.Flags().StringVar(&in.Description, "description", "", "short description")
	cmd.Flags().StringVar(&in.Greeting, "greeting", "", "first message in every new chat")
	cmd.Flags().StringVar(&in.Personality, "personality", "", "personality prompt")
	cmd.Flags().StringVar(&in.WorldID, "world", "", "world id")
	cmd.Flags().StringSliceVar(&in.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&in.IsPublic, "public", true, "show in the public catalog")
	cmd.Flags().BoolVar(&in.IsNSFW, "nsfw", false, "mark as NSFW")
	return cmd
}

func (a *app) charactersLikeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like or unlike a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			res, err := a.svcs.Characters.Like(ctx, args[0])
			if err != nil {
				return err
			}
			verb := "Unliked"
			if res.Liked {
				verb = "Liked"
			}
			a.printf("%s (%d likes)\n", verb, res.LikesCount)
			return nil
		},
	}
}

func (a *app) charactersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete your character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			if err := a.svcs.Characters.Delete(ctx, args[0]); err != nil {
				return err
			}
			a.printf("Deleted\n")
			return nil
		},
	}
}
