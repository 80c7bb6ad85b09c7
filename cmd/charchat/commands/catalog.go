package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"charchat-client/internal/models"
)

func (a *app) bannersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "banners",
		Short: "Show current promotions",
		RunE: func(cmd *cobra.Command, args []string) error {
			banners, err := a.svcs.Banners.Active(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(banners, func(w io.Writer) {
				if len(banners) == 0 {
					fmt.Fprintln(w, "No active promotions")
					return
				}
				for _, b := range banners {
					fmt.Fprintf(w, "%s\t%s\n", b.Title, b.LinkURL)
				}
			})
		},
	}
}

func (a *app) personasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "Manage persona presets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			personas, err := a.svcs.Personas.List(ctx)
			if err != nil {
				return err
			}
			return a.render(personas, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tDEFAULT\tDESCRIPTION")
				for _, p := range personas {
					def := ""
					if p.IsDefault {
						def = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, def, truncate(p.Description, 48))
				}
			})
		},
	}

	var in models.PersonaInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			p, err := a.svcs.Personas.Create(ctx, in)
			if err != nil {
				return err
			}
			a.printf("Created persona %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "persona name")
	create.Flags().StringVar(&in.Description, "description", "", "who you are in the conversation")
	create.Flags().BoolVar(&in.IsDefault, "default", false, "use for new chats")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			if err := a.svcs.Personas.Delete(ctx, args[0]); err != nil {
				return err
			}
			a.printf("Deleted\n")
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}

func (a *app) worldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worlds",
		Short: "Browse worlds",
	}

	var params models.ListParams
	list := &cobra.Command{
		Use:   "list",
		Short: "List worlds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.optionalAuth(ctx)
			page, err := a.svcs.Worlds.List(ctx, params)
			if err != nil {
				return err
			}
			return a.render(page, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, wd := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\n", wd.ID, wd.Name, truncate(wd.Description, 60))
				}
				pageFooter(w, page.Page, page.Total, page.HasMore)
			})
		},
	}
	listFlags(list, &params)

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a world and its lore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.optionalAuth(ctx)
			wd, err := a.svcs.Worlds.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return a.render(wd, func(w io.Writer) {
				fmt.Fprintf(w, "Name:\t%s\n", wd.Name)
				fmt.Fprintf(w, "Description:\t%s\n", wd.Description)
				if wd.Lore != "" {
					fmt.Fprintf(w, "Lore:\t%s\n", wd.Lore)
				}
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func (a *app) imagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage uploaded images",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your images",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			images, err := a.svcs.Images.List(ctx)
			if err != nil {
				return err
			}
			return a.render(images, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tFILE\tTYPE\tSIZE\tURL")
				for _, img := range images {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", img.ID, img.FileName, img.ContentType, img.SizeBytes, img.URL)
				}
			})
		},
	}

	upload := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			img, err := a.svcs.Images.Upload(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			a.printf("Uploaded %s: %s\n", img.ID, img.URL)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			if err := a.svcs.Images.Delete(ctx, args[0]); err != nil {
				return err
			}
			a.printf("Deleted\n")
			return nil
		},
	}

	cmd.AddCommand(list, upload, del)
	return cmd
}
