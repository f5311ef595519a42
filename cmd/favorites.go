package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var favoritesUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.favorites")

func NewFavoritesCmd(svc **service.Service) *cobra.Command {
	var favoritesJSON bool

	cmd := &cobra.Command{
		Use:     "favorites",
		Short:   "List favorite groups, folders, items and applications",
		Aliases: []string{"fav"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			all := (*svc).Favorites.All()

			if favoritesJSON {
				return outputJSON(all)
			}
			if len(all) == 0 {
				favoritesUlog.Info("No favorites").
					Pretty("No favorites yet").
					PrettyOnly().
					Log(ctx)
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tID\tADDED")
			fmt.Fprintln(w, "-----------\t-----------------------------\t------------------------------------\t----------")
			for _, f := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Kind, truncateString(f.Name, 29), f.ID, f.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&favoritesJSON, "json", false, "Output in JSON format")
	cmd.AddCommand(newFavoritesToggleCmd(svc))
	cmd.AddCommand(newFavoritesRemoveCmd(svc))

	return cmd
}

func newFavoritesToggleCmd(svc **service.Service) *cobra.Command {
	var (
		group       bool
		application string
	)

	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Add a favorite, or remove it when already present",
		Long: `Toggle a folder or an item by id. With --group the id is a group id;
with --application the id is a cdn package and the flag value its display name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc
			id := args[0]

			var (
				on  bool
				err error
			)
			switch {
			case group:
				tg, gerr := s.State.SelectGroup(ctx, id)
				if gerr != nil {
					return gerr
				}
				on, err = s.Favorites.ToggleGroup(id, tg.Name)
			case application != "":
				on, err = s.Favorites.ToggleApplication(id, application)
			default:
				n, lerr := s.Locate(ctx, id)
				if lerr != nil {
					return lerr
				}
				switch n.Kind {
				case tree.KindFolder:
					on, err = s.Favorites.ToggleFolder(ctx, n.ID)
				case tree.KindItem:
					on, err = s.Favorites.ToggleItem(ctx, n.ID)
				default:
					return fmt.Errorf("%q cannot be a favorite", n.Name)
				}
			}
			if err != nil {
				return err
			}

			msg := fmt.Sprintf("* Added %s to favorites", id)
			if !on {
				msg = fmt.Sprintf("* Removed %s from favorites", id)
			}
			favoritesUlog.Success("Favorite toggled").
				Field("id", id).
				Field("favorite", on).
				Pretty(msg).
				PrettyOnly().
				Emit()
			return nil
		},
	}

	cmd.Flags().BoolVar(&group, "group", false, "The id is a group id")
	cmd.Flags().StringVar(&application, "application", "", "The id is a cdn package with this display name")

	return cmd
}

func newFavoritesRemoveCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove every favorite with this id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			(*svc).Favorites.Remove(args[0])
			favoritesUlog.Success("Favorite removed").
				Field("id", args[0]).
				Pretty(fmt.Sprintf("* Removed %s from favorites", args[0])).
				PrettyOnly().
				Emit()
			return nil
		},
	}
}
