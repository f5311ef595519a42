package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/favorites"
	"github.com/mattsolo1/grove-explorer/pkg/manifest"
	"github.com/mattsolo1/grove-explorer/pkg/service"
)

// NewDoctorCmd checks the backend session, the install manifest and the
// favorites registry.
func NewDoctorCmd(svc **service.Service) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the backend connection, the manifest and stale favorites",
		Long: `The doctor command checks for common configuration issues.

Issues it can detect:
- An unreachable backend or a missing private group
- A manifest that fails to parse or holds invalid match patterns
- Favorites pointing at folders, items or groups that no longer exist

With --fix, stale favorites are removed and the names of the others refreshed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(context.Background(), *svc, fix)
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Remove stale favorites")
	return cmd
}

func runDoctor(ctx context.Context, s *service.Service, fix bool) error {
	fmt.Println("🏥 Running explorer doctor...")
	fmt.Println()

	issues, fixed := 0, 0

	groups := map[string]bool{}
	info, err := s.Executor.GetUserInfo(ctx)
	if err != nil {
		issues++
		fmt.Printf("❗ Backend %s is not reachable: %v\n\n", s.Config.BackendURL, err)
	} else {
		private := false
		for _, g := range info.Groups {
			groups[g.ID] = true
			private = private || g.Path == s.Config.Explorer.PrivateGroupPath
		}
		if !private {
			issues++
			fmt.Printf("❗ User %s has no group with path %q\n", info.Name, s.Config.Explorer.PrivateGroupPath)
			fmt.Println("   💡 Set private_group in the configuration")
			fmt.Println()
		}
	}

	if path := s.Config.ManifestPath; path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if _, err := manifest.Load(path); err != nil {
				issues++
				fmt.Printf("❗ Manifest %s is invalid: %v\n\n", path, err)
			}
		}
	}

	if err == nil {
		for _, fav := range s.Favorites.All() {
			stale, checkErr := staleFavorite(ctx, s, groups, fav)
			if checkErr != nil {
				fmt.Printf("⚠️  Could not check favorite %s: %v\n", fav.Name, checkErr)
				continue
			}
			if !stale {
				if fix {
					s.Favorites.Refresh(ctx, fav.ID)
				}
				continue
			}
			issues++
			fmt.Printf("❗ Favorite %s %q (%s) no longer exists\n", fav.Kind, fav.Name, fav.ID)
			if fix {
				s.Favorites.Remove(fav.ID)
				fixed++
				fmt.Println("   ✅ Removed")
			} else {
				fmt.Println("   💡 Run with --fix to remove it")
			}
		}
	}

	if issues == 0 {
		fmt.Println("✨ No issues found!")
		return nil
	}
	fmt.Printf("\n📊 Summary: Found %d issue(s)", issues)
	if fix {
		fmt.Printf(", fixed %d", fixed)
	}
	fmt.Println()
	if !fix && issues > fixed {
		fmt.Println("\n💡 Run 'grove-explorer doctor --fix' to automatically fix issues")
	}
	return nil
}

func staleFavorite(ctx context.Context, s *service.Service, groups map[string]bool, fav favorites.Favorite) (bool, error) {
	var err error
	switch fav.Kind {
	case favorites.KindGroup:
		return !groups[fav.ID], nil
	case favorites.KindFolder:
		_, err = s.Executor.GetFolder(ctx, fav.ID)
	case favorites.KindItem:
		_, err = s.Executor.GetItem(ctx, fav.ID)
	default:
		return false, nil
	}
	if backend.IsNotFound(err) {
		return true, nil
	}
	return false, err
}
