package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/manifest"
	"github.com/mattsolo1/grove-explorer/pkg/service"
)

var watchUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.watch")

func NewWatchCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow platform events and manifest changes",
		Long: `Stay connected to the platform and report files added to loaded
folders, as well as reloads of the application manifest. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			s := *svc

			tg, err := s.State.Start(ctx)
			if err != nil {
				return err
			}
			if _, err := tg.ResolveChildren(ctx, tg.HomeFolderID); err != nil {
				return err
			}
			stream := s.Events()
			if stream == nil {
				return fmt.Errorf("the backend does not publish events")
			}

			cancel := s.State.SubscribeItemAdded(func(e explorer.ItemAdded) {
				watchUlog.Info("File added").
					Field("folder", e.FolderID).
					Field("id", e.Item.ID).
					Pretty(fmt.Sprintf("+ %s (%s)", e.Item.Name, e.Item.ID)).
					PrettyOnly().
					Log(ctx)
			})
			defer cancel()

			err = s.Manifests.Watch(ctx, func(m *manifest.Manifest) {
				watchUlog.Info("Manifest reloaded").
					Field("applications", len(m.Applications)).
					Pretty(fmt.Sprintf("~ manifest reloaded: %d applications", len(m.Applications))).
					PrettyOnly().
					Log(ctx)
			})
			if err != nil {
				watchUlog.Info("Manifest not watched").
					Field("error", err.Error()).
					Pretty(fmt.Sprintf("! manifest changes will not be followed: %v", err)).
					PrettyOnly().
					Log(ctx)
			}

			s.State.WatchEvents(ctx, stream.Run(ctx))
			return nil
		},
	}
	return cmd
}
