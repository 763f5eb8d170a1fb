package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/salafibot/salafibot/internal/channels/discord"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/reload"
	"github.com/salafibot/salafibot/internal/scheduler"
	"github.com/salafibot/salafibot/internal/server"
	"github.com/salafibot/salafibot/internal/svc"
)

// ServeCmd creates the serve command
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer slash commands",
		Long: `Loads the module tree, registers records for new commands and connects
to the Discord gateway. When admin.listen is set the admin API is served too;
commands.watch enables hot reload on file changes and sync.resync schedules
periodic deploys.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	svcCtx, err := newServiceContext()
	if err != nil {
		return err
	}
	defer svcCtx.Close()
	defer logging.Sync()

	resyncer, err := newResyncer(svcCtx)
	if err != nil {
		return err
	}

	res, err := svcCtx.Admin.Bootstrap(ctx)
	if err != nil {
		return err
	}
	for _, f := range res.Failed {
		logging.Warnf("[serve] Skipped %s", f)
	}

	if svcCtx.Token == "" {
		return errors.New("no bot token: set DISCORD_TOKEN or run 'salafibot token set'")
	}

	g, gctx := errgroup.WithContext(ctx)

	adapter := discord.New(svcCtx.Router)
	g.Go(func() error {
		return adapter.Run(gctx, svcCtx.Token)
	})

	c := svcCtx.Config
	if c.AdminEnabled() {
		g.Go(func() error {
			return server.Run(gctx, svcCtx, server.ServerOptions{Quiet: !verbose})
		})
	}

	if c.Commands.Watch {
		w := reload.NewWatcher(svcCtx.Reloader, svcCtx.Importer, reload.DefaultDebounce)
		w.OnReload(func(r *reload.Result) {
			logging.Infof("[serve] %s", r.Message())
		})
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	if resyncer != nil {
		g.Go(func() error {
			return resyncer.Run(gctx)
		})
	}

	fmt.Fprintf(os.Stderr, "Salafibot running with %d commands. Press Ctrl+C to stop.\n", svcCtx.Table.Len())
	return g.Wait()
}

// newResyncer validates sync.resync before anything starts. It returns nil
// when periodic resync is off.
func newResyncer(svcCtx *svc.ServiceContext) (*scheduler.Resyncer, error) {
	spec := svcCtx.Config.Sync.Resync
	if spec == "" {
		return nil, nil
	}
	if svcCtx.Engine == nil {
		logging.Warnf("[serve] sync.resync is set but discord.client_id is missing; resync disabled")
		return nil, nil
	}
	r, err := scheduler.NewResyncer(spec, svcCtx.Admin, svcCtx.Config.Sync.Global)
	if err != nil {
		return nil, fmt.Errorf("sync.resync: %w", err)
	}
	return r, nil
}
