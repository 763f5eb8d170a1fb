package svc

import (
	"errors"
	"fmt"
	"io"

	"github.com/salafibot/salafibot/internal/admin"
	"github.com/salafibot/salafibot/internal/config"
	"github.com/salafibot/salafibot/internal/dispatch"
	"github.com/salafibot/salafibot/internal/events"
	"github.com/salafibot/salafibot/internal/keyring"
	"github.com/salafibot/salafibot/internal/loader"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/reload"
	"github.com/salafibot/salafibot/internal/remote"
	"github.com/salafibot/salafibot/internal/store"
	"github.com/salafibot/salafibot/internal/syncer"
)

// ServiceContext holds the shared components of one process. Every entry
// point (serve, CLI subcommands, HTTP handlers) works through it.
type ServiceContext struct {
	Config config.Config
	// Token is the resolved bot token (config, then keychain).
	Token string

	Bus      *events.Bus
	Sink     store.Sink
	Registry *registry.Registry
	Importer *loader.Interpreter
	Loader   *loader.Loader
	Table    *dispatch.Table
	Router   *dispatch.Router
	Reloader *reload.Manager
	Remote   remote.Store // nil when Discord credentials are missing
	Engine   *syncer.Engine
	Admin    *admin.Service

	closers []io.Closer
}

// Option customises NewServiceContext.
type Option func(*options)

type options struct {
	sink   store.Sink
	remote remote.Store
}

// WithSink replaces the configured document sink.
func WithSink(s store.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithRemote replaces the Discord REST store.
func WithRemote(r remote.Store) Option {
	return func(o *options) { o.remote = r }
}

// NewServiceContext wires every component from c. c must be resolved.
func NewServiceContext(c config.Config, opts ...Option) (*ServiceContext, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &ServiceContext{Config: c, Bus: events.NewBus()}

	sink := o.sink
	if sink == nil {
		var err error
		if sink, err = s.openSink(); err != nil {
			return nil, err
		}
	}
	s.Sink = sink

	regOpts := []registry.Option{registry.WithEvents(s.Bus)}
	if c.Store.Driver == config.DriverRedis {
		// Other replicas write the same key.
		regOpts = append(regOpts, registry.WithLiveReads())
	}
	reg, err := registry.Open(sink, regOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Registry = reg

	s.Importer = loader.NewInterpreter(c.Commands.AllowedImports)
	s.Loader = loader.New(c.Commands.Dir, s.Importer)
	s.Table = dispatch.NewTable()
	s.Router = dispatch.NewRouter(s.Table, reg)
	s.Reloader = reload.NewManager(s.Loader, reg, s.Table, s.Bus)

	token, err := keyring.ResolveToken(c.Discord.Token)
	if err != nil {
		logging.Warnf("[svc] Keychain unavailable: %v", err)
	}
	s.Token = token

	s.Remote = o.remote
	if s.Remote == nil && token != "" && c.Discord.ClientID != "" {
		session, err := remote.NewDiscordSession(token)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Remote = remote.NewDiscordStore(session)
	}
	if s.Remote != nil {
		s.Engine = syncer.New(s.Remote, reg, syncer.WithTimeout(c.Sync.Timeout), syncer.WithEvents(s.Bus))
	}

	s.Admin = admin.New(admin.Options{
		Registry:      reg,
		Loader:        s.Loader,
		Table:         s.Table,
		Reloader:      s.Reloader,
		Engine:        s.Engine,
		ApplicationID: c.Discord.ClientID,
		GuildID:       c.Discord.GuildID,
	})
	return s, nil
}

func (s *ServiceContext) openSink() (store.Sink, error) {
	switch s.Config.Store.Driver {
	case config.DriverSQLite:
		sink, err := store.OpenSQLiteSink(s.Config.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		s.closers = append(s.closers, sink)
		return sink, nil
	case config.DriverRedis:
		sink, err := store.OpenRedisSink(s.Config.Store.URL)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		s.closers = append(s.closers, sink)
		return sink, nil
	default:
		return store.NewFileSink(s.Config.Store.Path), nil
	}
}

// Close releases the resources opened by NewServiceContext.
func (s *ServiceContext) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}
