package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salafibot/salafibot/internal/command"
	"github.com/salafibot/salafibot/internal/events"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/remote"
)

var guild = remote.Scope{ApplicationID: "app", GuildID: "guild"}

type catalog map[string]bool

func (c catalog) Has(name string) bool { return c[name] }

func def(name, description string) *command.Definition {
	return &command.Definition{
		Name:   name,
		Schema: &discordgo.ApplicationCommand{Name: name, Description: description},
	}
}

func TestSyncSingleReplacesStaleEntry(t *testing.T) {
	store := remote.NewMemoryStore()
	store.Seed(guild,
		&discordgo.ApplicationCommand{Name: "pong", Description: "pong"},
		&discordgo.ApplicationCommand{Name: "ping", Description: "stale"},
	)
	engine := New(store, catalog{"ping": true})

	res, err := engine.Sync(context.Background(), Request{
		Definitions: []*command.Definition{def("ping", "fresh"), def("other", "x")},
		Target:      "ping",
		Scope:       guild,
	})
	require.NoError(t, err)

	want := []*discordgo.ApplicationCommand{
		{Name: "pong", Description: "pong"},
		{Name: "ping", Description: "fresh"},
	}
	if diff := cmp.Diff(want, store.Entries(guild)); diff != "" {
		t.Errorf("deployed entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []string{"ping"}, res.Added)
	assert.NotEmpty(t, res.ID)

	lists, replaces := store.Calls()
	assert.Equal(t, 1, lists)
	assert.Equal(t, 1, replaces)
}

func TestSyncSingleRequiresRecordAndDefinition(t *testing.T) {
	store := remote.NewMemoryStore()
	engine := New(store, catalog{"ping": true})

	_, err := engine.Sync(context.Background(), Request{
		Definitions: []*command.Definition{def("ghost", "")},
		Target:      "ghost",
		Scope:       guild,
	})
	assert.ErrorIs(t, err, registry.ErrNotFound)

	_, err = engine.Sync(context.Background(), Request{Target: "ping", Scope: guild})
	assert.ErrorIs(t, err, registry.ErrNotFound)

	lists, replaces := store.Calls()
	assert.Zero(t, lists+replaces, "no remote call for unknown names")
}

func TestSyncAllReplacesWholeSet(t *testing.T) {
	store := remote.NewMemoryStore()
	store.Seed(guild, &discordgo.ApplicationCommand{Name: "legacy"})
	engine := New(store, catalog{})

	res, err := engine.Sync(context.Background(), Request{
		Definitions: []*command.Definition{def("ping", ""), def("basmalah", "")},
		Scope:       guild,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ping", "basmalah"}, remote.Names(store.Entries(guild)))
	assert.Equal(t, 2, res.Count)
	assert.False(t, res.NoOp)
}

func TestSyncDedupSecondRunIsNoOp(t *testing.T) {
	store := remote.NewMemoryStore()
	store.Seed(guild, &discordgo.ApplicationCommand{Name: "legacy"})
	engine := New(store, catalog{})
	req := Request{
		Definitions: []*command.Definition{def("ping", ""), def("legacy", "new schema")},
		Scope:       guild,
		Dedup:       true,
	}

	first, err := engine.Sync(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"ping"}, first.Added)
	assert.Equal(t, []string{"legacy", "ping"}, remote.Names(store.Entries(guild)))
	assert.Empty(t, store.Entries(guild)[0].Description, "deployed entries are kept as they are")

	second, err := engine.Sync(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.NoOp)
	assert.Equal(t, 2, second.Count)

	_, replaces := store.Calls()
	assert.Equal(t, 1, replaces, "second dedup run does not write")
}

func TestSyncAllWithoutDefinitions(t *testing.T) {
	_, err := New(remote.NewMemoryStore(), catalog{}).Sync(context.Background(), Request{Scope: guild})
	assert.ErrorIs(t, err, ErrNoDefinitions)
}

func TestSyncErrorKinds(t *testing.T) {
	restErr := func(status int, code int) *discordgo.RESTError {
		e := &discordgo.RESTError{
			Response:     &http.Response{Status: fmt.Sprintf("%d %s", status, http.StatusText(status)), StatusCode: status},
			ResponseBody: []byte(`{"message":"rejected"}`),
		}
		if code != 0 {
			e.Message = &discordgo.APIErrorMessage{Code: code, Message: "rejected"}
		}
		return e
	}
	cases := []struct {
		name string
		err  error
		want Kind
		text string
	}{
		{"missing access code", restErr(http.StatusForbidden, discordgo.ErrCodeMissingAccess), KindMissingAccess, "missing access"},
		{"invalid body code", restErr(http.StatusBadRequest, discordgo.ErrCodeInvalidFormBody), KindInvalidPayload, "invalid form body"},
		{"unauthorized status", restErr(http.StatusUnauthorized, 0), KindMissingAccess, "401 Unauthorized"},
		{"bad request status", restErr(http.StatusBadRequest, 0), KindInvalidPayload, "400 Bad Request"},
		{"server error", restErr(http.StatusBadGateway, 0), KindTransport, "502 Bad Gateway"},
		{"deadline", context.DeadlineExceeded, KindTimeout, "timed out"},
		{"other", errors.New("connection reset"), KindTransport, "connection reset"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := remote.NewMemoryStore()
			store.FailReplace(tc.err)
			engine := New(store, catalog{})

			_, err := engine.Sync(context.Background(), Request{
				Definitions: []*command.Definition{def("ping", "")},
				Scope:       guild,
			})
			require.Error(t, err)

			var se *SyncError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.want, se.Kind)
			assert.Equal(t, "replace", se.Op)
			assert.True(t, IsKind(err, tc.want))
			assert.ErrorIs(t, err, tc.err)
			assert.Contains(t, err.Error(), tc.text)
			assert.NotContains(t, err.Error(), "PANIC")
		})
	}
}

func TestSyncListFailureSkipsWrite(t *testing.T) {
	store := remote.NewMemoryStore()
	store.FailList(errors.New("offline"))
	engine := New(store, catalog{"ping": true})

	_, err := engine.Sync(context.Background(), Request{
		Definitions: []*command.Definition{def("ping", "")},
		Target:      "ping",
		Scope:       guild,
	})
	assert.True(t, IsKind(err, KindTransport))
	_, replaces := store.Calls()
	assert.Zero(t, replaces)
}

func TestSyncTimeout(t *testing.T) {
	store := remote.NewMemoryStore()
	store.Block(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	engine := New(store, catalog{}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := engine.Sync(context.Background(), Request{
		Definitions: []*command.Definition{def("ping", "")},
		Scope:       guild,
	})
	assert.True(t, IsKind(err, KindTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSyncSameScopeIsSerialized(t *testing.T) {
	store := remote.NewMemoryStore()
	var inFlight, maxInFlight int32
	store.Block(func(ctx context.Context) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	engine := New(store, catalog{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Sync(context.Background(), Request{
				Definitions: []*command.Definition{def("ping", "")},
				Scope:       guild,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestSyncWaitingForScopeHonorsDeadline(t *testing.T) {
	store := remote.NewMemoryStore()
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	store.Block(func(ctx context.Context) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	engine := New(store, catalog{}, WithTimeout(time.Minute))

	first := make(chan error, 1)
	go func() {
		_, err := engine.Sync(context.Background(), Request{
			Definitions: []*command.Definition{def("ping", "")},
			Scope:       guild,
		})
		first <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := engine.Sync(ctx, Request{
		Definitions: []*command.Definition{def("ping", "")},
		Scope:       guild,
	})
	assert.True(t, IsKind(err, KindTimeout))
	assert.Less(t, time.Since(start), 5*time.Second, "did not wait for the stuck sync")

	close(release)
	require.NoError(t, <-first)

	_, err = engine.Sync(context.Background(), Request{
		Definitions: []*command.Definition{def("ping", "")},
		Scope:       guild,
	})
	assert.NoError(t, err, "slot released after the stuck sync")
}

func TestSyncPublishesEvent(t *testing.T) {
	bus := events.NewBus()
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })

	engine := New(remote.NewMemoryStore(), catalog{}, WithEvents(bus))
	_, err := engine.Sync(context.Background(), Request{
		Definitions: []*command.Definition{def("ping", "")},
		Scope:       guild,
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, events.CommandsSynced, got[0].Type)
	assert.Equal(t, "guild:guild", got[0].Scope)
	assert.Equal(t, 1, got[0].Count)
}
