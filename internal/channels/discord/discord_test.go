package discord

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salafibot/salafibot/internal/command"
	"github.com/salafibot/salafibot/internal/dispatch"
)

type gate map[string]bool

func (g gate) IsEnabled(name string) bool { return g[name] }

func newAdapter() *Adapter {
	table := dispatch.NewTable()
	table.Install(
		&command.Definition{Name: "echo", Handler: func(_ context.Context, opts map[string]string) (string, error) {
			return opts["text"] + "/" + opts["count"], nil
		}},
		&command.Definition{Name: "fail", Handler: func(context.Context, map[string]string) (string, error) {
			return "", errors.New("boom")
		}},
		&command.Definition{Name: "off", Handler: func(context.Context, map[string]string) (string, error) {
			return "never", nil
		}},
	)
	return New(dispatch.NewRouter(table, gate{"echo": true, "fail": true}))
}

func TestRespondRunsCommand(t *testing.T) {
	resp := newAdapter().Respond(context.Background(), discordgo.ApplicationCommandInteractionData{
		Name: "echo",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "text", Type: discordgo.ApplicationCommandOptionString, Value: "salam"},
			{Name: "count", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
		},
	})
	require.NotNil(t, resp.Data)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, "salam/3", resp.Data.Content)
	assert.Zero(t, resp.Data.Flags)
}

func TestRespondFailuresAreEphemeral(t *testing.T) {
	a := newAdapter()
	cases := map[string]string{
		"fail":    ReplyFailed,
		"off":     ReplyDisabled,
		"missing": ReplyUnknown,
	}
	for name, want := range cases {
		resp := a.Respond(context.Background(), discordgo.ApplicationCommandInteractionData{Name: name})
		assert.Equal(t, want, resp.Data.Content, name)
		assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags, name)
	}
}

func TestOptionsFlattenSubcommands(t *testing.T) {
	got := Options([]*discordgo.ApplicationCommandInteractionDataOption{
		{
			Name: "admin",
			Type: discordgo.ApplicationCommandOptionSubCommandGroup,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{
					Name: "enable",
					Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{
						{Name: "command", Type: discordgo.ApplicationCommandOptionString, Value: "ping"},
						{Name: "global", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
					},
				},
			},
		},
	})
	assert.Equal(t, map[string]string{
		"subcommand": "admin enable",
		"command":    "ping",
		"global":     "true",
	}, got)
}

func TestConnectRequiresToken(t *testing.T) {
	assert.Error(t, newAdapter().Connect(context.Background(), ""))
	assert.NoError(t, newAdapter().Disconnect())
}

type call struct {
	method  string
	typ     discordgo.InteractionResponseType
	content string
	flags   discordgo.MessageFlags
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeAPI) record(c call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	c := call{method: "respond", typ: resp.Type}
	if resp.Data != nil {
		c.content, c.flags = resp.Data.Content, resp.Data.Flags
	}
	f.record(c)
	return nil
}

func (f *fakeAPI) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.record(call{method: "edit", content: *edit.Content})
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) InteractionResponseDelete(_ *discordgo.Interaction, _ ...discordgo.RequestOption) error {
	f.record(call{method: "delete"})
	return nil
}

func (f *fakeAPI) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, p *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.record(call{method: "followup", content: p.Content, flags: p.Flags})
	return &discordgo.Message{}, nil
}

func slowAdapter(delay time.Duration) *Adapter {
	table := dispatch.NewTable()
	table.Install(
		&command.Definition{Name: "slow", Handler: func(context.Context, map[string]string) (string, error) {
			time.Sleep(delay)
			return "done", nil
		}},
		&command.Definition{Name: "slowfail", Handler: func(context.Context, map[string]string) (string, error) {
			time.Sleep(delay)
			return "", errors.New("boom")
		}},
	)
	a := New(dispatch.NewRouter(table, gate{"slow": true, "slowfail": true}))
	a.ackAfter = 10 * time.Millisecond
	return a
}

func interaction(name string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:   "1",
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: name},
	}
}

func TestAnswerFastCommandRespondsDirectly(t *testing.T) {
	api := &fakeAPI{}
	a := slowAdapter(0)
	a.ackAfter = time.Second
	a.answer(context.Background(), api, interaction("slow"))

	assert.Equal(t, []call{{
		method:  "respond",
		typ:     discordgo.InteractionResponseChannelMessageWithSource,
		content: "done",
	}}, api.calls)
}

func TestAnswerSlowCommandDefersThenEdits(t *testing.T) {
	api := &fakeAPI{}
	slowAdapter(100*time.Millisecond).answer(context.Background(), api, interaction("slow"))

	assert.Equal(t, []call{
		{method: "respond", typ: discordgo.InteractionResponseDeferredChannelMessageWithSource},
		{method: "edit", content: "done"},
	}, api.calls)
}

func TestAnswerSlowFailureIsPrivateFollowup(t *testing.T) {
	api := &fakeAPI{}
	slowAdapter(100*time.Millisecond).answer(context.Background(), api, interaction("slowfail"))

	require.Len(t, api.calls, 3)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, api.calls[0].typ)
	assert.Equal(t, "delete", api.calls[1].method)
	assert.Equal(t, call{method: "followup", content: ReplyFailed, flags: discordgo.MessageFlagsEphemeral}, api.calls[2])
}
