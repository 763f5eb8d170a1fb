// Package discord connects the bot to the Discord gateway and answers slash
// command interactions through the dispatch router.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/salafibot/salafibot/internal/dispatch"
	"github.com/salafibot/salafibot/internal/logging"
)

// Replies sent when a command cannot run.
const (
	ReplyFailed   = "There was an error while executing this command!"
	ReplyDisabled = "This command is currently disabled."
	ReplyUnknown  = "This command is not available."
)

const (
	// DefaultInvokeTimeout bounds one handler invocation.
	DefaultInvokeTimeout = 10 * time.Second
	// DefaultAckAfter is how long a handler may run before the interaction is
	// acknowledged with a deferred reply. Discord drops interactions that are
	// not answered within 3 seconds.
	DefaultAckAfter = 2 * time.Second
)

// interactionAPI is the part of *discordgo.Session used to answer.
type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Adapter owns the gateway session.
type Adapter struct {
	router   *dispatch.Router
	timeout  time.Duration
	ackAfter time.Duration

	mu      sync.Mutex
	session *discordgo.Session
}

// New creates an adapter that answers interactions with router.
func New(router *dispatch.Router) *Adapter {
	return &Adapter{router: router, timeout: DefaultInvokeTimeout, ackAfter: DefaultAckAfter}
}

// Connect opens the gateway connection.
func (a *Adapter) Connect(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("discord bot token is required")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logging.Infof("[discord] Logged in as %s#%s", r.User.Username, r.User.Discriminator)
	})
	session.AddHandler(a.interactionHandler)

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()

	logging.Infof("[discord] Bot connected and listening for interactions")
	return nil
}

// Disconnect closes the connection
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	err := a.session.Close()
	a.session = nil
	return err
}

// Run connects and blocks until ctx is done.
func (a *Adapter) Run(ctx context.Context, token string) error {
	if err := a.Connect(ctx, token); err != nil {
		return err
	}
	<-ctx.Done()
	return a.Disconnect()
}

func (a *Adapter) interactionHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx := logging.NewContext(context.Background(), logging.Logger{}.With("interaction", i.ID, "guild", i.GuildID))
	a.answer(ctx, s, i.Interaction)
}

// answer replies directly when the command finishes before ackAfter.
// Otherwise it acknowledges with a deferred reply and fills it in once the
// command returns; failures then replace it with a private followup.
func (a *Adapter) answer(ctx context.Context, api interactionAPI, in *discordgo.Interaction) {
	data := in.ApplicationCommandData()
	log := logging.WithContext(ctx)

	done := make(chan *discordgo.InteractionResponse, 1)
	go func() {
		done <- a.Respond(ctx, data)
	}()

	timer := time.NewTimer(a.ackAfter)
	defer timer.Stop()
	select {
	case resp := <-done:
		if err := api.InteractionRespond(in, resp); err != nil {
			log.Errorf("[discord] Failed to respond to /%s: %v", data.Name, err)
		}
		return
	case <-timer.C:
	}

	deferred := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if err := api.InteractionRespond(in, deferred); err != nil {
		log.Errorf("[discord] Failed to acknowledge /%s: %v", data.Name, err)
		return
	}

	resp := <-done
	content := resp.Data.Content
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		if _, err := api.InteractionResponseEdit(in, &discordgo.WebhookEdit{Content: &content}); err != nil {
			log.Errorf("[discord] Failed to edit reply to /%s: %v", data.Name, err)
		}
		return
	}

	// The deferred reply is public.
	if err := api.InteractionResponseDelete(in); err != nil {
		log.Warnf("[discord] Failed to delete deferred reply to /%s: %v", data.Name, err)
	}
	params := &discordgo.WebhookParams{Content: content, Flags: discordgo.MessageFlagsEphemeral}
	if _, err := api.FollowupMessageCreate(in, false, params); err != nil {
		log.Errorf("[discord] Failed to send followup for /%s: %v", data.Name, err)
	}
}

// Respond runs the invoked command and builds the reply. Failures are
// answered privately to the invoking user.
func (a *Adapter) Respond(ctx context.Context, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionResponse {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.router.Dispatch(ctx, data.Name, Options(data.Options))
	log := logging.WithContext(ctx)
	switch {
	case errors.Is(err, dispatch.ErrDisabled):
		return ephemeral(ReplyDisabled)
	case errors.Is(err, dispatch.ErrUnknownCommand):
		log.Warnf("[discord] No handler for /%s", data.Name)
		return ephemeral(ReplyUnknown)
	case err != nil:
		log.Errorf("[discord] Command /%s failed: %v", data.Name, err)
		return ephemeral(ReplyFailed)
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: reply},
	}
}

// Options flattens interaction options into name -> value. Subcommand names
// are stored under "subcommand" and their options are merged in.
func Options(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string)
	var walk func([]*discordgo.ApplicationCommandInteractionDataOption)
	walk = func(opts []*discordgo.ApplicationCommandInteractionDataOption) {
		for _, o := range opts {
			switch o.Type {
			case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
				if prev, ok := out["subcommand"]; ok {
					out["subcommand"] = prev + " " + o.Name
				} else {
					out["subcommand"] = o.Name
				}
				walk(o.Options)
			default:
				out[o.Name] = optionValue(o)
			}
		}
	}
	walk(opts)
	return out
}

func optionValue(o *discordgo.ApplicationCommandInteractionDataOption) string {
	switch v := o.Value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}
