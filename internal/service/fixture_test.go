package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bloxxvault/ticket-bot/internal/config"
	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/events"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	"github.com/bloxxvault/ticket-bot/internal/platform/platformtest"
	"github.com/bloxxvault/ticket-bot/internal/repository"
)

const (
	guildID      = "900"
	staffRoleID  = "700"
	logChannelID = "800"
	supportGroup = "500"
	paymentGroup = "501"
	textGroup    = "502"
	staffID      = "7"
	userID       = "42"
	outsiderID   = "13"
	bannedID     = "666"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	guild       *platformtest.Guild
	cfg         config.TicketConfig
	registry    repository.TicketRegistry
	recorded    *recorder
	tickets     *TicketService
	lifecycle   *LifecycleService
	transcripts *TranscriptService
	intake      *IntakeService
	slept       []time.Duration

	staff    *platform.Member
	opener   *platform.Member
	outsider *platform.Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g := platformtest.NewGuild(guildID, "BloxxVault")
	g.AddCategory(supportGroup, "Support")
	g.AddCategory(paymentGroup, "Payments")
	g.AddTextChannel(textGroup, "not-a-group")
	g.AddTextChannel(logChannelID, "ticket-log")
	g.AddRole(staffRoleID, "Staff")

	f := &fixture{
		guild: g,
		cfg: config.TicketConfig{
			StaffRoleID:  staffRoleID,
			LogChannelID: logChannelID,
			CategoryGroups: map[domain.Category]string{
				domain.CategorySupport:  supportGroup,
				domain.CategoryPayments: paymentGroup,
				domain.CategoryOrders:   textGroup,
				domain.CategoryGeneral:  "404",
			},
			BlacklistedUsers: map[string]struct{}{bannedID: {}},
			BlacklistedWords: []string{"scam", "free robux"},
			TranscriptDir:    t.TempDir(),
			CloseGracePeriod: 1500 * time.Millisecond,
		},
		registry: repository.NewTicketRegistry(),
		recorded: &recorder{},
		staff:    g.AddMember(staffID, "Sam", staffRoleID),
		opener:   g.AddMember(userID, "U42"),
		outsider: g.AddMember(outsiderID, "Bob"),
	}
	g.AddMember(bannedID, "Mallory")

	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, et := range events.AllTypes() {
		dispatcher.Subscribe(et, f.recorded.handle)
	}
	audit := NewAuditService(AuditDependencies{
		Dispatcher:   dispatcher,
		Client:       g,
		LogChannelID: logChannelID,
	})
	audit.RegisterHandlers()

	deps := TicketDependencies{
		Client:     g,
		Config:     f.cfg,
		Registry:   f.registry,
		Dispatcher: dispatcher,
	}
	f.tickets = NewTicketService(deps)
	f.transcripts = NewTranscriptService(deps)
	f.lifecycle = NewLifecycleService(deps, f.transcripts)
	f.lifecycle.sleep = func(_ context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}
	f.intake = NewIntakeService(deps)
	return f
}

func (f *fixture) open(t *testing.T, user platform.User, category domain.Category) *platform.Channel {
	t.Helper()
	ch, err := f.tickets.OpenTicket(context.Background(), OpenTicketInput{GuildID: guildID, Requester: user, Category: category})
	require.NoError(t, err)
	return ch
}

func (f *fixture) action(actor *platform.Member, channel *platform.Channel, replies *platformtest.Replies) ActionInput {
	return ActionInput{GuildID: guildID, Actor: actor, Channel: channel, Reply: replies}
}

// logEmbeds returns embeds posted to the log channel.
func (f *fixture) logEmbeds() []*platform.Embed {
	var out []*platform.Embed
	for _, s := range f.guild.Sent(logChannelID) {
		if s.Message.Embed != nil {
			out = append(out, s.Message.Embed)
		}
	}
	return out
}
