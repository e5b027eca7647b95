package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloxxvault/ticket-bot/internal/config"
	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	"github.com/bloxxvault/ticket-bot/internal/platform/platformtest"
	"github.com/bloxxvault/ticket-bot/internal/service"
	apperrors "github.com/bloxxvault/ticket-bot/pkg/util/errorutil"
)

type stubTickets struct {
	input service.OpenTicketInput
	ch    *platform.Channel
	err   error
}

func (s *stubTickets) OpenTicket(_ context.Context, in service.OpenTicketInput) (*platform.Channel, error) {
	s.input = in
	return s.ch, s.err
}

type stubLifecycle struct {
	calls  []string
	action service.ActionInput
	rename string
	err    error
	panics bool
}

func (s *stubLifecycle) Claim(_ context.Context, in service.ActionInput) error {
	if s.panics {
		panic("boom")
	}
	s.calls = append(s.calls, "claim")
	s.action = in
	return s.err
}

func (s *stubLifecycle) Close(_ context.Context, in service.ActionInput) error {
	s.calls = append(s.calls, "close")
	s.action = in
	return s.err
}

func (s *stubLifecycle) Rename(_ context.Context, in service.RenameInput) error {
	s.calls = append(s.calls, "rename")
	s.action = in.ActionInput
	s.rename = in.NewName
	return s.err
}

type stubIntake struct {
	verdict service.Verdict
	err     error
}

func (s *stubIntake) HandleMessage(context.Context, *platform.Message) (service.Verdict, error) {
	return s.verdict, s.err
}

type stubProcessor struct{ got []*platform.Message }

func (s *stubProcessor) Process(_ context.Context, msg *platform.Message) error {
	s.got = append(s.got, msg)
	return nil
}

type routerFixture struct {
	guild     *platformtest.Guild
	tickets   *stubTickets
	lifecycle *stubLifecycle
	intake    *stubIntake
	processor *stubProcessor
	router    *Router
	member    *platform.Member
}

func newRouterFixture() *routerFixture {
	g := platformtest.NewGuild("900", "BloxxVault")
	g.AddTextChannel("4242", "ticket-42")
	f := &routerFixture{
		guild:     g,
		tickets:   &stubTickets{},
		lifecycle: &stubLifecycle{},
		intake:    &stubIntake{verdict: service.VerdictPass},
		processor: &stubProcessor{},
		member:    &platform.Member{User: platform.User{ID: "7", Name: "Sam"}, RoleIDs: []string{"700"}},
	}
	f.router = NewRouter(RouterDependencies{
		Client: g,
		Config: config.TicketConfig{
			StaffRoleID: "700",
			CategoryGroups: map[domain.Category]string{
				domain.CategorySupport:  "500",
				domain.CategoryPayments: "501",
			},
			BannerURL: "https://img/banner.gif",
		},
		Tickets:   f.tickets,
		Lifecycle: f.lifecycle,
		Intake:    f.intake,
		Processor: f.processor,
	})
	return f
}

func (f *routerFixture) interaction(cmd Command, replies *platformtest.Replies) Interaction {
	return Interaction{GuildID: "900", ChannelID: "4242", Member: f.member, Command: cmd, Reply: replies}
}

func TestDispatchOpenAcknowledgesPrivately(t *testing.T) {
	f := newRouterFixture()
	f.tickets.ch = &platform.Channel{ID: "5555", Name: "ticket-7"}
	replies := &platformtest.Replies{}

	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandOpen, Category: domain.CategorySupport}, replies))

	assert.Equal(t, service.OpenTicketInput{GuildID: "900", Requester: f.member.User, Category: domain.CategorySupport}, f.tickets.input)
	assert.Equal(t, []platform.Reply{{Content: "🎫 Ticket geopend: <#5555>", Ephemeral: true}}, replies.All)
}

func TestDispatchBusinessErrorBecomesEphemeralReply(t *testing.T) {
	f := newRouterFixture()
	f.tickets.err = apperrors.NewDuplicateTicket("Je hebt al een open ticket!", nil)
	replies := &platformtest.Replies{}

	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandOpen, Category: domain.CategorySupport}, replies))

	assert.Equal(t, []platform.Reply{{Content: "Je hebt al een open ticket!", Ephemeral: true}}, replies.All)
}

func TestDispatchUnexpectedErrorIsGeneric(t *testing.T) {
	f := newRouterFixture()
	f.lifecycle.err = errors.New("gateway timeout")
	replies := &platformtest.Replies{}

	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandClose}, replies))

	assert.Equal(t, []platform.Reply{{Content: genericFailure, Ephemeral: true}}, replies.All)
}

func TestDispatchLifecycleCommands(t *testing.T) {
	f := newRouterFixture()
	replies := &platformtest.Replies{}

	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandClaim}, replies))
	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandRename, NewName: "VIP"}, replies))
	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandClose}, replies))

	assert.Equal(t, []string{"claim", "rename", "close"}, f.lifecycle.calls)
	assert.Equal(t, "VIP", f.lifecycle.rename)
	require.NotNil(t, f.lifecycle.action.Channel)
	assert.Equal(t, "ticket-42", f.lifecycle.action.Channel.Name)
	assert.Equal(t, f.member, f.lifecycle.action.Actor)
	assert.Empty(t, replies.All)
}

func TestDispatchLifecycleInUnknownChannel(t *testing.T) {
	f := newRouterFixture()
	replies := &platformtest.Replies{}
	in := f.interaction(Command{Kind: CommandRename, NewName: "x"}, replies)
	in.ChannelID = "missing"

	f.router.Dispatch(context.Background(), in)

	assert.Empty(t, f.lifecycle.calls)
	assert.Equal(t, []platform.Reply{{Content: "Dit commando werkt alleen in ticket-kanalen.", Ephemeral: true}}, replies.All)
}

func TestDispatchPanel(t *testing.T) {
	f := newRouterFixture()
	replies := &platformtest.Replies{}

	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandPanel}, replies))

	reply, ok := replies.Last()
	require.True(t, ok)
	assert.False(t, reply.Ephemeral)
	require.NotNil(t, reply.Embed)
	assert.Equal(t, "🟧 BloxxVault Support Tickets", reply.Embed.Title)
	assert.Equal(t, "https://img/banner.gif", reply.Embed.ImageURL)
	assert.Contains(t, reply.Embed.Description, "💳 **Payments** – vragen over betalingen of transacties.")
	assert.NotContains(t, reply.Embed.Description, "Orders")
	assert.Equal(t, []platform.Button{
		{Label: "💳 Payments", CustomID: "ticket_payments", Style: platform.ButtonSuccess},
		{Label: "🛠️ Support", CustomID: "ticket_support", Style: platform.ButtonSecondary},
	}, reply.Buttons)
}

func TestDispatchPanelRejectsNonStaff(t *testing.T) {
	f := newRouterFixture()
	f.member = &platform.Member{User: platform.User{ID: "42", Name: "U42"}, RoleIDs: []string{"1"}}
	replies := &platformtest.Replies{}

	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandPanel}, replies))

	assert.Equal(t, []platform.Reply{{Content: "Alleen administrators of staff kunnen het ticketpaneel plaatsen.", Ephemeral: true}}, replies.All)

	f.member = &platform.Member{User: platform.User{ID: "1", Name: "Owner"}, Administrator: true}
	replies = &platformtest.Replies{}
	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandPanel}, replies))
	reply, ok := replies.Last()
	require.True(t, ok)
	assert.False(t, reply.Ephemeral)
	require.NotNil(t, reply.Embed)
}

func TestDispatchUnknownIsIgnored(t *testing.T) {
	f := newRouterFixture()
	replies := &platformtest.Replies{}
	f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandUnknown}, replies))
	assert.Empty(t, replies.All)
}

func TestHandleMessageForwardsOnlyPassingMessages(t *testing.T) {
	f := newRouterFixture()
	msg := &platform.Message{ID: "1", ChannelID: "4242", GuildID: "900", Content: "hello"}

	f.router.HandleMessage(context.Background(), msg)
	require.Len(t, f.processor.got, 1)

	for _, v := range []service.Verdict{service.VerdictTagAbuse, service.VerdictBannedWord, service.VerdictSkipped} {
		f.intake.verdict = v
		f.router.HandleMessage(context.Background(), msg)
	}
	f.intake.verdict = service.VerdictPass
	f.intake.err = errors.New("boom")
	f.router.HandleMessage(context.Background(), msg)

	assert.Len(t, f.processor.got, 1)
}

func TestRecoverPanic(t *testing.T) {
	f := newRouterFixture()
	f.lifecycle.panics = true
	assert.NotPanics(t, func() {
		defer f.router.recoverPanic("test")
		f.router.Dispatch(context.Background(), f.interaction(Command{Kind: CommandClaim}, &platformtest.Replies{}))
	})
}

func TestApplicationCommands(t *testing.T) {
	cmds := ApplicationCommands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "ticketpanel", cmds[0].Name)
	require.NotNil(t, cmds[0].DefaultMemberPermissions)
	assert.Equal(t, "rename", cmds[1].Name)
	require.Len(t, cmds[1].Options, 1)
	assert.True(t, cmds[1].Options[0].Required)
}
