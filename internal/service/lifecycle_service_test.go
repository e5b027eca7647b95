package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/events"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	"github.com/bloxxvault/ticket-bot/internal/platform/platformtest"
	apperrors "github.com/bloxxvault/ticket-bot/pkg/util/errorutil"
)

func TestLifecycleStaffGating(t *testing.T) {
	ops := map[string]func(f *fixture, in ActionInput) error{
		"claim": func(f *fixture, in ActionInput) error { return f.lifecycle.Claim(context.Background(), in) },
		"close": func(f *fixture, in ActionInput) error { return f.lifecycle.Close(context.Background(), in) },
		"rename": func(f *fixture, in ActionInput) error {
			return f.lifecycle.Rename(context.Background(), RenameInput{ActionInput: in, NewName: "x"})
		},
	}
	for name, op := range ops {
		t.Run(name+" denied", func(t *testing.T) {
			f := newFixture(t)
			ch := f.open(t, f.opener.User, domain.CategorySupport)
			replies := &platformtest.Replies{}

			err := op(f, f.action(f.outsider, ch, replies))

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
			assert.True(t, strings.HasPrefix(apperrors.ToDomainError(err).Message, "Alleen staff kan tickets "))
			assert.Empty(t, replies.All)
			assert.NotNil(t, f.guild.ChannelByName("ticket-42"))
			assert.Len(t, f.guild.Sent(ch.ID), 1)
			assert.Len(t, f.recorded.events, 1)
		})
		t.Run(name+" allowed", func(t *testing.T) {
			f := newFixture(t)
			ch := f.open(t, f.opener.User, domain.CategorySupport)
			replies := &platformtest.Replies{}

			require.NoError(t, op(f, f.action(f.staff, ch, replies)))
			assert.NotEmpty(t, replies.All)
			assert.Len(t, f.recorded.events, 2)
		})
	}
}

func TestClaimAnnouncesClaimerAndOpener(t *testing.T) {
	f := newFixture(t)
	ch := f.open(t, f.opener.User, domain.CategorySupport)
	replies := &platformtest.Replies{}

	require.NoError(t, f.lifecycle.Claim(context.Background(), f.action(f.staff, ch, replies)))

	reply, ok := replies.Last()
	require.True(t, ok)
	assert.Equal(t, "📌 Ticket claimed by <@7>", reply.Content)
	assert.False(t, reply.Ephemeral)

	sent := f.guild.Sent(ch.ID)
	require.Len(t, sent, 2)
	intro := sent[1].Message.Content
	assert.True(t, strings.HasPrefix(intro, "Hello <@42>, I am **Sam** from the **BloxxVault Support Team**."))

	claimed := f.recorded.ofType(events.EventTicketClaimed)
	require.Len(t, claimed, 1)
	assert.Equal(t, events.TicketClaimedPayload{OpenerID: userID, Reclaim: false}, claimed[0].Payload)

	ticket, _ := f.registry.Get(ch.ID)
	assert.Equal(t, domain.TicketStateClaimed, ticket.State)
	require.NotNil(t, ticket.ClaimedBy)
	assert.Equal(t, staffID, *ticket.ClaimedBy)

	logs := f.logEmbeds()
	require.Len(t, logs, 2)
	assert.Equal(t, "✅ Ticket claimed", logs[1].Title)
}

func TestReclaimReannounces(t *testing.T) {
	f := newFixture(t)
	ch := f.open(t, f.opener.User, domain.CategorySupport)

	require.NoError(t, f.lifecycle.Claim(context.Background(), f.action(f.staff, ch, &platformtest.Replies{})))
	require.NoError(t, f.lifecycle.Claim(context.Background(), f.action(f.staff, ch, &platformtest.Replies{})))

	claimed := f.recorded.ofType(events.EventTicketClaimed)
	require.Len(t, claimed, 2)
	assert.True(t, claimed[1].Payload.(events.TicketClaimedPayload).Reclaim)
	assert.Len(t, f.guild.Sent(ch.ID), 3)
}

func TestClaimFallsBackToGenericOpener(t *testing.T) {
	f := newFixture(t)
	ch := f.guild.AddTextChannel("4000", "support-chat")

	require.NoError(t, f.lifecycle.Claim(context.Background(), f.action(f.staff, ch, &platformtest.Replies{})))

	sent := f.guild.Sent(ch.ID)
	require.Len(t, sent, 1)
	assert.True(t, strings.HasPrefix(sent[0].Message.Content, "Hello the user, I am **Sam**"))
}

func TestClaimOpenerLeftGuild(t *testing.T) {
	f := newFixture(t)
	ch := f.guild.AddTextChannel("4001", "ticket-31337")

	require.NoError(t, f.lifecycle.Claim(context.Background(), f.action(f.staff, ch, &platformtest.Replies{})))

	assert.True(t, strings.HasPrefix(f.guild.Sent(ch.ID)[0].Message.Content, "Hello the user,"))
	claimed := f.recorded.ofType(events.EventTicketClaimed)
	require.Len(t, claimed, 1)
	assert.Equal(t, "31337", claimed[0].Payload.(events.TicketClaimedPayload).OpenerID)
}

func TestRenameSanitizesAndAudits(t *testing.T) {
	f := newFixture(t)
	ch := f.open(t, f.opener.User, domain.CategorySupport)
	replies := &platformtest.Replies{}

	err := f.lifecycle.Rename(context.Background(), RenameInput{
		ActionInput: f.action(f.staff, ch, replies),
		NewName:     "VIP  Klant\tBetaling",
	})
	require.NoError(t, err)

	assert.NotNil(t, f.guild.ChannelByName("vip-klant-betaling"))
	reply, _ := replies.Last()
	assert.Equal(t, platform.Reply{Content: "Kanaal hernoemd naar `vip-klant-betaling`", Ephemeral: true}, reply)

	renamed := f.recorded.ofType(events.EventTicketRenamed)
	require.Len(t, renamed, 1)
	assert.Equal(t, events.TicketRenamedPayload{OldName: "ticket-42", NewName: "vip-klant-betaling"}, renamed[0].Payload)

	logs := f.guild.Sent(logChannelID)
	assert.Equal(t, "✏️ <@7> renamed a ticket to `vip-klant-betaling`", logs[len(logs)-1].Message.Content)
}

func TestRenameRejectsNonTicketChannel(t *testing.T) {
	f := newFixture(t)
	ch := f.guild.AddTextChannel("4002", "general")

	err := f.lifecycle.Rename(context.Background(), RenameInput{
		ActionInput: f.action(f.staff, ch, &platformtest.Replies{}),
		NewName:     "whatever",
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotATicketChannel))
	assert.NotNil(t, f.guild.ChannelByName("general"))
	assert.Empty(t, f.recorded.events)
}

func TestRenamedTicketKeepsOpenerViaRegistry(t *testing.T) {
	f := newFixture(t)
	ch := f.open(t, f.opener.User, domain.CategorySupport)
	require.NoError(t, f.lifecycle.Rename(context.Background(), RenameInput{
		ActionInput: f.action(f.staff, ch, &platformtest.Replies{}),
		NewName:     "ticket-refund",
	}))
	renamed := f.guild.ChannelByName("ticket-refund")
	require.NotNil(t, renamed)

	require.NoError(t, f.lifecycle.Claim(context.Background(), f.action(f.staff, renamed, &platformtest.Replies{})))

	sent := f.guild.Sent(ch.ID)
	assert.True(t, strings.HasPrefix(sent[len(sent)-1].Message.Content, "Hello <@42>,"))

	// The name no longer encodes the opener, so a second ticket is allowed.
	f.open(t, f.opener.User, domain.CategoryPayments)
	assert.NotNil(t, f.guild.ChannelByName("ticket-42"))
}

func TestCloseScenario(t *testing.T) {
	f := newFixture(t)
	ch := f.guild.AddTextChannel("4242", "ticket-42")
	f.guild.Post(ch.ID, f.opener.User, "hallo, mijn betaling faalt")
	f.guild.Post(ch.ID, f.staff.User, "welke methode?", platform.Attachment{Filename: "a.png", URL: "https://cdn.example/a.png"})
	f.guild.Post(ch.ID, f.opener.User, "iDEAL")
	replies := &platformtest.Replies{}

	require.NoError(t, f.lifecycle.Close(context.Background(), f.action(f.staff, ch, replies)))

	assert.Equal(t, []platform.Reply{{Content: "Sluit-proces gestart...", Ephemeral: true}}, replies.All)

	var upload *platformtest.SentMessage
	for _, s := range f.guild.Sent(logChannelID) {
		if s.Message.File != nil {
			s := s
			upload = &s
		}
	}
	require.NotNil(t, upload)
	assert.Equal(t, "📄 Transcript van ticket-42", upload.Message.Content)
	assert.Equal(t, "ticket-42_transcript.txt", upload.Message.File.Name)
	lines := strings.Split(upload.FileBody, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[2024-01-01 12:01:00] U42 : hallo, mijn betaling faalt", lines[0])
	assert.Equal(t, "[2024-01-01 12:02:00] Sam : welke methode? [ATTACHMENTS: https://cdn.example/a.png]", lines[1])
	assert.Equal(t, "[2024-01-01 12:03:00] U42 : iDEAL", lines[2])

	dms := f.guild.Direct()
	require.Len(t, dms, 1)
	assert.Equal(t, userID, dms[0].UserID)
	assert.Equal(t, "Hier is de transcript van jouw ticket ticket-42:", dms[0].Message.Content)
	assert.Equal(t, upload.FileBody, dms[0].FileBody)

	assert.Equal(t, []string{ch.ID}, f.guild.DeletedChannels())
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, f.slept)

	closed := f.recorded.ofType(events.EventTicketClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, events.TicketClosedPayload{OpenerID: userID, TranscriptLines: 3, OpenerNotified: true}, closed[0].Payload)

	entries, err := os.ReadDir(f.cfg.TranscriptDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Closed is terminal.
	err = f.lifecycle.Claim(context.Background(), f.action(f.staff, ch, &platformtest.Replies{}))
	assert.ErrorIs(t, err, platform.ErrNotFound)
	err = f.lifecycle.Close(context.Background(), f.action(f.staff, ch, &platformtest.Replies{}))
	assert.ErrorIs(t, err, platform.ErrNotFound)
}

func TestCloseProceedsWhenOpenerDMFails(t *testing.T) {
	f := newFixture(t)
	ch := f.open(t, f.opener.User, domain.CategorySupport)
	f.guild.DirectErr = errors.New("cannot send messages to this user")

	require.NoError(t, f.lifecycle.Close(context.Background(), f.action(f.staff, ch, &platformtest.Replies{})))

	assert.Nil(t, f.guild.ChannelByName("ticket-42"))
	_, ok := f.registry.Get(ch.ID)
	assert.False(t, ok)
	closed := f.recorded.ofType(events.EventTicketClosed)
	require.Len(t, closed, 1)
	assert.False(t, closed[0].Payload.(events.TicketClosedPayload).OpenerNotified)
}

func TestClosePostsNoticeBeforeDeletion(t *testing.T) {
	f := newFixture(t)
	ch := f.open(t, f.opener.User, domain.CategorySupport)
	var noticeSeen bool
	f.lifecycle.sleep = func(context.Context, time.Duration) error {
		sent := f.guild.Sent(ch.ID)
		noticeSeen = sent[len(sent)-1].Message.Content == "Ticket gesloten door staff. Transcript wordt opgeslagen."
		assert.NotNil(t, f.guild.ChannelByName("ticket-42"))
		return nil
	}

	require.NoError(t, f.lifecycle.Close(context.Background(), f.action(f.staff, ch, &platformtest.Replies{})))
	assert.True(t, noticeSeen)
}

func TestCloseCancelledDuringGrace(t *testing.T) {
	f := newFixture(t)
	ch := f.open(t, f.opener.User, domain.CategorySupport)
	f.lifecycle.sleep = sleepContext
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.lifecycle.Close(ctx, f.action(f.staff, ch, &platformtest.Replies{}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, f.guild.ChannelByName("ticket-42"))
}
