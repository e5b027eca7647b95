package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/config"
	"github.com/bloxxvault/ticket-bot/internal/observability"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	apperrors "github.com/bloxxvault/ticket-bot/pkg/util/errorutil"
)

const transcriptTimeLayout = "2006-01-02 15:04:05"

// TranscriptReport summarises one archive run. The delivery errors are
// DELIVERY_FAILURE values and never abort the close.
type TranscriptReport struct {
	ChannelName    string
	Lines          int
	OpenerID       string
	AuditDelivered bool
	AuditErr       error
	OpenerNotified bool
	OpenerErr      error
}

// TranscriptService renders and delivers ticket transcripts.
type TranscriptService struct {
	client  platform.Client
	cfg     config.TicketConfig
	openers openerResolver
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewTranscriptService constructs the service.
func NewTranscriptService(deps TicketDependencies) *TranscriptService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		client:  deps.Client,
		cfg:     deps.Config,
		openers: openerResolver{client: deps.Client, registry: deps.Registry, logger: logger},
		metrics: deps.Metrics,
		logger:  logger,
	}
}

// FormatLine renders one message as a transcript line.
func FormatLine(msg *platform.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s : %s", msg.Timestamp.UTC().Format(transcriptTimeLayout), msg.Author.Name, msg.Content)
	if len(msg.Attachments) > 0 {
		urls := make([]string, len(msg.Attachments))
		for i, a := range msg.Attachments {
			urls[i] = a.URL
		}
		b.WriteString(" [ATTACHMENTS: ")
		b.WriteString(strings.Join(urls, ", "))
		b.WriteString("]")
	}
	return b.String()
}

// TranscriptFileName is the upload name for a channel's transcript.
func TranscriptFileName(channelName string) string {
	return channelName + "_transcript.txt"
}

// Archive captures the full channel history and delivers it to the log
// channel and, best effort, to the opener.
func (s *TranscriptService) Archive(ctx context.Context, guildID string, channel *platform.Channel) (*TranscriptReport, error) {
	report := &TranscriptReport{ChannelName: channel.Name}

	scratch, err := os.CreateTemp(s.cfg.TranscriptDir, channel.Name+"-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create transcript file: %w", err)
	}
	defer os.Remove(scratch.Name())
	defer scratch.Close()

	err = s.client.History(ctx, channel.ID, func(msg *platform.Message) error {
		if report.Lines > 0 {
			if _, err := io.WriteString(scratch, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(scratch, FormatLine(msg)); err != nil {
			return err
		}
		report.Lines++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read history of %s: %w", channel.ID, err)
	}
	if err := scratch.Sync(); err != nil {
		return nil, fmt.Errorf("flush transcript: %w", err)
	}

	if s.cfg.LogChannelID != "" {
		err := s.upload(scratch, func(f *platform.File) error {
			_, err := s.client.Send(ctx, s.cfg.LogChannelID, platform.OutgoingMessage{
				Content: "📄 Transcript van " + channel.Name,
				File:    f,
			})
			return err
		}, channel.Name)
		if err != nil {
			report.AuditErr = apperrors.NewDeliveryFailure("log channel", err)
			s.deliveryFailed("log_channel", channel, report.AuditErr)
		} else {
			report.AuditDelivered = true
		}
	}

	openerID, opener := s.openers.resolve(ctx, guildID, channel)
	report.OpenerID = openerID
	if opener == nil {
		report.OpenerErr = apperrors.NewDeliveryFailure("opener", errOpenerUnresolved)
		s.deliveryFailed("opener_dm", channel, report.OpenerErr)
	} else {
		err := s.upload(scratch, func(f *platform.File) error {
			return s.client.SendDirect(ctx, opener.User.ID, platform.OutgoingMessage{
				Content: fmt.Sprintf("Hier is de transcript van jouw ticket %s:", channel.Name),
				File:    f,
			})
		}, channel.Name)
		if err != nil {
			report.OpenerErr = apperrors.NewDeliveryFailure("opener", err)
			s.deliveryFailed("opener_dm", channel, report.OpenerErr)
		} else {
			report.OpenerNotified = true
		}
	}

	s.metrics.TranscriptArchived(report.Lines)
	return report, nil
}

func (s *TranscriptService) upload(scratch *os.File, send func(*platform.File) error, channelName string) error {
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return send(&platform.File{
		Name:        TranscriptFileName(channelName),
		ContentType: "text/plain; charset=utf-8",
		Reader:      scratch,
	})
}

func (s *TranscriptService) deliveryFailed(target string, channel *platform.Channel, err error) {
	s.metrics.DeliveryFailed(target)
	s.logger.Debug("transcript delivery failed",
		zap.String("target", target),
		zap.String("channel_id", channel.ID),
		zap.Error(err))
}
