// Package notify pushes text notifications to the farm manager.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/config"
	"github.com/mamadbah2/nogal/internal/domain/models"
	client "github.com/mamadbah2/nogal/pkg/clients/whatsapp"
)

// ErrNoRecipient is returned when a message has nobody to go to.
var ErrNoRecipient = errors.New("notification has no recipient")

const sendTimeout = 10 * time.Second

// Notifier delivers outbound messages.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
	NotifyManager(ctx context.Context, message string) error
}

// NewNotifier returns the WhatsApp notifier when it is configured and a
// logging one otherwise.
func NewNotifier(cfg config.WhatsAppConfig, logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled() {
		logger.Warn("whatsapp token missing, notifications are only logged")
		return NewLogNotifier(cfg.ManagerID, logger)
	}
	return NewWhatsAppService(cfg, client.NewClient(cfg), logger)
}

// WhatsAppService sends notifications through the WhatsApp Cloud API.
type WhatsAppService struct {
	cfg    config.WhatsAppConfig
	client client.Client
	logger *zap.Logger
}

// NewWhatsAppService wires a new service instance.
func NewWhatsAppService(cfg config.WhatsAppConfig, c client.Client, logger *zap.Logger) *WhatsAppService {
	svc := &WhatsAppService{
		cfg:    cfg,
		client: c,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// Send delivers one notification, to the manager when n.To is empty.
func (s *WhatsAppService) Send(ctx context.Context, n models.Notification) error {
	to := recipient(n.To, s.cfg.ManagerID)
	if to == "" {
		return ErrNoRecipient
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         to,
		Body:       n.Message,
		PreviewURL: n.PreviewURL,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	s.logger.Info("notification sent", zap.String("to", to), zap.String("message_id", resp.MessageID()))
	return nil
}

// NotifyManager sends a message to the configured farm manager.
func (s *WhatsAppService) NotifyManager(ctx context.Context, message string) error {
	return s.Send(ctx, models.Notification{Message: message})
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	managerID string
	logger    *zap.Logger
}

// NewLogNotifier builds a notifier that only logs.
func NewLogNotifier(managerID string, logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{managerID: managerID, logger: logger}
}

func (l *LogNotifier) Send(_ context.Context, n models.Notification) error {
	to := recipient(n.To, l.managerID)
	if to == "" {
		return ErrNoRecipient
	}
	l.logger.Info("notification", zap.String("to", to), zap.String("message", n.Message))
	return nil
}

func (l *LogNotifier) NotifyManager(ctx context.Context, message string) error {
	return l.Send(ctx, models.Notification{Message: message})
}

func recipient(to, manager string) string {
	if to = strings.TrimSpace(to); to != "" {
		return to
	}
	return strings.TrimSpace(manager)
}
