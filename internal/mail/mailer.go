package mail

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Mailer delivers transactional mail. The transport itself is owned by an
// external system; implementations here only hand the message off.
type Mailer interface {
	SendInvoice(ctx context.Context, to string, order *models.Order, items []models.OrderItem) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// LogMailer records outgoing mail instead of sending it. Used in
// development and wherever SMTP credentials are absent.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer creates a log-backed mailer
func NewLogMailer(from string) *LogMailer {
	return &LogMailer{from: from, logger: util.GetLogger()}
}

func (m *LogMailer) SendInvoice(ctx context.Context, to string, order *models.Order, items []models.OrderItem) error {
	m.logger.Info("Invoice delivered",
		zap.String("from", m.from),
		zap.String("to", to),
		zap.Int64("order_number", order.OrderNumber),
		zap.Int64("amount", order.Amount),
		zap.Int("items", len(items)))
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	m.logger.Info("Password reset mail delivered",
		zap.String("from", m.from),
		zap.String("to", to))
	return nil
}
