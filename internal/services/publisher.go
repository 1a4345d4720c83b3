package services

import (
	"context"

	"bizledger/internal/amqp"
)

// Publisher sends ledger notifications and render jobs to the broker.
// *amqp.Client implements it.
//
//go:generate mockgen -destination=mocks_test.go -package=services -source=publisher.go
type Publisher interface {
	PublishRenderJob(ctx context.Context, msg *amqp.RenderJobMessage) error
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

var _ Publisher = (*amqp.Client)(nil)
