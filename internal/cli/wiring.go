package cli

import (
	"context"
	"fmt"

	"bizledger/internal/amqp"
	"bizledger/internal/backend"
	"bizledger/internal/config"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/render"
	"bizledger/internal/services"
)

// OpenBackend creates the ledger backend selected by DATA_BACKEND.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", bcfg.Type, err)
	}
	return result, nil
}

// ConnectBroker dials the broker when AMQP_URL is set. Without it both
// return values are nil.
func ConnectBroker(cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRenderQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return client, nil
}

// Publisher returns client as a services.Publisher, or a nil interface for
// a nil client.
func Publisher(client *amqp.Client) services.Publisher {
	if client == nil {
		return nil
	}
	return client
}

// NewRenderService builds the render service from the business profile and
// pricing settings.
func NewRenderService(cfg *config.Config, store ledger.Ledger, publisher services.Publisher, logger *log.Logger) *services.RenderService {
	return services.NewRenderService(
		services.RenderStores{Invoices: store, Templates: store, Renders: store},
		publisher,
		render.BusinessProfile{
			Name:    cfg.BusinessName,
			Email:   cfg.BusinessEmail,
			Address: cfg.BusinessAddress,
		},
		render.Pricing{
			TaxRate:  cfg.TaxRateDecimal(),
			Currency: cfg.CurrencySymbol,
		},
		logger,
	)
}
