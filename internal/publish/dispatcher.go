package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/metrics"
	"github.com/erdidoqan/postrella/internal/ports"
)

// Destination is one platform an output should reach.
type Destination struct {
	Platform string
	// Account is nil for the site, which authenticates with site credentials.
	Account *domain.Account
	Site    domain.SiteCredentials
}

func (d Destination) credentials() domain.Credentials {
	creds := domain.Credentials{Site: d.Site}
	if d.Account != nil {
		acc := d.Account.Credentials()
		acc.Site = d.Site
		creds = acc
	}
	return creds
}

func (d Destination) accountID() *int64 {
	if d.Account == nil {
		return nil
	}
	id := d.Account.ID
	return &id
}

// Delivery pairs a destination with its payload. Err is set when the
// payload could not be prepared; the record is then stored as failed
// without calling the adapter.
type Delivery struct {
	Destination Destination
	Payload     domain.Payload
	Err         error
}

// Result is the outcome of one delivery in a fan-out.
type Result struct {
	Platform string
	Publish  domain.Publish
	Err      error
}

// Dispatcher invokes adapters and owns the Publish record lifecycle. Each
// adapter call is treated as atomic; retries at the HTTP level belong to
// the adapters.
type Dispatcher struct {
	registry  *Registry
	publishes ports.PublishRepository
	accounts  ports.AccountRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher wires the registry with storage.
func NewDispatcher(registry *Registry, publishes ports.PublishRepository, accounts ports.AccountRepository, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:  registry,
		publishes: publishes,
		accounts:  accounts,
		logger:    logger,
		now:       time.Now,
	}
}

// Registry exposes the adapter registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Send calls the adapter for dest without touching Publish records. A
// receipt without remote references is an error. Rotated tokens are saved
// back to the account on a best-effort basis.
func (d *Dispatcher) Send(ctx context.Context, dest Destination, payload domain.Payload) (domain.Receipt, error) {
	adapter, err := d.registry.Resolve(dest.Platform)
	if err != nil {
		return domain.Receipt{}, err
	}

	receipt, err := adapter.Publish(ctx, dest.credentials(), payload)
	if err == nil && !receipt.Valid() {
		err = domain.ErrEmptyReceipt
	}

	if receipt.Rotated != nil && dest.Account != nil && d.accounts != nil {
		if uErr := d.accounts.UpdateAccountTokens(ctx, dest.Account.ID, *receipt.Rotated); uErr != nil {
			d.logger.Warn("persist refreshed token failed", "platform", dest.Platform, "account_id", dest.Account.ID, "error", uErr)
		} else {
			dest.Account.AccessToken = receipt.Rotated.AccessToken
			dest.Account.RefreshToken = receipt.Rotated.RefreshToken
		}
	}

	if err != nil {
		metrics.RecordPublish(dest.Platform, string(domain.PublishFailed))
		return domain.Receipt{}, err
	}
	metrics.RecordPublish(dest.Platform, string(domain.PublishPublished))
	return receipt, nil
}

// Record stores an already successful delivery as a published record.
func (d *Dispatcher) Record(ctx context.Context, outputID int64, dest Destination, receipt domain.Receipt) (domain.Publish, error) {
	record := domain.Publish{
		OutputID:  outputID,
		Platform:  dest.Platform,
		AccountID: dest.accountID(),
		Status:    domain.PublishPending,
	}
	if err := record.Complete(receipt, d.now()); err != nil {
		return domain.Publish{}, err
	}
	stored, err := d.publishes.InsertPublish(ctx, record)
	if err != nil {
		return domain.Publish{}, fmt.Errorf("insert publish: %w", err)
	}
	return stored, nil
}

// Deliver creates a pending record and, unless it is scheduled for later,
// settles it with the adapter outcome. The returned error is the delivery
// error; the record reflects it either way.
func (d *Dispatcher) Deliver(ctx context.Context, outputID int64, delivery Delivery, scheduledAt *time.Time) (domain.Publish, error) {
	record, err := d.publishes.InsertPublish(ctx, domain.Publish{
		OutputID:    outputID,
		Platform:    delivery.Destination.Platform,
		AccountID:   delivery.Destination.accountID(),
		Status:      domain.PublishPending,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		return domain.Publish{}, fmt.Errorf("insert publish: %w", err)
	}

	if delivery.Err == nil && scheduledAt != nil && scheduledAt.After(d.now()) {
		return record, nil
	}
	return d.Settle(ctx, record, delivery)
}

// Settle delivers a pending record and stores the terminal status.
func (d *Dispatcher) Settle(ctx context.Context, record domain.Publish, delivery Delivery) (domain.Publish, error) {
	sendErr := delivery.Err
	var receipt domain.Receipt
	if sendErr == nil {
		receipt, sendErr = d.Send(ctx, delivery.Destination, delivery.Payload)
	}

	if sendErr != nil {
		if err := record.Fail(sendErr.Error()); err != nil {
			return record, err
		}
	} else if err := record.Complete(receipt, d.now()); err != nil {
		return record, err
	}

	if err := d.publishes.SettlePublish(ctx, record); err != nil {
		return record, fmt.Errorf("settle publish %d: %w", record.ID, err)
	}
	return record, sendErr
}

// FanOut delivers one output to several platforms, one at a time. A
// failure on one platform never affects the records of the others.
func (d *Dispatcher) FanOut(ctx context.Context, outputID int64, deliveries []Delivery, scheduledAt *time.Time) []Result {
	results := make([]Result, 0, len(deliveries))
	for _, delivery := range deliveries {
		if ctx.Err() != nil {
			results = append(results, Result{Platform: delivery.Destination.Platform, Err: ctx.Err()})
			continue
		}
		record, err := d.Deliver(ctx, outputID, delivery, scheduledAt)
		if err != nil {
			d.logger.Warn("publish failed", "platform", delivery.Destination.Platform, "output_id", outputID, "error", err)
		}
		results = append(results, Result{Platform: delivery.Destination.Platform, Publish: record, Err: err})
	}
	return results
}
