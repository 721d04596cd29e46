package message

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/leakstopper/leakstopper-cli/internal/model"
)

// BulkOptions configures a bulk generation run.
type BulkOptions struct {
	Sector      model.Sector
	CompanyName string
	MaxChars    int
	// Limit caps how many customers get messages, taken from the front of
	// the slice. Zero means all.
	Limit             int
	Concurrency       int
	RequestsPerSecond float64
	// Profile overrides the built-in sector profile when non-nil.
	Profile *SectorProfile
}

// GenerateBulk writes messages for the leading customers of the ranked
// slice. Per-customer failures are logged and skipped; environment-level
// failures (quota, credential, bad model) abort the whole run because every
// remaining request would fail the same way.
func GenerateBulk(ctx context.Context, gen Generator, customers []model.LeakedCustomer, opts BulkOptions) (map[string]*Response, error) {
	if opts.Limit > 0 && len(customers) > opts.Limit {
		customers = customers[:opts.Limit]
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	results := make(map[string]*Response, len(customers))
	var failed atomic.Int64

	for _, customer := range customers {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gCtx); err != nil {
					return err
				}
			}

			resp, err := gen.Generate(gCtx, Request{
				Customer:    customer,
				Sector:      opts.Sector,
				CompanyName: opts.CompanyName,
				MaxChars:    opts.MaxChars,
				Profile:     opts.Profile,
			})
			if err != nil {
				if isEnvironmentFailure(err) {
					return err
				}
				failed.Add(1)
				zap.L().Error("bulk generation: customer failed",
					zap.String("customer_id", customer.ID),
					zap.String("customer", customer.Name),
					zap.Error(err),
				)
				return nil // don't abort batch on individual failure
			}

			mu.Lock()
			results[customer.ID] = resp
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("bulk generation complete",
		zap.String("generator", gen.Name()),
		zap.Int("requested", len(customers)),
		zap.Int("succeeded", len(results)),
		zap.Int64("failed", failed.Load()),
	)

	return results, nil
}

// isEnvironmentFailure reports whether the error dooms every remaining
// request, not just this customer's.
func isEnvironmentFailure(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrModelNotFound)
}
