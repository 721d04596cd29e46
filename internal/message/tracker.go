package message

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// State is the lifecycle of one tracked generation request.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is a snapshot of one customer's generation request.
type Status struct {
	CustomerID string    `json:"customerId"`
	State      State     `json:"state"`
	Response   *Response `json:"response,omitempty"`
	Err        error     `json:"-"`
}

type trackedRequest struct {
	status Status
	cancel context.CancelFunc
}

// Tracker runs generation requests keyed by customer id. Each request is
// independently cancellable; one failure never affects another customer's
// request. Starting an id that is already in flight is a no-op.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*trackedRequest
	wg      sync.WaitGroup
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*trackedRequest)}
}

// Start launches a generation request for the customer in req. Returns
// false without starting anything when a request for that customer is
// still in flight. A terminal entry (succeeded or failed) is replaced.
func (t *Tracker) Start(ctx context.Context, gen Generator, req Request) bool {
	id := req.Customer.ID

	t.mu.Lock()
	if existing, ok := t.entries[id]; ok && existing.status.State == StatePending {
		t.mu.Unlock()
		return false
	}

	reqCtx, cancel := context.WithCancel(ctx)
	t.entries[id] = &trackedRequest{
		status: Status{CustomerID: id, State: StatePending},
		cancel: cancel,
	}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()

		resp, err := gen.Generate(reqCtx, req)

		t.mu.Lock()
		defer t.mu.Unlock()
		entry, ok := t.entries[id]
		if !ok {
			return
		}
		if err != nil {
			entry.status.State = StateFailed
			entry.status.Err = err
			zap.L().Warn("message generation failed",
				zap.String("customer_id", id),
				zap.String("generator", gen.Name()),
				zap.Error(err),
			)
			return
		}
		entry.status.State = StateSucceeded
		entry.status.Response = resp
	}()

	return true
}

// Status returns the current snapshot for a customer id.
func (t *Tracker) Status(id string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[id]
	if !ok {
		return Status{}, false
	}
	return entry.status, true
}

// Cancel aborts an in-flight request. Terminal entries are left intact.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[id]
	if !ok || entry.status.State != StatePending {
		return false
	}
	entry.cancel()
	return true
}

// Wait blocks until every started request has reached a terminal state.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
