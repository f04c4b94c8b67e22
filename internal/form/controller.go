package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/sensorform/internal/lib/logger/sl"
	"github.com/speedwagon-io/sensorform/internal/model"
	"github.com/speedwagon-io/sensorform/internal/sender"
	"github.com/speedwagon-io/sensorform/internal/timeutil"
)

const DefaultStatusTTL = 5 * time.Second

var (
	ErrSubmitFailed   = errors.New("submission failed")
	ErrSubmitInFlight = errors.New("submission already in flight")
	ErrClosed         = errors.New("form closed")
	ErrUnknownField   = errors.New("unknown field")
)

// View is a snapshot of the form for rendering.
type View struct {
	Draft      model.SensorRecord `json:"draft"`
	Status     Status             `json:"status"`
	Submitting bool               `json:"submitting"`
}

type Stats struct {
	Attempted int64
	Succeeded int64
	Failed    int64
	Rejected  int64
	LastError error
}

// Controller owns the draft sensor record and the status message. All
// methods are safe for concurrent use; each one runs as a single event
// under the controller lock. Only the network call in Submit runs outside it.
type Controller struct {
	log       *slog.Logger
	sender    sender.Sender
	clock     timeutil.Clock
	statusTTL time.Duration

	mu       sync.Mutex
	draft    model.SensorRecord
	status   shownStatus
	lastGen  uint64
	inFlight bool
	closed   bool
	stats    Stats

	notifyMu sync.Mutex
	observer func(View)
}

func NewController(
	log *slog.Logger,
	sender sender.Sender,
	clock timeutil.Clock,
	statusTTL time.Duration,
) *Controller {
	if statusTTL <= 0 {
		statusTTL = DefaultStatusTTL
	}
	return &Controller{
		log:       log,
		sender:    sender,
		clock:     clock,
		statusTTL: statusTTL,
		draft:     model.NewSensorRecord(),
	}
}

// SetObserver registers fn to be called with a fresh View after every state
// change. Calls are serialized. fn must not block for long; it may call
// View or Stats but not methods that change state.
func (c *Controller) SetObserver(fn func(View)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.observer = fn
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) Draft() model.SensorRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Status
}

func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Change applies one field edit from raw input text.
func (c *Controller) Change(field, raw string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	next, err := ApplyChange(c.draft, field, raw)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.draft = next
	c.mu.Unlock()

	c.log.Debug("draft changed", slog.String("field", field))
	c.notify()
	return nil
}

// Reset restores the initial draft and clears the status immediately.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.draft = model.NewSensorRecord()
	c.status.cancel()
	c.mu.Unlock()

	c.log.Debug("form reset")
	c.notify()
	return nil
}

// Submit sends the current draft. On success the draft is reset; on failure
// it is kept for correction. Either way a status is shown for the TTL.
// A Submit issued while another is in flight is rejected with
// ErrSubmitInFlight and has no effect.
func (c *Controller) Submit(ctx context.Context) error {
	record, err := c.beginSubmit()
	if err != nil {
		return err
	}
	return c.finishSubmit(ctx, record)
}

// SubmitAsync snapshots the draft and starts the submission on its own
// goroutine. The returned channel receives exactly one result and is then
// closed. Rejections (ErrClosed, ErrSubmitInFlight) are delivered
// immediately.
func (c *Controller) SubmitAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	record, err := c.beginSubmit()
	if err != nil {
		done <- err
		close(done)
		return done
	}

	go func() {
		defer close(done)
		done <- c.finishSubmit(ctx, record)
	}()
	return done
}

func (c *Controller) beginSubmit() (model.SensorRecord, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return model.SensorRecord{}, ErrClosed
	}
	if c.inFlight {
		c.stats.Rejected++
		c.mu.Unlock()
		c.log.Warn("submit rejected, previous submission still in flight")
		return model.SensorRecord{}, ErrSubmitInFlight
	}
	c.inFlight = true
	c.stats.Attempted++
	record := c.draft.Clone()
	c.mu.Unlock()

	c.notify()
	return record, nil
}

func (c *Controller) finishSubmit(ctx context.Context, record model.SensorRecord) error {
	c.log.Info("submitting sensor metadata", slog.String("name", record.Name))
	sendErr := c.sender.Send(ctx, &record)

	c.mu.Lock()
	c.inFlight = false
	if sendErr != nil {
		c.stats.Failed++
		c.stats.LastError = sendErr
	} else {
		c.stats.Succeeded++
		c.stats.LastError = nil
	}

	closed := c.closed
	if !closed {
		if sendErr != nil {
			c.showLocked(StatusError, ErrorMessage)
		} else {
			c.draft = model.NewSensorRecord()
			c.showLocked(StatusSuccess, SuccessMessage)
		}
	}
	c.mu.Unlock()

	if !closed {
		c.notify()
	}

	if sendErr != nil {
		c.log.Error("failed to save sensor metadata",
			slog.String("name", record.Name),
			sl.Err(sendErr),
		)
		return fmt.Errorf("%w: %w", ErrSubmitFailed, sendErr)
	}

	c.log.Info("sensor metadata saved", slog.String("name", record.Name))
	return nil
}

// Close tears the form down. The pending status expiry is cancelled and
// later calls return ErrClosed. An in-flight submission completes its
// request without touching form state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.status.cancel()
}

// showLocked replaces the status, cancelling the previous expiry and
// scheduling a new one.
func (c *Controller) showLocked(kind StatusKind, text string) {
	c.status.cancel()

	c.lastGen++
	gen := c.lastGen
	c.status = shownStatus{
		Status: Status{Kind: kind, Text: text},
		gen:    gen,
		expiry: c.clock.AfterFunc(c.statusTTL, func() { c.expire(gen) }),
	}
}

func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	if c.closed || c.status.gen != gen {
		c.mu.Unlock()
		return
	}
	c.status = shownStatus{}
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) viewLocked() View {
	return View{
		Draft:      c.draft.Clone(),
		Status:     c.status.Status,
		Submitting: c.inFlight,
	}
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if c.observer == nil {
		return
	}
	c.observer(c.View())
}
