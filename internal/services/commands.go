package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kakeibo/internal/core"
)

// Commands are the typed mutations the UI issues against the ledger.
// Submitting the form becomes an add or an update depending on whether
// an edit session is active; everything else maps one to one.
type (
	SubmitEntry struct {
		Entry core.Entry
	}

	DeleteTransaction struct {
		ID int64
	}

	StartEdit struct {
		ID int64
	}

	CancelEdit struct{}

	SelectPeriod struct {
		Year  int
		Month time.Month
	}
)

// FormFill is what the entry form shows when an edit starts: the stored
// fields with the amount back in its unsigned, typed form.
type FormFill struct {
	ID       int64
	Date     string
	Category string
	Amount   int64
	Memo     string
}

// Dispatcher routes commands to the ledger service and keeps the two
// pieces of UI state that outlive a request: the edit session and the
// selected period. Adding a transaction never moves the selected
// period; the user switches months explicitly.
type Dispatcher struct {
	svc     *LedgerService
	session *EditSession

	mu    sync.Mutex
	year  int
	month time.Month
}

func NewDispatcher(svc *LedgerService) *Dispatcher {
	now := time.Now()
	return &Dispatcher{
		svc:     svc,
		session: NewEditSession(),
		year:    now.Year(),
		month:   now.Month(),
	}
}

// Period returns the selected year and month.
func (d *Dispatcher) Period() (int, time.Month) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.year, d.month
}

// Session exposes the edit session for rendering.
func (d *Dispatcher) Session() *EditSession {
	return d.session
}

// Submit applies the form entry: an update when an edit session is
// active, an add otherwise. A successful update ends the session; a
// failed one leaves it active so the user can correct the form.
func (d *Dispatcher) Submit(ctx context.Context, cmd SubmitEntry) (core.Transaction, error) {
	if id, editing := d.session.Editing(); editing {
		tx, err := d.svc.UpdateTransaction(ctx, id, cmd.Entry)
		if err != nil {
			return core.Transaction{}, err
		}
		d.session.End()
		return tx, nil
	}
	return d.svc.AddTransaction(ctx, cmd.Entry)
}

// Delete removes a transaction. Deleting the transaction under edit
// ends the edit session.
func (d *Dispatcher) Delete(ctx context.Context, cmd DeleteTransaction) error {
	if err := d.svc.DeleteTransaction(ctx, cmd.ID); err != nil {
		return err
	}
	if id, editing := d.session.Editing(); editing && id == cmd.ID {
		d.session.End()
	}
	return nil
}

// Edit starts an edit session for the transaction and returns the
// values to prefill the form with.
func (d *Dispatcher) Edit(_ context.Context, cmd StartEdit) (FormFill, error) {
	tx, err := d.svc.Store().FindByID(cmd.ID)
	if err != nil {
		return FormFill{}, fmt.Errorf("start edit: %w", err)
	}
	d.session.Start(tx.ID)
	return FormFill{
		ID:       tx.ID,
		Date:     tx.Date,
		Category: tx.Category,
		Amount:   tx.Magnitude(),
		Memo:     tx.Memo,
	}, nil
}

// Cancel ends the edit session without touching the ledger.
func (d *Dispatcher) Cancel(_ context.Context, _ CancelEdit) {
	d.session.End()
}

// Select switches the displayed period.
func (d *Dispatcher) Select(_ context.Context, cmd SelectPeriod) error {
	if cmd.Month < time.January || cmd.Month > time.December {
		return fmt.Errorf("select period: %w", core.ErrInvalidDate)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.year = cmd.Year
	d.month = cmd.Month
	return nil
}
