// Package statemachine holds the appointment lifecycle as pure functions. Every guard a
// transition depends on is passed in explicitly through Guards, so nothing here touches
// storage, the network or the clock.
package statemachine

import (
	"fmt"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"

	"github.com/jwalitptl/booking-engine/internal/model"
)

// Event is a closed set of lifecycle triggers.
type Event interface {
	Name() string
	event()
}

// RequestCancel is raised by the customer who owns the appointment.
type RequestCancel struct{}

// StaffAdvance moves the appointment to Next on behalf of clinic staff.
type StaffAdvance struct {
	Next model.AppointmentStatus
}

// ApproveCancel is a staff or manager decision on a cancellation, either answering a
// customer request or initiated by staff.
type ApproveCancel struct{}

// RejectCancel denies a pending cancellation request.
type RejectCancel struct{}

// RefundCompleted is raised by the payment collaborator once money is returned.
type RefundCompleted struct{}

func (RequestCancel) Name() string   { return "request_cancel" }
func (e StaffAdvance) Name() string  { return "advance_to_" + e.Next.String() }
func (ApproveCancel) Name() string   { return "approve_cancel" }
func (RejectCancel) Name() string    { return "reject_cancel" }
func (RefundCompleted) Name() string { return "refund_completed" }

func (RequestCancel) event()   {}
func (StaffAdvance) event()    {}
func (ApproveCancel) event()   {}
func (RejectCancel) event()    {}
func (RefundCompleted) event() {}

// Guards carries every predicate a transition may consult.
type Guards struct {
	PaymentStatus  model.PaymentStatus
	HasTestService bool
	HasResult      bool
	PreviousStatus *model.AppointmentStatus
}

// GuardsFor derives guards from a loaded appointment.
func GuardsFor(a *model.Appointment) Guards {
	return Guards{
		PaymentStatus:  a.PaymentStatus,
		HasTestService: a.HasTestService(),
		HasResult:      a.HasResult(),
		PreviousStatus: a.PreviousStatus,
	}
}

// Transition returns the status reached from current by ev, or a typed error.
func Transition(current model.AppointmentStatus, ev Event, g Guards) (model.AppointmentStatus, error) {
	if !current.Valid() {
		return current, invalid(current, ev, "unknown status")
	}
	if current.Terminal() {
		return current, apperrors.New(apperrors.KindTerminalState,
			fmt.Sprintf("appointment is %s and cannot change", current)).
			WithDetail("status", int(current))
	}

	switch e := ev.(type) {
	case RequestCancel:
		return requestCancel(current, ev, g)
	case StaffAdvance:
		return staffAdvance(current, e, g)
	case ApproveCancel:
		switch current {
		case model.StatusRequestCancel, model.StatusPending, model.StatusConfirmed, model.StatusRequireSTIsTest:
			if g.PaymentStatus.MoneyTaken() {
				return model.StatusRequestRefund, nil
			}
			return model.StatusCancelled, nil
		}
		return current, invalid(current, ev, "nothing to cancel")
	case RejectCancel:
		if current != model.StatusRequestCancel {
			return current, invalid(current, ev, "no cancellation request pending")
		}
		if g.PreviousStatus == nil || !cancellable(*g.PreviousStatus) {
			return current, invalid(current, ev, "previous status unknown")
		}
		return *g.PreviousStatus, nil
	case RefundCompleted:
		if current != model.StatusRequestRefund {
			return current, invalid(current, ev, "no refund requested")
		}
		return model.StatusCancelled, nil
	}
	return current, invalid(current, ev, "unsupported event")
}

func requestCancel(current model.AppointmentStatus, ev Event, g Guards) (model.AppointmentStatus, error) {
	if !cancellable(current) {
		return current, invalid(current, ev, "appointment can no longer be cancelled")
	}
	if g.PaymentStatus != model.PaymentPaid {
		return current, invalid(current, ev, "only fully paid appointments can request cancellation").
			WithDetail("payment_status", int(g.PaymentStatus))
	}
	return model.StatusRequestCancel, nil
}

func staffAdvance(current model.AppointmentStatus, e StaffAdvance, g Guards) (model.AppointmentStatus, error) {
	next := e.Next
	switch {
	case current == model.StatusPending && next == model.StatusConfirmed:
		return next, nil
	case current == model.StatusConfirmed && next == model.StatusInProgress:
		return next, nil
	case current == model.StatusInProgress && next == model.StatusWaitingForResult:
		if !g.HasTestService {
			return current, invalid(current, e, "only test appointments wait for results")
		}
		return next, nil
	case current == model.StatusInProgress && next == model.StatusRequireSTIsTest:
		if g.HasTestService {
			return current, invalid(current, e, "appointment already includes a test")
		}
		return next, nil
	case current == model.StatusRequireSTIsTest && next == model.StatusWaitingForResult:
		if !g.HasTestService {
			return current, invalid(current, e, "no test has been ordered")
		}
		if g.PaymentStatus != model.PaymentPaid {
			return current, invalid(current, e, "ordered test is not paid").
				WithDetail("payment_status", int(g.PaymentStatus))
		}
		return next, nil
	case next == model.StatusCompleted:
		return complete(current, e, g)
	}
	return current, invalid(current, e, "transition not allowed")
}

// complete only succeeds once a result has been recorded; without one the caller is
// expected to route staff to result entry.
func complete(current model.AppointmentStatus, e StaffAdvance, g Guards) (model.AppointmentStatus, error) {
	switch current {
	case model.StatusWaitingForResult:
	case model.StatusInProgress:
		if g.HasTestService {
			return current, invalid(current, e, "test appointments complete after results")
		}
	default:
		return current, invalid(current, e, "transition not allowed")
	}
	if !g.HasResult {
		return current, apperrors.New(apperrors.KindMissingResult, "a result must be recorded before completion").
			WithDetail("status", int(current))
	}
	return model.StatusCompleted, nil
}

// CanRequestSTITest checks whether a doctor-ordered test may be appended.
func CanRequestSTITest(current model.AppointmentStatus, g Guards) error {
	if current.Terminal() {
		return apperrors.New(apperrors.KindTerminalState,
			fmt.Sprintf("appointment is %s and cannot change", current)).
			WithDetail("status", int(current))
	}
	if current != model.StatusRequireSTIsTest {
		return apperrors.New(apperrors.KindInvalidState, "tests can only be ordered after a consultation").
			WithDetail("status", int(current))
	}
	if g.HasTestService {
		return apperrors.New(apperrors.KindInvalidState, "appointment already includes a test").
			WithDetail("status", int(current))
	}
	return nil
}

// Available lists the events that would currently succeed.
func Available(current model.AppointmentStatus, g Guards) []Event {
	candidates := []Event{
		RequestCancel{},
		StaffAdvance{Next: model.StatusConfirmed},
		StaffAdvance{Next: model.StatusInProgress},
		StaffAdvance{Next: model.StatusRequireSTIsTest},
		StaffAdvance{Next: model.StatusWaitingForResult},
		StaffAdvance{Next: model.StatusCompleted},
		ApproveCancel{},
		RejectCancel{},
		RefundCompleted{},
	}
	var out []Event
	for _, ev := range candidates {
		if _, err := Transition(current, ev, g); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

func cancellable(s model.AppointmentStatus) bool {
	return s == model.StatusPending || s == model.StatusConfirmed || s == model.StatusRequireSTIsTest
}

func invalid(current model.AppointmentStatus, ev Event, reason string) *apperrors.AppError {
	return apperrors.New(apperrors.KindInvalidState, fmt.Sprintf("%s from %s: %s", ev.Name(), current, reason)).
		WithDetail("status", int(current)).
		WithDetail("event", ev.Name())
}
