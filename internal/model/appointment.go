package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus codes are persisted and exchanged as integers.
type AppointmentStatus int

const (
	StatusPending AppointmentStatus = iota
	StatusConfirmed
	StatusInProgress
	StatusRequireSTIsTest
	StatusWaitingForResult
	StatusCompleted
	StatusCancelled
	StatusRequestRefund
	StatusRequestCancel
)

var appointmentStatusNames = [...]string{
	"Pending",
	"Confirmed",
	"InProgress",
	"RequireSTIsTest",
	"WaitingForResult",
	"Completed",
	"Cancelled",
	"RequestRefund",
	"RequestCancel",
}

func (s AppointmentStatus) String() string {
	if s < 0 || int(s) >= len(appointmentStatusNames) {
		return fmt.Sprintf("AppointmentStatus(%d)", int(s))
	}
	return appointmentStatusNames[s]
}

func (s AppointmentStatus) Valid() bool {
	return s >= StatusPending && s <= StatusRequestCancel
}

// Terminal reports whether no further transition is possible.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus is the financial axis of an appointment, independent of its status.
type PaymentStatus int

const (
	PaymentAwaiting PaymentStatus = iota
	PaymentDeposited
	PaymentPaid
	PaymentRefunded
	PaymentPartiallyRefunded
)

var paymentStatusNames = [...]string{
	"AwaitingPayment",
	"Deposited",
	"Paid",
	"Refunded",
	"PartiallyRefunded",
}

func (p PaymentStatus) String() string {
	if p < 0 || int(p) >= len(paymentStatusNames) {
		return fmt.Sprintf("PaymentStatus(%d)", int(p))
	}
	return paymentStatusNames[p]
}

// MoneyTaken reports whether any amount has been collected.
func (p PaymentStatus) MoneyTaken() bool {
	return p == PaymentDeposited || p == PaymentPaid
}

type Appointment struct {
	Base
	AppointmentCode string              `db:"appointment_code" json:"appointment_code"`
	CustomerID      uuid.UUID           `db:"customer_id" json:"customer_id"`
	SlotID          uuid.UUID           `db:"slot_id" json:"slot_id"`
	AppointmentDate time.Time           `db:"appointment_date" json:"appointment_date"`
	Status          AppointmentStatus   `db:"status" json:"status"`
	PreviousStatus  *AppointmentStatus  `db:"previous_status" json:"previous_status,omitempty"`
	PaymentStatus   PaymentStatus       `db:"payment_status" json:"payment_status"`
	TotalAmount     float64             `db:"total_amount" json:"total_amount"`
	PaidAmount      float64             `db:"paid_amount" json:"paid_amount"`
	Result          string              `db:"result" json:"result,omitempty"`
	Version         int                 `db:"version" json:"version"`
	Details         []AppointmentDetail `db:"-" json:"appointment_details"`
}

// AppointmentDetail is one billed service line.
type AppointmentDetail struct {
	AppointmentID uuid.UUID   `db:"appointment_id" json:"-"`
	ServiceID     uuid.UUID   `db:"service_id" json:"service_id"`
	ServiceType   ServiceType `db:"service_type" json:"service_type"`
	Price         float64     `db:"price" json:"price"`
}

// HasTestService reports whether any detail line is a test.
func (a *Appointment) HasTestService() bool {
	for _, d := range a.Details {
		if d.ServiceType == ServiceTypeTest {
			return true
		}
	}
	return false
}

// HasResult reports whether a non-blank result note has been recorded.
func (a *Appointment) HasResult() bool {
	return strings.TrimSpace(a.Result) != ""
}

// AmountDue is what remains to be collected.
func (a *Appointment) AmountDue() float64 {
	due := a.TotalAmount - a.PaidAmount
	if due < 0 {
		return 0
	}
	return due
}

// Committed reports whether the appointment still occupies its slot.
func (a *Appointment) Committed() bool {
	return a.Status != StatusCancelled
}

// NewAppointmentCode builds the human-readable booking reference.
func NewAppointmentCode(date time.Time, id uuid.UUID) string {
	return fmt.Sprintf("APT-%s-%s", date.Format("20060102"), strings.ToUpper(id.String()[:6]))
}

type BookAppointmentRequest struct {
	CustomerID uuid.UUID   `json:"customer_id" binding:"required"`
	SlotID     uuid.UUID   `json:"slot_id" binding:"required"`
	ServiceIDs []uuid.UUID `json:"service_ids" binding:"required,min=1"`
}

type AdvanceRequest struct {
	StaffID    uuid.UUID         `json:"staff_id" binding:"required"`
	NextStatus AppointmentStatus `json:"next_status" binding:"min=0,max=8"`
}

type RequestCancelRequest struct {
	CustomerID uuid.UUID `json:"customer_id" binding:"required"`
}

type RequestSTITestRequest struct {
	StaffID   uuid.UUID `json:"staff_id" binding:"required"`
	ServiceID uuid.UUID `json:"service_id" binding:"required"`
}

type RecordResultRequest struct {
	StaffID uuid.UUID `json:"staff_id" binding:"required"`
	Result  string    `json:"result" binding:"required,max=4000"`
}

type StaffActionRequest struct {
	StaffID uuid.UUID `json:"staff_id" binding:"required"`
}

type AppointmentFilters struct {
	CustomerID uuid.UUID
	SlotID     uuid.UUID
	Status     *AppointmentStatus
}
