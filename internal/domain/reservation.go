package domain

import (
	"github.com/google/uuid"
)

// ReservationStatus is the booking status owned by the reservation lifecycle
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// PurchaseMechanism is how the client pays for the unit
type PurchaseMechanism string

const (
	PurchaseMechanismCash          PurchaseMechanism = "cash"
	PurchaseMechanismBankFinancing PurchaseMechanism = "bank_financing"
)

// CreditStatus is the reservation's position in the financing / title pipeline
type CreditStatus string

const (
	CreditStatusPending       CreditStatus = "pending"
	CreditStatusInProgress    CreditStatus = "in_progress"
	CreditStatusRejected      CreditStatus = "rejected"
	CreditStatusTitleTransfer CreditStatus = "title_transfer"
	CreditStatusSold          CreditStatus = "sold"
)

// CreditStatuses lists every credit status in pipeline order
var CreditStatuses = []CreditStatus{
	CreditStatusPending,
	CreditStatusInProgress,
	CreditStatusRejected,
	CreditStatusTitleTransfer,
	CreditStatusSold,
}

// Reservation is the read view of an external reservation record
type Reservation struct {
	ID                uuid.UUID
	UnitID            uuid.UUID
	MarketerID        uuid.UUID
	Status            ReservationStatus
	PurchaseMechanism PurchaseMechanism
	IsSupportedBank   bool
	CreditStatus      CreditStatus
}

// IsBankFinanced reports whether the sale goes through bank financing
func (r *Reservation) IsBankFinanced() bool {
	return r.PurchaseMechanism == PurchaseMechanismBankFinancing
}

// UnitStatus is the sales status of a property unit
type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusReserved  UnitStatus = "reserved"
	UnitStatusSold      UnitStatus = "sold"
)

// Department groups users for notification targeting
type Department string

const (
	DepartmentCredit     Department = "credit"
	DepartmentSales      Department = "sales"
	DepartmentAccounting Department = "accounting"
)

// Role is a user's role within their department
type Role string

const (
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)
