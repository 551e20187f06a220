/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry validate struct tags; handlers run them through a
  shared validator instance before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/skyfare/booking-engine/booking"
	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/money"
	"github.com/skyfare/booking-engine/payment"
	"github.com/skyfare/booking-engine/wallet"
)

// =============================================================================
// SCHEDULES
// =============================================================================

// ScheduleDTO represents a schedule in API responses.
type ScheduleDTO struct {
	ID             string `json:"id"`
	RouteName      string `json:"route_name"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartureDate  string `json:"departure_date"`
	TotalSeats     int    `json:"total_seats"`
	AvailableSeats int    `json:"available_seats"`
	AdultFare      string `json:"adult_fare"`
	ChildFare      string `json:"child_fare,omitempty"`
	InfantFare     string `json:"infant_fare,omitempty"`
	IsActive       bool   `json:"is_active"`
}

// CreateScheduleRequest is the request to create a schedule.
type CreateScheduleRequest struct {
	ID            string `json:"id" validate:"required"`
	RouteName     string `json:"route_name" validate:"required"`
	Origin        string `json:"origin" validate:"required"`
	Destination   string `json:"destination" validate:"required"`
	DepartureDate string `json:"departure_date" validate:"required"`
	TotalSeats    int    `json:"total_seats" validate:"required,gt=0"`
	AdultFare     string `json:"adult_fare" validate:"required"`
	ChildFare     string `json:"child_fare,omitempty"`
	InfantFare    string `json:"infant_fare,omitempty"`
}

func scheduleDTO(s *inventory.Schedule) ScheduleDTO {
	dto := ScheduleDTO{
		ID:             s.ID,
		RouteName:      s.RouteName,
		Origin:         s.Origin,
		Destination:    s.Destination,
		DepartureDate:  s.DepartureDate.Format(time.RFC3339),
		TotalSeats:     s.TotalSeats,
		AvailableSeats: s.AvailableSeats,
		AdultFare:      s.AdultFare.String(),
		IsActive:       s.IsActive,
	}
	if !s.ChildFare.IsZero() {
		dto.ChildFare = s.ChildFare.String()
	}
	if !s.InfantFare.IsZero() {
		dto.InfantFare = s.InfantFare.String()
	}
	return dto
}

// =============================================================================
// BOOKINGS
// =============================================================================

// PassengerRequest is one traveller in a booking request.
type PassengerRequest struct {
	Name     string `json:"name" validate:"required"`
	Age      int    `json:"age" validate:"gte=0,lte=120"`
	Type     string `json:"type" validate:"required,oneof=adult child infant"`
	SeatPref string `json:"seat_pref,omitempty"`
}

// CreateBookingRequest is the request to create a booking.
type CreateBookingRequest struct {
	UserID           string             `json:"user_id" validate:"required"`
	ScheduleID       string             `json:"schedule_id" validate:"required"`
	ReturnScheduleID string             `json:"return_schedule_id,omitempty"`
	TripType         string             `json:"trip_type,omitempty" validate:"omitempty,oneof=ONE_WAY ROUND_TRIP"`
	Passengers       []PassengerRequest `json:"passengers" validate:"required,min=1,dive"`
	Discount         string             `json:"discount,omitempty"`
}

// ConfirmBookingRequest picks the payment method for a pending booking.
type ConfirmBookingRequest struct {
	Method   string `json:"method" validate:"required,oneof=WALLET GATEWAY"`
	WalletID string `json:"wallet_id,omitempty" validate:"required_if=Method WALLET"`
}

// GatewayCallbackRequest is the signed callback from the payment gateway.
type GatewayCallbackRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// FareBreakdownDTO is the frozen fare breakdown on a booking.
type FareBreakdownDTO struct {
	BaseFare string `json:"base_fare"`
	Tax      string `json:"tax"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

// PassengerDTO is one traveller in API responses.
type PassengerDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Type     string `json:"type"`
	SeatPref string `json:"seat_pref,omitempty"`
}

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID               string           `json:"id"`
	Reference        string           `json:"reference"`
	UserID           string           `json:"user_id"`
	ScheduleID       string           `json:"schedule_id"`
	ReturnScheduleID string           `json:"return_schedule_id,omitempty"`
	TripType         string           `json:"trip_type"`
	Status           string           `json:"status"`
	PaymentStatus    string           `json:"payment_status"`
	PaymentMethod    string           `json:"payment_method,omitempty"`
	PaymentRef       string           `json:"payment_ref,omitempty"`
	Passengers       []PassengerDTO   `json:"passengers"`
	Fare             FareBreakdownDTO `json:"fare"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at,omitempty"`
}

func bookingDTO(b *booking.Booking) BookingDTO {
	dto := BookingDTO{
		ID:               b.ID,
		Reference:        b.Reference,
		UserID:           b.UserID,
		ScheduleID:       b.ScheduleID,
		ReturnScheduleID: b.ReturnScheduleID,
		TripType:         string(b.TripType),
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		PaymentMethod:    string(b.PaymentMethod),
		PaymentRef:       b.PaymentRef,
		Fare: FareBreakdownDTO{
			BaseFare: b.Fare.BaseFare.String(),
			Tax:      b.Fare.Tax.String(),
			Discount: b.Fare.Discount.String(),
			Total:    b.Fare.Total.String(),
		},
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
	}
	dto.Passengers = make([]PassengerDTO, len(b.Passengers))
	for i, p := range b.Passengers {
		dto.Passengers[i] = PassengerDTO{
			ID: p.ID, Name: p.Name, Age: p.Age,
			Type: string(p.Type), SeatPref: p.SeatPref,
		}
	}
	return dto
}

// GatewayOrderDTO is the open payment intent returned to the client.
type GatewayOrderDTO struct {
	OrderID  string `json:"order_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func gatewayOrderDTO(o *payment.Order) GatewayOrderDTO {
	return GatewayOrderDTO{
		OrderID:  o.ID,
		Amount:   o.Amount.String(),
		Currency: o.Currency,
		Receipt:  o.Receipt,
	}
}

// =============================================================================
// WALLETS
// =============================================================================

// CreateWalletRequest opens a wallet for a user.
type CreateWalletRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	Kind       string `json:"kind" validate:"required,oneof=ADMIN_ISSUED SELF_FUNDED"`
	MaxBalance string `json:"max_balance,omitempty"`
}

// RechargeWalletRequest credits a wallet.
type RechargeWalletRequest struct {
	Amount    string `json:"amount" validate:"required"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Note      string `json:"note,omitempty"`
}

// WalletDTO represents a wallet in API responses.
type WalletDTO struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Kind           string `json:"kind"`
	Balance        string `json:"balance"`
	InitialBalance string `json:"initial_balance,omitempty"`
	MaxBalance     string `json:"max_balance,omitempty"`
	IsActive       bool   `json:"is_active"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func walletDTO(w *wallet.Wallet) WalletDTO {
	dto := WalletDTO{
		ID:        w.ID,
		UserID:    w.UserID,
		Kind:      string(w.Kind),
		Balance:   w.Balance.String(),
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
	}
	if !w.InitialBalance.IsZero() {
		dto.InitialBalance = w.InitialBalance.String()
	}
	if !w.MaxBalance.IsZero() {
		dto.MaxBalance = w.MaxBalance.String()
	}
	if w.ExpiresAt != nil {
		dto.ExpiresAt = w.ExpiresAt.Format(time.RFC3339)
	}
	return dto
}

// TransactionDTO is one ledger entry in API responses.
type TransactionDTO struct {
	ID           string `json:"id"`
	WalletID     string `json:"wallet_id"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	BalanceAfter string `json:"balance_after"`
	BookingRef   string `json:"booking_ref,omitempty"`
	Description  string `json:"description,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func transactionDTO(tx *wallet.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:           tx.ID,
		WalletID:     tx.WalletID,
		Type:         string(tx.Type),
		Amount:       tx.Amount.String(),
		BalanceAfter: tx.BalanceAfter.String(),
		BookingRef:   tx.BookingRef,
		Description:  tx.Description,
		CreatedAt:    tx.CreatedAt.Format(time.RFC3339),
	}
}

// AuditReportDTO is the ledger replay result.
type AuditReportDTO struct {
	WalletID   string `json:"wallet_id"`
	Balance    string `json:"balance"`
	LedgerSum  string `json:"ledger_sum"`
	TxCount    int    `json:"tx_count"`
	Consistent bool   `json:"consistent"`
}

// =============================================================================
// DRAFTS
// =============================================================================

// SaveDraftRequest holds in-progress booking form state keyed by id,
// replacing ambient session storage.
type SaveDraftRequest struct {
	UserID  string               `json:"user_id" validate:"required"`
	Booking CreateBookingRequest `json:"booking" validate:"required"`
}

// DraftDTO is a stored draft with its expiry.
type DraftDTO struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Booking   CreateBookingRequest `json:"booking"`
	ExpiresAt string               `json:"expires_at"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// =============================================================================
// SHARED
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// parseMoney parses an optional decimal string, zero when empty.
func parseMoney(s string) (money.Amount, error) {
	if s == "" {
		return money.Zero(), nil
	}
	return money.FromString(s)
}
