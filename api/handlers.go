/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Schedules:
    GET    /api/schedules                        Search schedules
    POST   /api/schedules                        Create schedule
    GET    /api/schedules/{id}                   Get schedule details
    GET    /api/schedules/{id}/availability      Get seat availability

  Bookings:
    POST   /api/bookings                         Create booking (PENDING)
    GET    /api/bookings/{reference}             Get booking by reference
    POST   /api/bookings/{reference}/confirm     Pay and confirm
    POST   /api/bookings/{reference}/payment/callback  Gateway callback
    POST   /api/bookings/{reference}/cancel      Cancel and refund
    POST   /api/bookings/{reference}/complete    Mark travelled
    GET    /api/users/{userID}/bookings          User booking history

  Wallets:
    POST   /api/wallets                          Open wallet
    GET    /api/wallets/{id}                     Get wallet
    POST   /api/wallets/{id}/recharge            Credit wallet
    GET    /api/wallets/{id}/balance             Current balance
    GET    /api/wallets/{id}/transactions        Ledger history
    GET    /api/wallets/{id}/audit               Replay ledger vs balance

  Drafts:
    POST   /api/drafts                           Save in-progress form state
    GET    /api/drafts/{id}                      Fetch draft
    DELETE /api/drafts/{id}                      Discard draft

  Admin:
    POST   /api/admin/expiry/sweep               Run wallet expiry sweep now

REQUEST FLOW:
  1. Decode and validate input
  2. Call domain logic (inventory, ledger, orchestrator)
  3. Serialize response
  4. Map domain errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (state transitions, seats, balance)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skyfare/booking-engine/booking"
	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/payment"
	"github.com/skyfare/booking-engine/store/sqlite"
	"github.com/skyfare/booking-engine/wallet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	store     *sqlite.Store
	inventory *inventory.Service
	wallets   *wallet.Service
	bookings  *booking.Service
	payments  *payment.Orchestrator
	sweeper   *wallet.Reconciler
	drafts    *DraftStore
	validate  *validator.Validate

	// Track currently loaded demo scenario
	currentScenario string
}

// NewHandler creates an API handler wired to the given services.
func NewHandler(
	store *sqlite.Store,
	inv *inventory.Service,
	wallets *wallet.Service,
	bookings *booking.Service,
	payments *payment.Orchestrator,
	sweeper *wallet.Reconciler,
	drafts *DraftStore,
) *Handler {
	return &Handler{
		store:     store,
		inventory: inv,
		wallets:   wallets,
		bookings:  bookings,
		payments:  payments,
		sweeper:   sweeper,
		drafts:    drafts,
		validate:  validator.New(),
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[API] Failed to encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decodeAndValidate decodes the request body into dst and runs validation.
// Writes the error response itself and returns false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// inventoryError maps inventory package errors to HTTP responses.
func inventoryError(w http.ResponseWriter, err error) {
	switch {
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Schedule not found", err)
	case errors.Is(err, inventory.ErrInsufficientInventory):
		writeError(w, http.StatusConflict, "Not enough seats", err)
	case inventory.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// walletError maps wallet package errors to HTTP responses.
func walletError(w http.ResponseWriter, err error) {
	switch {
	case wallet.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Wallet not found", err)
	case errors.Is(err, wallet.ErrWalletExists):
		writeError(w, http.StatusConflict, "Wallet already exists", err)
	case errors.Is(err, wallet.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "Insufficient balance", err)
	case wallet.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// bookingError maps booking and payment errors to HTTP responses.
func bookingError(w http.ResponseWriter, err error) {
	switch {
	case booking.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Booking not found", err)
	case errors.Is(err, booking.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, "Invalid booking state", err)
	case errors.Is(err, inventory.ErrInsufficientInventory):
		writeError(w, http.StatusConflict, "Not enough seats", err)
	case errors.Is(err, wallet.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "Insufficient balance", err)
	case errors.Is(err, payment.ErrPaymentVerificationFailed):
		writeError(w, http.StatusBadRequest, "Payment verification failed", err)
	case booking.IsClientError(err), wallet.IsClientError(err),
		inventory.IsClientError(err), payment.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// CreateSchedule handles POST /api/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	departure, err := time.Parse(time.RFC3339, req.DepartureDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid departure_date", err)
		return
	}
	adult, err := parseMoney(req.AdultFare)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid adult_fare", err)
		return
	}
	child, err := parseMoney(req.ChildFare)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid child_fare", err)
		return
	}
	infant, err := parseMoney(req.InfantFare)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid infant_fare", err)
		return
	}

	s := inventory.Schedule{
		ID:             req.ID,
		RouteName:      req.RouteName,
		Origin:         req.Origin,
		Destination:    req.Destination,
		DepartureDate:  departure,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.TotalSeats,
		AdultFare:      adult,
		ChildFare:      child,
		InfantFare:     infant,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	if err := h.inventory.Save(r.Context(), s); err != nil {
		inventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, scheduleDTO(&s))
}

// ListSchedules handles GET /api/schedules?origin=&destination=&date=
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
			return
		}
		date = &d
	}

	schedules, err := h.inventory.Search(r.Context(),
		r.URL.Query().Get("origin"), r.URL.Query().Get("destination"), date)
	if err != nil {
		inventoryError(w, err)
		return
	}

	dtos := make([]ScheduleDTO, len(schedules))
	for i := range schedules {
		dtos[i] = scheduleDTO(&schedules[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSchedule handles GET /api/schedules/{scheduleID}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := h.inventory.Get(r.Context(), chi.URLParam(r, "scheduleID"))
	if err != nil {
		inventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleDTO(s))
}

// GetAvailability handles GET /api/schedules/{scheduleID}/availability
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	available, total, err := h.inventory.Availability(r.Context(), id)
	if err != nil {
		inventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schedule_id":     id,
		"available_seats": available,
		"total_seats":     total,
	})
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking handles POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	params, err := bookingParams(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	b, err := h.bookings.Create(r.Context(), params)
	if err != nil {
		bookingError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingDTO(b))
}

func bookingParams(req CreateBookingRequest) (booking.CreateParams, error) {
	discount, err := parseMoney(req.Discount)
	if err != nil {
		return booking.CreateParams{}, err
	}
	passengers := make([]booking.Passenger, len(req.Passengers))
	for i, p := range req.Passengers {
		passengers[i] = booking.Passenger{
			Name:     p.Name,
			Age:      p.Age,
			Type:     inventory.PassengerType(p.Type),
			SeatPref: p.SeatPref,
		}
	}
	return booking.CreateParams{
		UserID:           req.UserID,
		ScheduleID:       req.ScheduleID,
		ReturnScheduleID: req.ReturnScheduleID,
		TripType:         booking.TripType(req.TripType),
		Passengers:       passengers,
		Discount:         discount,
	}, nil
}

// GetBooking handles GET /api/bookings/{reference}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.ByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		bookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingDTO(b))
}

// ListUserBookings handles GET /api/users/{userID}/bookings
func (h *Handler) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.ForUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		bookingError(w, err)
		return
	}
	dtos := make([]BookingDTO, len(list))
	for i := range list {
		dtos[i] = bookingDTO(&list[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ConfirmBooking handles POST /api/bookings/{reference}/confirm
//
// WALLET settles synchronously. GATEWAY opens a payment intent and
// returns the order; the booking stays PENDING until the signed callback.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	var req ConfirmBookingRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.bookings.ByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		bookingError(w, err)
		return
	}

	switch booking.Method(req.Method) {
	case booking.MethodWallet:
		confirmed, err := h.payments.PayWithWallet(r.Context(), b.ID, req.WalletID)
		if err != nil {
			bookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bookingDTO(confirmed))
	case booking.MethodGateway:
		order, err := h.payments.BeginGatewayPayment(r.Context(), b.ID)
		if err != nil {
			bookingError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, gatewayOrderDTO(order))
	default:
		writeError(w, http.StatusBadRequest, "Unknown payment method", nil)
	}
}

// GatewayCallback handles POST /api/bookings/{reference}/payment/callback
func (h *Handler) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	var req GatewayCallbackRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.bookings.ByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		bookingError(w, err)
		return
	}
	confirmed, err := h.payments.ConfirmGatewayPayment(r.Context(), b.ID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		bookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingDTO(confirmed))
}

// CancelBooking handles POST /api/bookings/{reference}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.ByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		bookingError(w, err)
		return
	}
	cancelled, err := h.payments.Cancel(r.Context(), b.ID)
	if err != nil {
		bookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingDTO(cancelled))
}

// CompleteBooking handles POST /api/bookings/{reference}/complete
func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.ByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		bookingError(w, err)
		return
	}
	completed, err := h.bookings.MarkCompleted(r.Context(), b.ID)
	if err != nil {
		bookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingDTO(completed))
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

// CreateWallet handles POST /api/wallets
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	maxBalance, err := parseMoney(req.MaxBalance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid max_balance", err)
		return
	}
	created, err := h.wallets.Create(r.Context(), req.UserID, wallet.Kind(req.Kind), maxBalance)
	if err != nil {
		walletError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, walletDTO(created))
}

// GetWallet handles GET /api/wallets/{walletID}
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wlt, err := h.wallets.Get(r.Context(), chi.URLParam(r, "walletID"))
	if err != nil {
		walletError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletDTO(wlt))
}

// RechargeWallet handles POST /api/wallets/{walletID}/recharge
func (h *Handler) RechargeWallet(w http.ResponseWriter, r *http.Request) {
	var req RechargeWalletRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expires_at", err)
			return
		}
		expiresAt = &t
	}

	tx, err := h.wallets.Recharge(r.Context(), chi.URLParam(r, "walletID"), amount, expiresAt, req.Note)
	if err != nil {
		walletError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionDTO(tx))
}

// GetBalance handles GET /api/wallets/{walletID}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "walletID")
	balance, err := h.wallets.BalanceOf(r.Context(), id)
	if err != nil {
		walletError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wallet_id": id,
		"balance":   balance.String(),
	})
}

// ListTransactions handles GET /api/wallets/{walletID}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.wallets.Transactions(r.Context(), chi.URLParam(r, "walletID"))
	if err != nil {
		walletError(w, err)
		return
	}
	dtos := make([]TransactionDTO, len(txs))
	for i := range txs {
		dtos[i] = transactionDTO(&txs[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AuditWallet handles GET /api/wallets/{walletID}/audit
func (h *Handler) AuditWallet(w http.ResponseWriter, r *http.Request) {
	report, err := h.wallets.AuditLedger(r.Context(), chi.URLParam(r, "walletID"))
	if err != nil {
		walletError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditReportDTO{
		WalletID:   report.WalletID,
		Balance:    report.Balance.String(),
		LedgerSum:  report.LedgerSum.String(),
		TxCount:    report.TxCount,
		Consistent: report.Consistent,
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerExpirySweep handles POST /api/admin/expiry/sweep
//
// Runs the same sweep the background sweeper runs on its interval.
func (h *Handler) TriggerExpirySweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Sweep(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scanned":   result.Scanned,
		"processed": result.Processed,
		"failed":    result.Failed,
	})
}

// =============================================================================
// DRAFT HANDLERS
// =============================================================================

// SaveDraft handles POST /api/drafts
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req SaveDraftRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	draft := h.drafts.Save(req.UserID, req.Booking)
	writeJSON(w, http.StatusCreated, draft)
}

// GetDraft handles GET /api/drafts/{draftID}
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.drafts.Get(chi.URLParam(r, "draftID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Draft not found or expired", nil)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// DeleteDraft handles DELETE /api/drafts/{draftID}
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	h.drafts.Delete(chi.URLParam(r, "draftID"))
	w.WriteHeader(http.StatusNoContent)
}
