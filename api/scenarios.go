/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates schedules, wallets,
	and recharges that demonstrate specific features.

AVAILABLE SCENARIOS:

	weekend-getaway:  Round-trip schedules + funded personal wallet
	corporate-travel: Admin-issued wallet with expiry + commuter schedules
	sold-out-rush:    Nearly full schedule for contention demos
	expired-credits:  Admin wallet already past expiry, ready for the sweep

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create schedules
 3. Open wallets and recharge them

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "corporate-travel"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler wiring
  - server.go: Scenario routes
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/money"
	"github.com/skyfare/booking-engine/wallet"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "weekend-getaway",
		Name:        "Weekend Getaway",
		Description: "Round-trip schedules with a funded personal wallet",
		Category:    "booking",
	},
	{
		ID:          "corporate-travel",
		Name:        "Corporate Travel",
		Description: "Admin-issued wallet with an expiry plus commuter schedules",
		Category:    "wallet",
	},
	{
		ID:          "sold-out-rush",
		Name:        "Sold-Out Rush",
		Description: "Nearly full schedule for seat contention demos",
		Category:    "booking",
	},
	{
		ID:          "expired-credits",
		Name:        "Expired Credits",
		Description: "Admin wallet already past its expiry, ready for the sweep",
		Category:    "wallet",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "weekend-getaway":
		err = h.loadWeekendGetaway(ctx)
	case "corporate-travel":
		err = h.loadCorporateTravel(ctx)
	case "sold-out-rush":
		err = h.loadSoldOutRush(ctx)
	case "expired-credits":
		err = h.loadExpiredCredits(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) seedSchedule(ctx context.Context, id, route, origin, destination string, daysOut, seats int, adultFare string) error {
	return h.inventory.Save(ctx, inventory.Schedule{
		ID:             id,
		RouteName:      route,
		Origin:         origin,
		Destination:    destination,
		DepartureDate:  time.Now().AddDate(0, 0, daysOut),
		TotalSeats:     seats,
		AvailableSeats: seats,
		AdultFare:      money.MustParse(adultFare),
		IsActive:       true,
		CreatedAt:      time.Now(),
	})
}

func (h *Handler) loadWeekendGetaway(ctx context.Context) error {
	if err := h.seedSchedule(ctx, "sched-out", "Coastal Express", "Chennai", "Pondicherry", 7, 40, "450.00"); err != nil {
		return err
	}
	if err := h.seedSchedule(ctx, "sched-return", "Coastal Express", "Pondicherry", "Chennai", 9, 40, "450.00"); err != nil {
		return err
	}

	wlt, err := h.wallets.Create(ctx, "user-demo", wallet.KindSelfFunded, money.Zero())
	if err != nil {
		return err
	}
	_, err = h.wallets.Recharge(ctx, wlt.ID, money.MustParse("2500.00"), nil, "Demo top-up")
	return err
}

func (h *Handler) loadCorporateTravel(ctx context.Context) error {
	if err := h.seedSchedule(ctx, "sched-commute-am", "City Shuttle AM", "Whitefield", "Electronic City", 1, 60, "120.00"); err != nil {
		return err
	}
	if err := h.seedSchedule(ctx, "sched-commute-pm", "City Shuttle PM", "Electronic City", "Whitefield", 1, 60, "120.00"); err != nil {
		return err
	}

	wlt, err := h.wallets.Create(ctx, "user-corp", wallet.KindAdminIssued, money.MustParse("5000.00"))
	if err != nil {
		return err
	}
	expiresAt := time.Now().AddDate(0, 1, 0)
	_, err = h.wallets.Recharge(ctx, wlt.ID, money.MustParse("3000.00"), &expiresAt, "Monthly travel allowance")
	return err
}

func (h *Handler) loadSoldOutRush(ctx context.Context) error {
	return h.seedSchedule(ctx, "sched-rush", "Festival Special", "Bangalore", "Mysore", 3, 2, "350.00")
}

func (h *Handler) loadExpiredCredits(ctx context.Context) error {
	wlt, err := h.wallets.Create(ctx, "user-lapsed", wallet.KindAdminIssued, money.Zero())
	if err != nil {
		return err
	}
	expiresAt := time.Now().AddDate(0, 0, -1)
	_, err = h.wallets.Recharge(ctx, wlt.ID, money.MustParse("1000.00"), &expiresAt, "Lapsed allowance")
	return err
}
