/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built tenants that show each termination route and tier.
	Each scenario creates a tenant, records payments and issues notices
	through the service, so every notice passes the same rules a real one
	would.

AVAILABLE SCENARIOS:

	paid-up:         Rent paid on every due date
	strike-ready:    First rent five working days late
	three-strikes:   Three strikes on separate occasions, filing window open
	remedy-breach:   Remedy notice expired with the named debt unpaid
	arrears-21-days: Nothing paid for 21 days

HOW SCENARIOS WORK:
 1. Create a tenant (weekly, $500, due Wednesday, from 2025-03-05)
 2. Record payments
 3. Issue notices back-dated to their send times
 4. Return the tenant and the as_of date that shows the scenario

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "three-strikes"}

	GET /api/tenants/{tenant_id}/status?as_of={as_of}

NOTE:

	Dates are fixed in March 2025 so the outcome is the same on every run.
	Scenarios add tenants; nothing is reset.

SEE ALSO:
  - handlers.go: Handler context
  - tenancy/service.go: IssueNotice
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/tenancy"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	AsOf        string `json:"as_of"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse is the tenant a scenario created.
type LoadScenarioResponse struct {
	Scenario ScenarioDTO `json:"scenario"`
	TenantID string      `json:"tenant_id"`
}

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler, id generic.TenantID) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "paid-up",
			Name:        "Paid Up",
			Description: "Rent paid in full on every due date",
			Category:    "clear",
			AsOf:        "2025-03-26",
		},
		load: loadPaidUp,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "strike-ready",
			Name:        "Strike Ready",
			Description: "Rent due 5 March unpaid for five working days",
			Category:    "strikes",
			AsOf:        "2025-03-12",
		},
		load: loadNothing,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "three-strikes",
			Name:        "Three Strikes",
			Description: "Strikes for rent due 5, 12 and 19 March; apply to the Tribunal by 23 April",
			Category:    "termination",
			AsOf:        "2025-03-27",
		},
		load: loadThreeStrikes,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "remedy-breach",
			Name:        "Unremedied Breach",
			Description: "Remedy notice for rent due 5 March expired on 21 March unpaid",
			Category:    "termination",
			AsOf:        "2025-03-24",
		},
		load: loadRemedyBreach,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "arrears-21-days",
			Name:        "21 Days in Arrears",
			Description: "Nothing paid since rent fell due on 5 March",
			Category:    "termination",
			AsOf:        "2025-03-26",
		},
		load: loadNothing,
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario creates the tenant for a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for _, s := range scenarios {
		if s.ID != req.ScenarioID {
			continue
		}
		id, err := h.loadScenario(r.Context(), s)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario %s", s.ID), err)
			return
		}
		writeJSON(w, http.StatusCreated, LoadScenarioResponse{Scenario: s.ScenarioDTO, TenantID: string(id)})
		return
	}
	writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) (generic.TenantID, error) {
	tenant, err := h.Service.CreateTenant(ctx, tenancy.TenantInput{
		Name:          "Demo: " + s.Name,
		Region:        "AUK",
		Frequency:     "weekly",
		RentAmount:    generic.Dollars(500),
		DueDay:        "wednesday",
		TrackingStart: scenarioDate(5),
	})
	if err != nil {
		return "", err
	}
	if err := s.load(ctx, h, tenant.ID); err != nil {
		return "", err
	}
	h.Logger.InfoContext(ctx, "scenario loaded", "scenario", s.ID, "tenant_id", tenant.ID)
	return tenant.ID, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// scenarioDate is a day in March 2025.
func scenarioDate(day int) generic.TimePoint {
	return generic.NewTimePoint(2025, time.March, day)
}

func (h *Handler) scenarioTime(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 0, 0, 0, h.location())
}

func loadNothing(context.Context, *Handler, generic.TenantID) error { return nil }

func loadPaidUp(ctx context.Context, h *Handler, id generic.TenantID) error {
	for _, day := range []int{5, 12, 19, 26} {
		if err := h.pay(ctx, id, generic.Dollars(500), scenarioDate(day)); err != nil {
			return err
		}
	}
	return nil
}

// loadThreeStrikes: each week's rent is paid the day after a strike for it.
func loadThreeStrikes(ctx context.Context, h *Handler, id generic.TenantID) error {
	for _, day := range []int{13, 20, 27} {
		if err := h.pay(ctx, id, generic.Dollars(500), scenarioDate(day)); err != nil {
			return err
		}
	}
	for _, day := range []int{12, 19, 26} {
		sentAt := h.scenarioTime(day, 10)
		_, err := h.Service.IssueNotice(ctx, tenancy.NoticeRequest{
			TenantID: id,
			Type:     notice.Strike,
			Method:   notice.Email,
			SentAt:   &sentAt,
		})
		if err != nil {
			return fmt.Errorf("strike on %d March: %w", day, err)
		}
	}
	return nil
}

func loadRemedyBreach(ctx context.Context, h *Handler, id generic.TenantID) error {
	sentAt := h.scenarioTime(7, 10)
	_, err := h.Service.IssueNotice(ctx, tenancy.NoticeRequest{
		TenantID: id,
		Type:     notice.Remedy,
		Method:   notice.Email,
		SentAt:   &sentAt,
	})
	return err
}

func (h *Handler) pay(ctx context.Context, id generic.TenantID, amount generic.Money, date generic.TimePoint) error {
	_, err := h.Service.RecordPayment(ctx, id, tenancy.PaymentInput{Amount: amount, Date: date, Reference: "scenario"})
	return err
}
