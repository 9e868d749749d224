package assignment

import (
	"github.com/google/uuid"

	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
)

// AssignResult is the structured outcome of a single assignment attempt.
// Expected conditions (already assigned, no eligible agents) are reported
// here rather than raised, so batch callers never abort mid-loop.
type AssignResult struct {
	OrderID   uuid.UUID      `json:"order_id"`
	AgentID   *uuid.UUID     `json:"agent_id,omitempty"`
	AgentName string         `json:"agent_name,omitempty"`
	Success   bool           `json:"success"`
	Code      pkgerrors.Code `json:"code,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// BatchResult tallies a batch assignment run.
type BatchResult struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []AssignResult `json:"results"`
}

// RedistributeResult reports a bulk reassignment away from one agent.
type RedistributeResult struct {
	AgentID    uuid.UUID   `json:"agent_id"`
	Freed      int         `json:"freed"`
	Batch      BatchResult `json:"batch"`
	FreedOrder []uuid.UUID `json:"freed_order_ids"`
}

// AgentStats summarizes one agent's load for reporting.
type AgentStats struct {
	AgentID       uuid.UUID `json:"agent_id"`
	Name          string    `json:"name"`
	MaxOrders     int       `json:"max_orders"`
	AssignedToday int       `json:"assigned_today"`
	HasCapacity   bool      `json:"has_capacity"`
	Utilization   float64   `json:"utilization"`
}

// Stats aggregates per-agent counts for the dashboard.
type Stats struct {
	Agents        []AgentStats `json:"agents"`
	TotalAssigned int          `json:"total_assigned_today"`
}
