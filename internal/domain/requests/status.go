// Package requests provides the approval workflow shared by purchase,
// withdrawal and correction requests: a per-kind transition table over
// PENDING, APPROVED, REJECTED and ISSUED. Terminal states are final; any
// transition the table does not list is an InvalidStateTransition.
package requests

import (
	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
)

// Kind identifies the request workflow family.
type Kind string

const (
	KindPurchase   Kind = "purchase"
	KindWithdrawal Kind = "withdrawal"
	KindCorrection Kind = "correction"
)

// transitions lists allowed edges per kind. Statuses missing from the map
// are terminal for that kind.
var transitions = map[Kind]map[entity.RequestStatus][]entity.RequestStatus{
	KindPurchase: {
		entity.StatusPending: {entity.StatusApproved, entity.StatusRejected},
	},
	KindCorrection: {
		entity.StatusPending: {entity.StatusApproved, entity.StatusRejected},
	},
	KindWithdrawal: {
		// Location moves may skip approval (PENDING -> ISSUED); custody
		// issuance additionally requires the APPROVED gate, enforced by
		// the withdrawal service on top of this table.
		entity.StatusPending:  {entity.StatusApproved, entity.StatusIssued, entity.StatusRejected},
		entity.StatusApproved: {entity.StatusIssued, entity.StatusRejected},
	},
}

// EnsureTransition validates the edge from -> to for the given kind.
func EnsureTransition(kind Kind, from, to entity.RequestStatus) error {
	if !to.Valid() {
		return apperror.NewValidation("invalid status").
			WithDetail("status", string(to))
	}
	for _, allowed := range transitions[kind][from] {
		if allowed == to {
			return nil
		}
	}
	return apperror.NewInvalidStateTransition(string(kind), string(from), string(to))
}

// IsTerminal reports whether the status has no outgoing edges for the kind.
func IsTerminal(kind Kind, status entity.RequestStatus) bool {
	return len(transitions[kind][status]) == 0
}

// MovesStock reports whether entering the status triggers the movement
// engine for the kind.
func MovesStock(kind Kind, to entity.RequestStatus) bool {
	switch kind {
	case KindPurchase, KindCorrection:
		return to == entity.StatusApproved
	case KindWithdrawal:
		return to == entity.StatusIssued
	}
	return false
}
