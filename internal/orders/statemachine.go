package orders

import (
	"github.com/skyserve/skyserve-backend/pkg/enums"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
)

// transitions is the full delivery lifecycle graph. Terminal states have no
// outgoing edges.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusAccepted, enums.OrderStatusCancelled},
	enums.OrderStatusAccepted:   {enums.OrderStatusPreparing, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing:  {enums.OrderStatusPrepared, enums.OrderStatusCancelled},
	enums.OrderStatusPrepared:   {enums.OrderStatusHandedOver},
	enums.OrderStatusHandedOver: {enums.OrderStatusInTransit},
	enums.OrderStatusInTransit:  {enums.OrderStatusDelivered},
}

// operatorTargets are the statuses a shop operator may set directly.
// handed_over is reachable only through dispatch assignment, in_transit only
// through the delayed scheduler, delivered only through customer
// confirmation, cancelled only through the cancel operation.
var operatorTargets = map[enums.OrderStatus]bool{
	enums.OrderStatusAccepted:  true,
	enums.OrderStatusPreparing: true,
	enums.OrderStatusPrepared:  true,
}

// CanTransition reports whether the lifecycle graph has an edge from one
// status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// OperatorCanSet reports whether the target status is reachable through the
// operator status-update operation at all.
func OperatorCanSet(to enums.OrderStatus) bool {
	return operatorTargets[to]
}

type transitionDetails struct {
	From enums.OrderStatus `json:"from"`
	To   enums.OrderStatus `json:"to"`
}

// invalidTransition builds the coded error for a disallowed edge, carrying
// both endpoint states in the details.
func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
		WithDetails(transitionDetails{From: from, To: to})
}
