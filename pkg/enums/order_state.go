package enums

import (
	"fmt"
	"strings"
)

// OrderState maps to the order_estado enum in Postgres. The set is flat:
// no state implies another and every state may be set by the owner.
type OrderState string

const (
	OrderStateRecibida    OrderState = "RECIBIDA"
	OrderStatePreparacion OrderState = "PREPARACION"
	OrderStatePagada      OrderState = "PAGADA"
	OrderStateEntregada   OrderState = "ENTREGADA"
	OrderStateCancelada   OrderState = "CANCELADA"
)

var validOrderStates = []OrderState{
	OrderStateRecibida,
	OrderStatePreparacion,
	OrderStatePagada,
	OrderStateEntregada,
	OrderStateCancelada,
}

// OrderStates lists every state in display order.
func OrderStates() []OrderState {
	out := make([]OrderState, len(validOrderStates))
	copy(out, validOrderStates)
	return out
}

// String implements fmt.Stringer.
func (s OrderState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderState.
func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderState converts raw input into an OrderState. Input is
// case-insensitive and surrounding whitespace is ignored.
func ParseOrderState(value string) (OrderState, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validOrderStates {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
