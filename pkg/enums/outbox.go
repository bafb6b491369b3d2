package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox row refers to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateProduct OutboxAggregateType = "product"
	AggregateNegocio OutboxAggregateType = "negocio"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateProduct,
	AggregateNegocio,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a post-commit notification.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order.created"
	EventOrderStatusChanged     OutboxEventType = "order.status_changed"
	EventCatalogProductUpserted OutboxEventType = "catalog.product_upserted"
	EventCatalogProductDeleted  OutboxEventType = "catalog.product_deleted"
	EventCatalogNegocioUpdated  OutboxEventType = "catalog.negocio_updated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventCatalogProductUpserted,
	EventCatalogProductDeleted,
	EventCatalogNegocioUpdated,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
