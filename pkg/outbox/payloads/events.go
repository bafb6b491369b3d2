package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magisurprise/backend/pkg/enums"
)

// OrderCreatedEvent carries everything the confirmation email and the
// WhatsApp/ops consumers need without reading the database again.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID        `json:"order_id"`
	NegocioID       *uuid.UUID       `json:"negocio_id,omitempty"`
	NegocioNombre   string           `json:"negocio_nombre,omitempty"`
	OwnerEmail      string           `json:"owner_email,omitempty"`
	Estado          enums.OrderState `json:"estado"`
	Total           decimal.Decimal  `json:"total"`
	PriceUnverified bool             `json:"price_unverified"`
	Items           []OrderItemLine  `json:"items"`
	Delivery        DeliverySummary  `json:"delivery"`
	CreatedAt       time.Time        `json:"created_at"`
}

type OrderItemLine struct {
	ProductID  *uuid.UUID      `json:"product_id,omitempty"`
	Nombre     string          `json:"nombre"`
	Cantidad   int             `json:"cantidad"`
	Precio     decimal.Decimal `json:"precio"`
	Comentario string          `json:"comentario,omitempty"`
	IsCustom   bool            `json:"is_custom"`
}

type DeliverySummary struct {
	SenderName       string `json:"sender_name"`
	SenderPhone      string `json:"sender_phone"`
	RecipientName    string `json:"recipient_name,omitempty"`
	RecipientPhone   string `json:"recipient_phone"`
	DeliveryAddress  string `json:"delivery_address"`
	City             string `json:"city,omitempty"`
	DeliveryDate     string `json:"delivery_date,omitempty"`
	DeliveryTimeSlot string `json:"delivery_time_slot,omitempty"`
	Message          string `json:"message,omitempty"`
}

// OrderStatusChangedEvent mirrors one appended history row.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	NegocioID     *uuid.UUID        `json:"negocio_id,omitempty"`
	PreviousState *enums.OrderState `json:"previous_state,omitempty"`
	NewState      enums.OrderState  `json:"new_state"`
	Comment       string            `json:"comment,omitempty"`
	ChangedBy     *uuid.UUID        `json:"changed_by,omitempty"`
	ChangedAt     time.Time         `json:"changed_at"`
}

// ProductUpsertedEvent asks the catalog indexer to refresh one product.
type ProductUpsertedEvent struct {
	ProductID uuid.UUID           `json:"product_id"`
	NegocioID uuid.UUID           `json:"negocio_id"`
	Slug      string              `json:"slug"`
	Nombre    string              `json:"nombre"`
	Precio    decimal.Decimal     `json:"precio"`
	Status    enums.ProductStatus `json:"status"`
}

type ProductDeletedEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	NegocioID uuid.UUID `json:"negocio_id"`
	Slug      string    `json:"slug"`
}

// NegocioUpdatedEvent is emitted after a profile update commits.
type NegocioUpdatedEvent struct {
	NegocioID    uuid.UUID   `json:"negocio_id"`
	Slug         string      `json:"slug"`
	PreviousSlug string      `json:"previous_slug,omitempty"`
	Nombre       string      `json:"nombre"`
	CategoryIDs  []uuid.UUID `json:"category_ids"`
	SectionIDs   []uuid.UUID `json:"section_ids"`
}
