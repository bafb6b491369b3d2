package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magisurprise/backend/pkg/enums"
)

// DeliveryData is the recipient/sender block captured at checkout.
type DeliveryData struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SenderName       string     `gorm:"column:sender_name;not null"`
	SenderPhone      string     `gorm:"column:sender_phone;not null"`
	RecipientName    *string    `gorm:"column:recipient_name"`
	RecipientPhone   string     `gorm:"column:recipient_phone;not null"`
	DeliveryAddress  string     `gorm:"column:delivery_address;not null"`
	City             *string    `gorm:"column:city"`
	DeliveryDate     *time.Time `gorm:"column:delivery_date;type:date"`
	DeliveryTimeSlot *string    `gorm:"column:delivery_time_slot"`
	Message          *string    `gorm:"column:message"`
	Notes            *string    `gorm:"column:notes"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (DeliveryData) TableName() string { return "delivery_data" }

// Order is a customer purchase. Estado is the only mutable business field
// after creation and every change is mirrored in OrderStatusHistory.
type Order struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	NegocioID       *uuid.UUID       `gorm:"column:negocio_id;type:uuid"`
	DeliveryDataID  *uuid.UUID       `gorm:"column:delivery_data_id;type:uuid;uniqueIndex"`
	Estado          enums.OrderState `gorm:"column:estado;type:order_estado;not null;default:'RECIBIDA'"`
	Total           decimal.Decimal  `gorm:"column:total;type:numeric(12,2);not null"`
	PriceUnverified bool             `gorm:"column:price_unverified;not null;default:false"`
	DeliveryData    *DeliveryData    `gorm:"foreignKey:DeliveryDataID"`
	Items           []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots what was bought and at what price. ProductID becomes
// NULL when the product is deleted; the row itself survives.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID  *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Nombre     *string         `gorm:"column:nombre"`
	Cantidad   int             `gorm:"column:cantidad;not null"`
	Precio     decimal.Decimal `gorm:"column:precio;type:numeric(12,2);not null"`
	Comentario *string         `gorm:"column:comentario"`
	IsCustom   bool            `gorm:"column:is_custom;not null;default:false"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderStatusHistory is append-only. The genesis row has a nil PreviousState.
type OrderStatusHistory struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	PreviousState *enums.OrderState `gorm:"column:previous_state;type:order_estado"`
	NewState      enums.OrderState  `gorm:"column:new_state;type:order_estado;not null"`
	Comment       *string           `gorm:"column:comment"`
	ChangedBy     *uuid.UUID        `gorm:"column:changed_by;type:uuid"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
