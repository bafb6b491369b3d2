package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	"github.com/magisurprise/backend/pkg/pagination"
	"github.com/magisurprise/backend/pkg/types"
)

// Actor is the verified identity calling an owner-side operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool { return a.Role == enums.UserRoleAdmin }

// ItemInput is one cart line. Custom items carry a name instead of a product.
type ItemInput struct {
	ProductID  *uuid.UUID      `json:"productId"`
	Nombre     string          `json:"nombre"`
	Cantidad   int             `json:"quantity"`
	Precio     decimal.Decimal `json:"unitPrice"`
	Comentario string          `json:"comment"`
	IsCustom   bool            `json:"isCustom"`
}

// DeliveryInput is the checkout delivery form.
type DeliveryInput struct {
	SenderName       string      `json:"senderName"`
	SenderPhone      string      `json:"senderPhone"`
	RecipientName    string      `json:"recipientName"`
	RecipientPhone   string      `json:"recipientPhone"`
	DeliveryAddress  string      `json:"deliveryAddress"`
	City             string      `json:"city"`
	DeliveryDate     *types.Date `json:"deliveryDate"`
	DeliveryTimeSlot string      `json:"deliveryTimeSlot"`
	Message          string      `json:"message"`
	Notes            string      `json:"notes"`
}

// CreateOrderInput is the createOrder request. NegocioID is optional when
// every item references a product.
type CreateOrderInput struct {
	NegocioID   *uuid.UUID
	ActorUserID *uuid.UUID
	Items       []ItemInput
	Delivery    DeliveryInput
}

type ChangeStatusInput struct {
	OrderID  uuid.UUID
	NewState enums.OrderState
	Comment  string
	Actor    Actor
}

// ListFilters narrows a negocio's order list.
type ListFilters struct {
	Estado *enums.OrderState
}

// scope identifies the listing a page cursor belongs to.
func (f ListFilters) scope(negocioID uuid.UUID) string {
	estado := ""
	if f.Estado != nil {
		estado = string(*f.Estado)
	}
	return pagination.Scope(negocioID.String(), estado)
}

func orderCursor(o models.Order) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

type OrderItemDTO struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  *uuid.UUID      `json:"productId"`
	Nombre     string          `json:"nombre,omitempty"`
	Cantidad   int             `json:"cantidad"`
	Precio     decimal.Decimal `json:"precio"`
	Comentario string          `json:"comentario,omitempty"`
	IsCustom   bool            `json:"isCustom"`
}

type DeliveryDTO struct {
	SenderName       string      `json:"senderName"`
	SenderPhone      string      `json:"senderPhone"`
	RecipientName    string      `json:"recipientName"`
	RecipientPhone   string      `json:"recipientPhone"`
	DeliveryAddress  string      `json:"deliveryAddress"`
	City             string      `json:"city"`
	DeliveryDate     *types.Date `json:"deliveryDate,omitempty"`
	DeliveryTimeSlot string      `json:"deliveryTimeSlot"`
	Message          string      `json:"message"`
}

type OrderDTO struct {
	ID              uuid.UUID        `json:"id"`
	NegocioID       *uuid.UUID       `json:"negocioId,omitempty"`
	Estado          enums.OrderState `json:"estado"`
	Total           decimal.Decimal  `json:"total"`
	PriceUnverified bool             `json:"priceUnverified"`
	Items           []OrderItemDTO   `json:"items"`
	Delivery        *DeliveryDTO     `json:"delivery,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type HistoryDTO struct {
	ID            uuid.UUID         `json:"id"`
	PreviousState *enums.OrderState `json:"previousState"`
	NewState      enums.OrderState  `json:"newState"`
	Comment       string            `json:"comment,omitempty"`
	ChangedBy     *uuid.UUID        `json:"changedBy,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

func toOrderDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		NegocioID:       order.NegocioID,
		Estado:          order.Estado,
		Total:           order.Total,
		PriceUnverified: order.PriceUnverified,
		Items: lo.Map(order.Items, func(item models.OrderItem, _ int) OrderItemDTO {
			return OrderItemDTO{
				ID:         item.ID,
				ProductID:  item.ProductID,
				Nombre:     lo.FromPtr(item.Nombre),
				Cantidad:   item.Cantidad,
				Precio:     item.Precio,
				Comentario: lo.FromPtr(item.Comentario),
				IsCustom:   item.IsCustom,
			}
		}),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	if d := order.DeliveryData; d != nil {
		dto.Delivery = &DeliveryDTO{
			SenderName:       d.SenderName,
			SenderPhone:      d.SenderPhone,
			RecipientName:    lo.FromPtr(d.RecipientName),
			RecipientPhone:   d.RecipientPhone,
			DeliveryAddress:  d.DeliveryAddress,
			City:             lo.FromPtr(d.City),
			DeliveryDate:     types.DatePtr(d.DeliveryDate),
			DeliveryTimeSlot: lo.FromPtr(d.DeliveryTimeSlot),
			Message:          lo.FromPtr(d.Message),
		}
	}
	return dto
}

func toHistoryDTO(row models.OrderStatusHistory) HistoryDTO {
	return HistoryDTO{
		ID:            row.ID,
		PreviousState: row.PreviousState,
		NewState:      row.NewState,
		Comment:       lo.FromPtr(row.Comment),
		ChangedBy:     row.ChangedBy,
		CreatedAt:     row.CreatedAt,
	}
}

// optional trims s and returns nil when nothing is left.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
