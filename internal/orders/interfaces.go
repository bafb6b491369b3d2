package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	"github.com/magisurprise/backend/pkg/pagination"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateDeliveryData(ctx context.Context, data *models.DeliveryData) error
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindNegocio(ctx context.Context, negocioID uuid.UUID) (*models.Negocio, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// UpdateEstado moves the order from one state to another and fails with
	// ErrStaleState when the stored state no longer matches from.
	UpdateEstado(ctx context.Context, orderID uuid.UUID, from, to enums.OrderState) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListByNegocio(ctx context.Context, negocioID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Order, error)
}
