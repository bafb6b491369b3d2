package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	"github.com/magisurprise/backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDeliveryData(ctx context.Context, data *models.DeliveryData) error {
	if data.ID == uuid.Nil {
		data.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(data).Error
}

// CreateOrder inserts only the order row; items and delivery data are
// written by their own calls so the pipeline controls the order of writes.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

func (r *repository) FindNegocio(ctx context.Context, negocioID uuid.UUID) (*models.Negocio, error) {
	var negocio models.Negocio
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("id = ?", negocioID).
		First(&negocio).Error
	if err != nil {
		return nil, err
	}
	return &negocio, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("DeliveryData").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateEstado(ctx context.Context, orderID uuid.UUID, from, to enums.OrderState) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND estado = ?", orderID, from).
		Update("estado", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// ListHistory returns entries newest first; the genesis row sorts last
// even when timestamps tie.
func (r *repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Order("previous_state IS NULL ASC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ListByNegocio pages orders newest first and fetches one extra row so the
// caller can tell whether another page exists.
func (r *repository) ListByNegocio(ctx context.Context, negocioID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("DeliveryData").
		Where("negocio_id = ?", negocioID)
	if filters.Estado != nil {
		query = query.Where("estado = ?", *filters.Estado)
	}
	cursor, err := pagination.Decode(params.Cursor, filters.scope(negocioID))
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.FetchSize()).
		Find(&rows).Error
	return rows, err
}
