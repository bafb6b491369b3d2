package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/magisurprise/backend/pkg/db/models"
)

// Repository wires together the product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the product with its section links.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Sections").
		Where("id = ?", id).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindNegocio(ctx context.Context, id uuid.UUID) (*models.Negocio, error) {
	var negocio models.Negocio
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&negocio).Error; err != nil {
		return nil, err
	}
	return &negocio, nil
}

// SlugTaken reports whether a product other than exclude uses slug.
func (r *Repository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("slug = ? AND id <> ?", slug, exclude).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateProduct inserts the product row only; section links are written by
// ReplaceSections.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceSections deletes every section link of the product and writes the
// given placements.
func (r *Repository) ReplaceSections(ctx context.Context, productID uuid.UUID, placements []SectionPlacement) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&models.ProductSection{}).Error; err != nil {
		return err
	}
	if len(placements) == 0 {
		return nil
	}
	links := make([]models.ProductSection, 0, len(placements))
	for _, p := range placements {
		links = append(links, models.ProductSection{ProductID: productID, SectionID: p.SectionID, Prioridad: p.Prioridad})
	}
	return db.Create(&links).Error
}

// DeleteProduct removes the product and its section links. Order items that
// referenced it keep their data with a NULL product id.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.OrderItem{}).Where("product_id = ?", id).Update("product_id", nil).Error; err != nil {
		return err
	}
	if err := db.Where("product_id = ?", id).Delete(&models.ProductSection{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListProducts returns products with section links, oldest first.
func (r *Repository) ListProducts(ctx context.Context, filters ListFilters) ([]models.Product, error) {
	var products []models.Product
	query := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Sections")
	if filters.NegocioID != nil {
		query = query.Where("negocio_id = ?", *filters.NegocioID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if err := query.Order("created_at ASC, id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListSections returns the sections of negocioID, or of every negocio when nil.
func (r *Repository) ListSections(ctx context.Context, negocioID *uuid.UUID) ([]models.Section, error) {
	var sections []models.Section
	query := r.db.WithContext(ctx).Model(&models.Section{})
	if negocioID != nil {
		query = query.Where("negocio_id = ?", *negocioID)
	}
	if err := query.Order("created_at ASC, id ASC").Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *Repository) FindSections(ctx context.Context, ids []uuid.UUID) ([]models.Section, error) {
	sections := []models.Section{}
	if len(ids) == 0 {
		return sections, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}
