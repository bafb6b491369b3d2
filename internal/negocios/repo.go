package negocios

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/magisurprise/backend/pkg/db/models"
)

// Repository defines persistence operations for negocio profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Negocio, error)
	FindBySlug(ctx context.Context, slug string) (*models.Negocio, error)
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	ExistingCategoryIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	ExistingSectionIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ReplaceCategories(ctx context.Context, negocioID uuid.UUID, categoryIDs []uuid.UUID) error
	ReplaceSections(ctx context.Context, negocioID uuid.UUID, sectionIDs []uuid.UUID) error
	UpdateOwnerSocial(ctx context.Context, userID uuid.UUID, fields map[string]any) error
	ListCategories(ctx context.Context, negocioID uuid.UUID) ([]CategoryRef, error)
	ListSections(ctx context.Context, negocioID uuid.UUID) ([]SectionRef, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to negocio operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Negocio, error) {
	var negocio models.Negocio
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("id = ?", id).
		First(&negocio).Error; err != nil {
		return nil, err
	}
	return &negocio, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Negocio, error) {
	var negocio models.Negocio
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("slug = ?", slug).
		First(&negocio).Error; err != nil {
		return nil, err
	}
	return &negocio, nil
}

// SlugTaken reports whether another negocio than exclude uses slug.
func (r *repository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Negocio{}).
		Where("slug = ? AND id <> ?", slug, exclude).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ExistingCategoryIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return r.existingIDs(ctx, &models.Category{}, ids)
}

func (r *repository) ExistingSectionIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return r.existingIDs(ctx, &models.Section{}, ids)
}

func (r *repository) existingIDs(ctx context.Context, model any, ids []uuid.UUID) ([]uuid.UUID, error) {
	found := []uuid.UUID{}
	if len(ids) == 0 {
		return found, nil
	}
	if err := r.db.WithContext(ctx).
		Model(model).
		Where("id IN ?", ids).
		Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// UpdateFields writes the given columns; updated_at is stamped by GORM.
func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Negocio{}).
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

// ReplaceCategories deletes every link and recreates them in request order.
func (r *repository) ReplaceCategories(ctx context.Context, negocioID uuid.UUID, categoryIDs []uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("negocio_id = ?", negocioID).Delete(&models.NegocioCategory{}).Error; err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	links := make([]models.NegocioCategory, 0, len(categoryIDs))
	for i, id := range categoryIDs {
		links = append(links, models.NegocioCategory{NegocioID: negocioID, CategoryID: id, Prioridad: i})
	}
	return db.Create(&links).Error
}

// ReplaceSections deletes every link and recreates them with priority 0.
// Any ordering the owner set before is discarded.
func (r *repository) ReplaceSections(ctx context.Context, negocioID uuid.UUID, sectionIDs []uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("negocio_id = ?", negocioID).Delete(&models.NegocioSection{}).Error; err != nil {
		return err
	}
	if len(sectionIDs) == 0 {
		return nil
	}
	links := make([]models.NegocioSection, 0, len(sectionIDs))
	for _, id := range sectionIDs {
		links = append(links, models.NegocioSection{NegocioID: negocioID, SectionID: id, Prioridad: 0})
	}
	return db.Create(&links).Error
}

func (r *repository) UpdateOwnerSocial(ctx context.Context, userID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(fields).Error
}

func (r *repository) ListCategories(ctx context.Context, negocioID uuid.UUID) ([]CategoryRef, error) {
	rows := []CategoryRef{}
	if err := r.db.WithContext(ctx).
		Table("negocio_categories AS nc").
		Select("c.id AS id, c.nombre AS nombre, c.slug AS slug, nc.prioridad AS prioridad").
		Joins("JOIN categories AS c ON c.id = nc.category_id").
		Where("nc.negocio_id = ?", negocioID).
		Order("nc.prioridad ASC, c.nombre ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListSections(ctx context.Context, negocioID uuid.UUID) ([]SectionRef, error) {
	rows := []SectionRef{}
	if err := r.db.WithContext(ctx).
		Table("negocio_sections AS ns").
		Select("s.id AS id, s.nombre AS nombre, ns.prioridad AS prioridad").
		Joins("JOIN sections AS s ON s.id = ns.section_id").
		Where("ns.negocio_id = ?", negocioID).
		Order("ns.prioridad ASC, s.nombre ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
