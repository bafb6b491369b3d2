package models

import (
	"time"

	"github.com/google/uuid"
)

// Section groups products on a negocio page (the catalog "cards").
type Section struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	NegocioID   uuid.UUID `gorm:"column:negocio_id;type:uuid;not null"`
	Nombre      string    `gorm:"column:nombre;not null"`
	Descripcion *string   `gorm:"column:descripcion"`
	ImagenURL   *string   `gorm:"column:imagen_url"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Section) TableName() string { return "sections" }

type NegocioSection struct {
	NegocioID uuid.UUID `gorm:"column:negocio_id;type:uuid;primaryKey"`
	SectionID uuid.UUID `gorm:"column:section_id;type:uuid;primaryKey"`
	Prioridad int       `gorm:"column:prioridad;not null;default:0"`
}

func (NegocioSection) TableName() string { return "negocio_sections" }

// ProductSection carries the per-section display priority of a product.
type ProductSection struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	SectionID uuid.UUID `gorm:"column:section_id;type:uuid;primaryKey"`
	Prioridad int       `gorm:"column:prioridad;not null;default:0"`
}

func (ProductSection) TableName() string { return "product_sections" }
