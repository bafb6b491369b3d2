package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/magisurprise/backend/pkg/enums"
)

// Product is a catalog listing owned by a negocio.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	NegocioID   uuid.UUID           `gorm:"column:negocio_id;type:uuid;not null"`
	Nombre      string              `gorm:"column:nombre;not null"`
	Slug        string              `gorm:"column:slug;not null;uniqueIndex"`
	Descripcion *string             `gorm:"column:descripcion"`
	Precio      decimal.Decimal     `gorm:"column:precio;type:numeric(12,2);not null"`
	Status      enums.ProductStatus `gorm:"column:status;type:text;not null;default:'available'"`
	Imagenes    pq.StringArray      `gorm:"column:imagenes;type:text[];not null;default:'{}'"`
	Tags        pq.StringArray      `gorm:"column:tags;type:text[];not null;default:'{}'"`
	Sections    []ProductSection    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
