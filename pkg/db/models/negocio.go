package models

import (
	"time"

	"github.com/google/uuid"
)

// Negocio is a tenant business owning a catalog. One per owner user.
type Negocio struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Nombre      string    `gorm:"column:nombre;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex"`
	Descripcion *string   `gorm:"column:descripcion"`
	Telefono    *string   `gorm:"column:telefono"`
	Whatsapp    *string   `gorm:"column:whatsapp"`
	Direccion   *string   `gorm:"column:direccion"`
	Ciudad      *string   `gorm:"column:ciudad"`
	Latitud     *float64  `gorm:"column:latitud"`
	Longitud    *float64  `gorm:"column:longitud"`
	LogoURL     *string   `gorm:"column:logo_url"`
	BannerURL   *string   `gorm:"column:banner_url"`
	Owner       *User     `gorm:"foreignKey:UserID;references:ID"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Negocio) TableName() string { return "negocios" }

type Category struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Nombre string    `gorm:"column:nombre;not null;uniqueIndex"`
	Slug   string    `gorm:"column:slug;not null;uniqueIndex"`
}

func (Category) TableName() string { return "categories" }

// NegocioCategory links a negocio to a category; Prioridad orders the
// categories as the owner listed them.
type NegocioCategory struct {
	NegocioID  uuid.UUID `gorm:"column:negocio_id;type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;primaryKey"`
	Prioridad  int       `gorm:"column:prioridad;not null;default:0"`
}

func (NegocioCategory) TableName() string { return "negocio_categories" }
