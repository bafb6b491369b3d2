package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/magisurprise/backend/pkg/enums"
)

// User is the local projection of an identity issued by the external
// provider. Social links live here, not on the negocio.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Username  string         `gorm:"column:username;type:text;not null;uniqueIndex"`
	Nombre    string         `gorm:"column:nombre;not null"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null;default:'cliente'"`
	Instagram *string        `gorm:"column:instagram"`
	Facebook  *string        `gorm:"column:facebook"`
	Tiktok    *string        `gorm:"column:tiktok"`
	Whatsapp  *string        `gorm:"column:whatsapp"`
	SitioWeb  *string        `gorm:"column:sitio_web"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
