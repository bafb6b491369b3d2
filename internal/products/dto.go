package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	"github.com/magisurprise/backend/pkg/types"
)

// Actor is the verified identity managing a catalog.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool { return a.Role == enums.UserRoleAdmin }

// SectionPlacement puts a product in a section at a display priority.
type SectionPlacement struct {
	SectionID uuid.UUID `json:"sectionId"`
	Prioridad int       `json:"prioridad"`
}

// CreateProductInput holds the payload to create a product.
type CreateProductInput struct {
	Nombre      string              `json:"nombre"`
	Descripcion string              `json:"descripcion"`
	Precio      decimal.Decimal     `json:"precio"`
	Status      enums.ProductStatus `json:"status"`
	Imagenes    []string            `json:"imagenes"`
	Tags        []string            `json:"tags"`
	Sections    []SectionPlacement  `json:"sections"`
}

// UpdateProductInput holds optional mutation values for a product. The slug
// only changes when Slug is given explicitly.
type UpdateProductInput struct {
	Nombre      *string                `json:"nombre"`
	Slug        *string                `json:"slug"`
	Descripcion types.Nullable[string] `json:"descripcion"`
	Precio      *decimal.Decimal       `json:"precio"`
	Status      *enums.ProductStatus   `json:"status"`
	Imagenes    *[]string              `json:"imagenes"`
	Tags        *[]string              `json:"tags"`
	Sections    *[]SectionPlacement    `json:"sections"`
}

// ProductDTO is the catalog view of a product.
type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	NegocioID   uuid.UUID           `json:"negocioId"`
	Nombre      string              `json:"nombre"`
	Slug        string              `json:"slug"`
	Descripcion string              `json:"descripcion"`
	Precio      decimal.Decimal     `json:"precio"`
	Status      enums.ProductStatus `json:"status"`
	Imagenes    []string            `json:"imagenes"`
	Tags        []string            `json:"tags"`
	// SectionPriorities maps section id to display priority.
	SectionPriorities map[uuid.UUID]int `json:"sectionPriorities"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// NewProductDTO maps the persisted product into a DTO.
func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:          p.ID,
		NegocioID:   p.NegocioID,
		Nombre:      p.Nombre,
		Slug:        p.Slug,
		Descripcion: lo.FromPtr(p.Descripcion),
		Precio:      p.Precio,
		Status:      p.Status,
		Imagenes:    append([]string{}, p.Imagenes...),
		Tags:        append([]string{}, p.Tags...),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	dto.SectionPriorities = make(map[uuid.UUID]int, len(p.Sections))
	for _, link := range p.Sections {
		dto.SectionPriorities[link.SectionID] = link.Prioridad
	}
	return dto
}
