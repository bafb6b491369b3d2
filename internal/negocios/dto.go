package negocios

import (
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	"github.com/magisurprise/backend/pkg/types"
)

// Actor is the verified identity calling an owner-side operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool { return a.Role == enums.UserRoleAdmin }

// SocialInput carries the owner's social links. Absent fields stay as they are.
type SocialInput struct {
	Instagram types.Nullable[string] `json:"instagram"`
	Facebook  types.Nullable[string] `json:"facebook"`
	Tiktok    types.Nullable[string] `json:"tiktok"`
	Whatsapp  types.Nullable[string] `json:"whatsapp"`
	SitioWeb  types.Nullable[string] `json:"sitioWeb"`
}

// UpdateProfileInput is a partial profile edit. Nil association lists leave
// the links untouched; a non-nil list replaces them entirely.
type UpdateProfileInput struct {
	Nombre      *string                 `json:"nombre"`
	Slug        *string                 `json:"slug"`
	Descripcion types.Nullable[string]  `json:"descripcion"`
	Telefono    types.Nullable[string]  `json:"telefono"`
	Whatsapp    types.Nullable[string]  `json:"whatsapp"`
	Direccion   types.Nullable[string]  `json:"direccion"`
	Ciudad      types.Nullable[string]  `json:"ciudad"`
	Latitud     types.Nullable[float64] `json:"latitud"`
	Longitud    types.Nullable[float64] `json:"longitud"`
	LogoURL     types.Nullable[string]  `json:"logoUrl"`
	BannerURL   types.Nullable[string]  `json:"bannerUrl"`
	CategoryIDs *[]uuid.UUID            `json:"categoryIds"`
	SectionIDs  *[]uuid.UUID            `json:"sectionIds"`
	Social      *SocialInput            `json:"social"`
}

type CategoryRef struct {
	ID        uuid.UUID `json:"id"`
	Nombre    string    `json:"nombre"`
	Slug      string    `json:"slug"`
	Prioridad int       `json:"prioridad"`
}

type SectionRef struct {
	ID        uuid.UUID `json:"id"`
	Nombre    string    `json:"nombre"`
	Prioridad int       `json:"prioridad"`
}

type SocialDTO struct {
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
	Tiktok    string `json:"tiktok"`
	Whatsapp  string `json:"whatsapp"`
	SitioWeb  string `json:"sitioWeb"`
}

// ProfileDTO is the business profile as the UI reads it. Missing text
// fields are rendered as empty strings.
type ProfileDTO struct {
	ID          uuid.UUID     `json:"id"`
	Nombre      string        `json:"nombre"`
	Slug        string        `json:"slug"`
	Descripcion string        `json:"descripcion"`
	Telefono    string        `json:"telefono"`
	Whatsapp    string        `json:"whatsapp"`
	Direccion   string        `json:"direccion"`
	Ciudad      string        `json:"ciudad"`
	Latitud     *float64      `json:"latitud"`
	Longitud    *float64      `json:"longitud"`
	LogoURL     string        `json:"logoUrl"`
	BannerURL   string        `json:"bannerUrl"`
	Categories  []CategoryRef `json:"categories"`
	Sections    []SectionRef  `json:"sections"`
	Social      SocialDTO     `json:"social"`
}

func toProfileDTO(n *models.Negocio, categories []CategoryRef, sections []SectionRef) ProfileDTO {
	dto := ProfileDTO{
		ID:          n.ID,
		Nombre:      n.Nombre,
		Slug:        n.Slug,
		Descripcion: lo.FromPtr(n.Descripcion),
		Telefono:    lo.FromPtr(n.Telefono),
		Whatsapp:    lo.FromPtr(n.Whatsapp),
		Direccion:   lo.FromPtr(n.Direccion),
		Ciudad:      lo.FromPtr(n.Ciudad),
		Latitud:     n.Latitud,
		Longitud:    n.Longitud,
		LogoURL:     lo.FromPtr(n.LogoURL),
		BannerURL:   lo.FromPtr(n.BannerURL),
		Categories:  categories,
		Sections:    sections,
	}
	if dto.Categories == nil {
		dto.Categories = []CategoryRef{}
	}
	if dto.Sections == nil {
		dto.Sections = []SectionRef{}
	}
	if owner := n.Owner; owner != nil {
		dto.Social = SocialDTO{
			Instagram: lo.FromPtr(owner.Instagram),
			Facebook:  lo.FromPtr(owner.Facebook),
			Tiktok:    lo.FromPtr(owner.Tiktok),
			Whatsapp:  lo.FromPtr(owner.Whatsapp),
			SitioWeb:  lo.FromPtr(owner.SitioWeb),
		}
	}
	return dto
}
