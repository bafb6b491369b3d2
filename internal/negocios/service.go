package negocios

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/magisurprise/backend/pkg/db"
	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox"
	"github.com/magisurprise/backend/pkg/outbox/payloads"
	"github.com/magisurprise/backend/pkg/slug"
	"github.com/magisurprise/backend/pkg/types"
)

const slugConstraint = "negocios_slug_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEnqueuer interface {
	Enqueue(ctx context.Context, event outbox.DomainEvent) error
}

// Service exposes the business profile pipeline.
type Service interface {
	GetProfile(ctx context.Context, negocioID uuid.UUID) (*ProfileDTO, error)
	GetProfileBySlug(ctx context.Context, slug string) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, actor Actor, negocioID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
}

type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Events eventEnqueuer
	Logger *logger.Logger
	// SlugSuffix overrides the random slug suffix.
	SlugSuffix func() string
}

type service struct {
	repo       Repository
	tx         txRunner
	events     eventEnqueuer
	logg       *logger.Logger
	slugSuffix func() string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("negocios repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event enqueuer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		events:     params.Events,
		logg:       params.Logger,
		slugSuffix: params.SlugSuffix,
	}, nil
}

func (s *service) GetProfile(ctx context.Context, negocioID uuid.UUID) (*ProfileDTO, error) {
	negocio, err := s.repo.FindByID(ctx, negocioID)
	if err != nil {
		return nil, s.translate(ctx, err, "get profile")
	}
	return s.profile(ctx, s.repo, negocio)
}

func (s *service) GetProfileBySlug(ctx context.Context, value string) (*ProfileDTO, error) {
	negocio, err := s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return nil, s.translate(ctx, err, "get profile by slug")
	}
	return s.profile(ctx, s.repo, negocio)
}

// UpdateProfile applies a partial edit in one transaction: negocio row,
// category links, section links and the owner's social fields.
func (s *service) UpdateProfile(ctx context.Context, actor Actor, negocioID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Sesión requerida")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var (
		result       *ProfileDTO
		previousSlug string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		negocio, err := repo.FindByID(ctx, negocioID)
		if err != nil {
			return err
		}
		if !actor.isAdmin() && negocio.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Acceso denegado")
		}
		previousSlug = negocio.Slug

		if err := s.checkReferences(ctx, repo, input); err != nil {
			return err
		}

		fields := profileFields(input)
		nextSlug, err := s.resolveSlug(ctx, repo, negocio, input)
		if err != nil {
			return err
		}
		if nextSlug != negocio.Slug {
			fields["slug"] = nextSlug
		}
		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, negocio.ID, fields); err != nil {
				return err
			}
		}

		if input.CategoryIDs != nil {
			if err := repo.ReplaceCategories(ctx, negocio.ID, lo.Uniq(*input.CategoryIDs)); err != nil {
				return err
			}
		}
		if input.SectionIDs != nil {
			if err := repo.ReplaceSections(ctx, negocio.ID, lo.Uniq(*input.SectionIDs)); err != nil {
				return err
			}
		}
		if input.Social != nil {
			if err := repo.UpdateOwnerSocial(ctx, negocio.UserID, socialFields(*input.Social)); err != nil {
				return err
			}
		}

		updated, err := repo.FindByID(ctx, negocio.ID)
		if err != nil {
			return err
		}
		result, err = s.profile(ctx, repo, updated)
		return err
	})
	if err != nil {
		return nil, s.translate(ctx, err, "update profile")
	}

	s.notify(s.logg.WithNegocioID(ctx, result.ID.String()), actor, result, previousSlug)
	return result, nil
}

// resolveSlug returns the slug the negocio should carry after the edit. An
// explicit slug wins; otherwise a changed name regenerates it.
func (s *service) resolveSlug(ctx context.Context, repo Repository, negocio *models.Negocio, input UpdateProfileInput) (string, error) {
	if input.Slug != nil {
		requested := slug.Normalize(*input.Slug)
		if requested == negocio.Slug {
			return negocio.Slug, nil
		}
		taken, err := repo.SlugTaken(ctx, requested, negocio.ID)
		if err != nil {
			return "", err
		}
		if taken {
			return "", pkgerrors.New(pkgerrors.CodeConflict, "El slug ya está en uso").
				WithDetails(map[string]string{"slug": requested})
		}
		return requested, nil
	}

	if input.Nombre == nil || strings.TrimSpace(*input.Nombre) == negocio.Nombre {
		return negocio.Slug, nil
	}

	ciudad := lo.FromPtr(negocio.Ciudad)
	if input.Ciudad.Set {
		ciudad = input.Ciudad.Or("")
	}
	gen := slug.NewGenerator(func(ctx context.Context, candidate string) (bool, error) {
		return repo.SlugTaken(ctx, candidate, negocio.ID)
	})
	gen.Rand = s.slugSuffix
	return gen.Generate(ctx, strings.TrimSpace(*input.Nombre), ciudad)
}

func (s *service) checkReferences(ctx context.Context, repo Repository, input UpdateProfileInput) error {
	if input.CategoryIDs != nil {
		want := lo.Uniq(*input.CategoryIDs)
		found, err := repo.ExistingCategoryIDs(ctx, want)
		if err != nil {
			return err
		}
		if missing, _ := lo.Difference(want, found); len(missing) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "Categoría no encontrada").
				WithDetails(map[string]any{"categoryIds": missing})
		}
	}
	if input.SectionIDs != nil {
		want := lo.Uniq(*input.SectionIDs)
		found, err := repo.ExistingSectionIDs(ctx, want)
		if err != nil {
			return err
		}
		if missing, _ := lo.Difference(want, found); len(missing) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "Sección no encontrada").
				WithDetails(map[string]any{"sectionIds": missing})
		}
	}
	return nil
}

func (s *service) profile(ctx context.Context, repo Repository, negocio *models.Negocio) (*ProfileDTO, error) {
	categories, err := repo.ListCategories(ctx, negocio.ID)
	if err != nil {
		return nil, err
	}
	sections, err := repo.ListSections(ctx, negocio.ID)
	if err != nil {
		return nil, err
	}
	dto := toProfileDTO(negocio, categories, sections)
	return &dto, nil
}

func (s *service) notify(ctx context.Context, actor Actor, profile *ProfileDTO, previousSlug string) {
	event := payloads.NegocioUpdatedEvent{
		NegocioID:   profile.ID,
		Slug:        profile.Slug,
		Nombre:      profile.Nombre,
		CategoryIDs: lo.Map(profile.Categories, func(c CategoryRef, _ int) uuid.UUID { return c.ID }),
		SectionIDs:  lo.Map(profile.Sections, func(sec SectionRef, _ int) uuid.UUID { return sec.ID }),
	}
	if previousSlug != profile.Slug {
		event.PreviousSlug = previousSlug
	}
	negocioID := profile.ID
	err := s.events.Enqueue(ctx, outbox.DomainEvent{
		EventType:     enums.EventCatalogNegocioUpdated,
		AggregateType: enums.AggregateNegocio,
		AggregateID:   profile.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, NegocioID: &negocioID},
		Data:          event,
	})
	if err != nil {
		s.logg.Error(ctx, "failed to enqueue negocio update", err)
	}
}

func (s *service) translate(ctx context.Context, err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case db.IsNotFound(err):
		return pkgerrors.New(pkgerrors.CodeNotFound, "Negocio no encontrado")
	case db.IsUniqueViolation(err, slugConstraint):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "El slug ya está en uso")
	case db.IsForeignKeyViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Referencia inválida")
	}
	s.logg.Error(s.logg.WithField(ctx, "op", op), "negocio profile pipeline failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "No se pudo actualizar el perfil")
}

func validateInput(input UpdateProfileInput) error {
	fields := map[string]string{}
	if input.Nombre != nil && strings.TrimSpace(*input.Nombre) == "" {
		fields["nombre"] = "no puede estar vacío"
	}
	if input.Slug != nil && slug.Normalize(*input.Slug) == "" {
		fields["slug"] = "inválido"
	}
	if lat := input.Latitud.Value; lat != nil && (*lat < -90 || *lat > 90) {
		fields["latitud"] = "debe estar entre -90 y 90"
	}
	if lng := input.Longitud.Value; lng != nil && (*lng < -180 || *lng > 180) {
		fields["longitud"] = "debe estar entre -180 y 180"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Datos del perfil inválidos").WithDetails(fields)
	}
	return nil
}

// profileFields maps the set fields of input to negocio columns. Blank text
// is stored as NULL.
func profileFields(input UpdateProfileInput) map[string]any {
	fields := map[string]any{}
	if input.Nombre != nil {
		fields["nombre"] = strings.TrimSpace(*input.Nombre)
	}
	text := map[string]types.Nullable[string]{
		"descripcion": input.Descripcion,
		"telefono":    input.Telefono,
		"whatsapp":    input.Whatsapp,
		"direccion":   input.Direccion,
		"ciudad":      input.Ciudad,
		"logo_url":    input.LogoURL,
		"banner_url":  input.BannerURL,
	}
	for column, value := range text {
		if value.Set {
			fields[column] = nullableText(value)
		}
	}
	if input.Latitud.Set {
		fields["latitud"] = input.Latitud.Value
	}
	if input.Longitud.Set {
		fields["longitud"] = input.Longitud.Value
	}
	return fields
}

func socialFields(input SocialInput) map[string]any {
	fields := map[string]any{}
	social := map[string]types.Nullable[string]{
		"instagram": input.Instagram,
		"facebook":  input.Facebook,
		"tiktok":    input.Tiktok,
		"whatsapp":  input.Whatsapp,
		"sitio_web": input.SitioWeb,
	}
	for column, value := range social {
		if value.Set {
			fields[column] = nullableText(value)
		}
	}
	return fields
}

func nullableText(value types.Nullable[string]) *string {
	trimmed := strings.TrimSpace(value.Or(""))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
