package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
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
)

const slugConstraint = "products_slug_key"

// Service exposes catalog management for negocio owners.
type Service interface {
	CreateProduct(ctx context.Context, actor Actor, negocioID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actor Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor Actor, productID uuid.UUID) error
	ListByNegocio(ctx context.Context, negocioID uuid.UUID) ([]ProductDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEnqueuer interface {
	Enqueue(ctx context.Context, event outbox.DomainEvent) error
}

type service struct {
	repo       *Repository
	dbClient   txRunner
	events     eventEnqueuer
	logg       *logger.Logger
	slugSuffix func() string
}

// Option tweaks a product service.
type Option func(*service)

// WithSlugSuffix pins the random slug suffix.
func WithSlugSuffix(fn func() string) Option {
	return func(s *service) { s.slugSuffix = fn }
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient txRunner, events eventEnqueuer, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if events == nil {
		return nil, fmt.Errorf("event enqueuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{repo: repo, dbClient: dbClient, events: events, logg: logg}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateProduct generates a unique slug and writes the product with its
// section placements.
func (s *service) CreateProduct(ctx context.Context, actor Actor, negocioID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	status := input.Status
	if status == "" {
		status = enums.ProductStatusAvailable
	}
	if err := validateProduct(input.Nombre, input.Precio.IsNegative(), status); err != nil {
		return nil, err
	}

	var created *models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := s.authorize(ctx, txRepo, actor, negocioID); err != nil {
			return err
		}
		if err := s.checkSections(ctx, txRepo, negocioID, input.Sections); err != nil {
			return err
		}

		gen := slug.NewGenerator(func(ctx context.Context, candidate string) (bool, error) {
			return txRepo.SlugTaken(ctx, candidate, uuid.Nil)
		})
		gen.Rand = s.slugSuffix
		productSlug, err := gen.Generate(ctx, input.Nombre)
		if err != nil {
			return err
		}

		product := &models.Product{
			ID:          uuid.New(),
			NegocioID:   negocioID,
			Nombre:      strings.TrimSpace(input.Nombre),
			Slug:        productSlug,
			Descripcion: optional(input.Descripcion),
			Precio:      input.Precio,
			Status:      status,
			Imagenes:    pq.StringArray(cleanList(input.Imagenes)),
			Tags:        pq.StringArray(cleanList(input.Tags)),
		}
		if err := txRepo.CreateProduct(ctx, product); err != nil {
			return err
		}
		if err := txRepo.ReplaceSections(ctx, product.ID, input.Sections); err != nil {
			return err
		}

		created, err = txRepo.FindByID(ctx, product.ID)
		return err
	})
	if err != nil {
		return nil, s.translate(ctx, err, "create product")
	}

	s.notifyUpsert(ctx, actor, created)
	return NewProductDTO(created), nil
}

// UpdateProduct applies the set fields. Renaming keeps the slug.
func (s *service) UpdateProduct(ctx context.Context, actor Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if input.Nombre != nil && strings.TrimSpace(*input.Nombre) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "El nombre es obligatorio")
	}
	if input.Precio != nil && input.Precio.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "El precio no puede ser negativo")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Estado de producto inválido")
	}
	if input.Slug != nil && slug.Normalize(*input.Slug) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Slug inválido")
	}

	var updated *models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, txRepo, actor, product.NegocioID); err != nil {
			return err
		}

		fields, err := s.updateFields(ctx, txRepo, product, input)
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := txRepo.UpdateFields(ctx, product.ID, fields); err != nil {
				return err
			}
		}
		if input.Sections != nil {
			if err := s.checkSections(ctx, txRepo, product.NegocioID, *input.Sections); err != nil {
				return err
			}
			if err := txRepo.ReplaceSections(ctx, product.ID, *input.Sections); err != nil {
				return err
			}
		}

		updated, err = txRepo.FindByID(ctx, product.ID)
		return err
	})
	if err != nil {
		return nil, s.translate(ctx, err, "update product")
	}

	s.notifyUpsert(ctx, actor, updated)
	return NewProductDTO(updated), nil
}

func (s *service) DeleteProduct(ctx context.Context, actor Actor, productID uuid.UUID) error {
	var deleted *models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, txRepo, actor, product.NegocioID); err != nil {
			return err
		}
		deleted = product
		return txRepo.DeleteProduct(ctx, product.ID)
	})
	if err != nil {
		return s.translate(ctx, err, "delete product")
	}

	negocioID := deleted.NegocioID
	s.notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventCatalogProductDeleted,
		AggregateType: enums.AggregateProduct,
		AggregateID:   deleted.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, NegocioID: &negocioID},
		Data: payloads.ProductDeletedEvent{
			ProductID: deleted.ID,
			NegocioID: deleted.NegocioID,
			Slug:      deleted.Slug,
		},
	})
	return nil
}

// ListByNegocio is the public catalog read of one negocio.
func (s *service) ListByNegocio(ctx context.Context, negocioID uuid.UUID) ([]ProductDTO, error) {
	products, err := s.repo.ListProducts(ctx, ListFilters{NegocioID: &negocioID})
	if err != nil {
		return nil, s.translate(ctx, err, "list products")
	}
	return lo.Map(products, func(p models.Product, _ int) ProductDTO {
		return *NewProductDTO(&p)
	}), nil
}

func (s *service) updateFields(ctx context.Context, repo *Repository, product *models.Product, input UpdateProductInput) (map[string]any, error) {
	fields := map[string]any{}
	if input.Nombre != nil {
		fields["nombre"] = strings.TrimSpace(*input.Nombre)
	}
	if input.Slug != nil {
		requested := slug.Normalize(*input.Slug)
		if requested != product.Slug {
			taken, err := repo.SlugTaken(ctx, requested, product.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "El slug ya está en uso")
			}
			fields["slug"] = requested
		}
	}
	if input.Descripcion.Set {
		fields["descripcion"] = optional(input.Descripcion.Or(""))
	}
	if input.Precio != nil {
		fields["precio"] = *input.Precio
	}
	if input.Status != nil {
		fields["status"] = *input.Status
	}
	if input.Imagenes != nil {
		fields["imagenes"] = pq.StringArray(cleanList(*input.Imagenes))
	}
	if input.Tags != nil {
		fields["tags"] = pq.StringArray(cleanList(*input.Tags))
	}
	return fields, nil
}

func (s *service) authorize(ctx context.Context, repo *Repository, actor Actor, negocioID uuid.UUID) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "Sesión requerida")
	}
	negocio, err := repo.FindNegocio(ctx, negocioID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Negocio no encontrado")
		}
		return err
	}
	if !actor.isAdmin() && negocio.UserID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Acceso denegado")
	}
	return nil
}

// checkSections requires every placement to target a distinct section of
// the same negocio.
func (s *service) checkSections(ctx context.Context, repo *Repository, negocioID uuid.UUID, placements []SectionPlacement) error {
	ids := lo.Map(placements, func(p SectionPlacement, _ int) uuid.UUID { return p.SectionID })
	if len(lo.Uniq(ids)) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeValidation, "Sección repetida")
	}
	sections, err := repo.FindSections(ctx, ids)
	if err != nil {
		return err
	}
	owned := lo.FilterMap(sections, func(sec models.Section, _ int) (uuid.UUID, bool) {
		return sec.ID, sec.NegocioID == negocioID
	})
	if missing, _ := lo.Difference(ids, owned); len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Sección no encontrada").
			WithDetails(map[string]any{"sectionIds": missing})
	}
	return nil
}

func (s *service) notifyUpsert(ctx context.Context, actor Actor, p *models.Product) {
	negocioID := p.NegocioID
	s.notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventCatalogProductUpserted,
		AggregateType: enums.AggregateProduct,
		AggregateID:   p.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, NegocioID: &negocioID},
		Data: payloads.ProductUpsertedEvent{
			ProductID: p.ID,
			NegocioID: p.NegocioID,
			Slug:      p.Slug,
			Nombre:    p.Nombre,
			Precio:    p.Precio,
			Status:    p.Status,
		},
	})
}

func (s *service) notify(ctx context.Context, event outbox.DomainEvent) {
	if err := s.events.Enqueue(ctx, event); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "event_type", event.EventType), "failed to enqueue catalog event", err)
	}
}

func (s *service) translate(ctx context.Context, err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case db.IsNotFound(err):
		return pkgerrors.New(pkgerrors.CodeNotFound, "Producto no encontrado")
	case db.IsUniqueViolation(err, slugConstraint):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "El slug ya está en uso")
	}
	s.logg.Error(s.logg.WithField(ctx, "op", op), "product operation failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "No se pudo guardar el producto")
}

func validateProduct(nombre string, negativePrice bool, status enums.ProductStatus) error {
	fields := map[string]string{}
	if strings.TrimSpace(nombre) == "" {
		fields["nombre"] = "obligatorio"
	}
	if negativePrice {
		fields["precio"] = "no puede ser negativo"
	}
	if !status.IsValid() {
		fields["status"] = "inválido"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Datos del producto inválidos").WithDetails(fields)
	}
	return nil
}

func cleanList(values []string) []string {
	out := lo.Compact(lo.Map(values, func(v string, _ int) string { return strings.TrimSpace(v) }))
	if out == nil {
		return []string{}
	}
	return out
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
