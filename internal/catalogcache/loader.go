package catalogcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	product "github.com/magisurprise/backend/internal/products"
	"github.com/magisurprise/backend/pkg/db/models"
)

type catalogSource interface {
	ListProducts(ctx context.Context, filters product.ListFilters) ([]models.Product, error)
	ListSections(ctx context.Context, negocioID *uuid.UUID) ([]models.Section, error)
}

// Loader reads full collections from the database. A nil negocio scope
// loads the catalog of every negocio.
type Loader struct {
	source    catalogSource
	negocioID *uuid.UUID
}

func NewLoader(source catalogSource, negocioID *uuid.UUID) (*Loader, error) {
	if source == nil {
		return nil, errors.New("catalog source required")
	}
	return &Loader{source: source, negocioID: negocioID}, nil
}

func (l *Loader) Load(ctx context.Context, c Collection) ([]Entry, error) {
	switch c {
	case CollectionProducts:
		products, err := l.source.ListProducts(ctx, product.ListFilters{NegocioID: l.negocioID})
		if err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
		return lo.Map(products, func(p models.Product, _ int) Entry { return productEntry(p) }), nil
	case CollectionCards:
		sections, err := l.source.ListSections(ctx, l.negocioID)
		if err != nil {
			return nil, fmt.Errorf("load sections: %w", err)
		}
		return lo.Map(sections, func(s models.Section, _ int) Entry { return cardEntry(s) }), nil
	}
	return nil, c.valid()
}

func productEntry(p models.Product) Entry {
	priorities := make(map[uuid.UUID]int, len(p.Sections))
	for _, link := range p.Sections {
		priorities[link.SectionID] = link.Prioridad
	}
	return normalize(CollectionProducts, Entry{
		ID:                p.ID,
		NegocioID:         p.NegocioID,
		Nombre:            p.Nombre,
		Slug:              p.Slug,
		Descripcion:       lo.FromPtr(p.Descripcion),
		Precio:            p.Precio,
		Status:            p.Status,
		Imagenes:          p.Imagenes,
		Tags:              p.Tags,
		SectionPriorities: priorities,
		CreatedAt:         p.CreatedAt,
	})
}

func cardEntry(s models.Section) Entry {
	return normalize(CollectionCards, Entry{
		ID:          s.ID,
		NegocioID:   s.NegocioID,
		Nombre:      s.Nombre,
		Descripcion: lo.FromPtr(s.Descripcion),
		ImagenURL:   lo.FromPtr(s.ImagenURL),
		CreatedAt:   s.CreatedAt,
	})
}
