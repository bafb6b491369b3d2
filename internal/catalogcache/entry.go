// Package catalogcache keeps read-optimized snapshots of the public catalog
// (products and section cards) in a key/value store with per-collection TTLs.
package catalogcache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magisurprise/backend/pkg/enums"
)

// Collection names a cached catalog snapshot.
type Collection string

const (
	CollectionProducts Collection = "products"
	// CollectionCards holds the negocio sections shown as cards.
	CollectionCards Collection = "cards"
)

// Collections lists every cached collection.
func Collections() []Collection {
	return []Collection{CollectionProducts, CollectionCards}
}

func (c Collection) valid() error {
	switch c {
	case CollectionProducts, CollectionCards:
		return nil
	}
	return fmt.Errorf("unknown catalog collection %q", string(c))
}

// Entry is one cached row. Products fill the price, status and media
// fields; cards leave them empty.
type Entry struct {
	ID                uuid.UUID           `json:"id"`
	NegocioID         uuid.UUID           `json:"negocioId"`
	Nombre            string              `json:"nombre"`
	Slug              string              `json:"slug,omitempty"`
	Descripcion       string              `json:"descripcion"`
	Precio            decimal.Decimal     `json:"precio"`
	Status            enums.ProductStatus `json:"status,omitempty"`
	Imagenes          []string            `json:"imagenes"`
	Tags              []string            `json:"tags"`
	ImagenURL         string              `json:"imagenUrl,omitempty"`
	SectionPriorities map[uuid.UUID]int   `json:"sectionPriorities"`
	CreatedAt         time.Time           `json:"createdAt"`
}

// normalize fills the defaults every reader relies on.
func normalize(c Collection, e Entry) Entry {
	if e.Imagenes == nil {
		e.Imagenes = []string{}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.SectionPriorities == nil {
		e.SectionPriorities = map[uuid.UUID]int{}
	}
	if c == CollectionProducts && e.Status == "" {
		e.Status = enums.ProductStatusAvailable
	}
	return e
}
