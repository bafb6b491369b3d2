package product

import (
	"github.com/google/uuid"

	"github.com/magisurprise/backend/pkg/enums"
)

// ListFilters narrow the catalog read. A nil NegocioID lists every negocio.
type ListFilters struct {
	NegocioID *uuid.UUID
	Status    *enums.ProductStatus
}
