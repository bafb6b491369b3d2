package controllers

import (
	"net/http"

	"github.com/magisurprise/backend/api/responses"
	"github.com/magisurprise/backend/api/validators"
	product "github.com/magisurprise/backend/internal/products"
	"github.com/magisurprise/backend/pkg/logger"
)

// ListProducts returns a negocio's catalog, including drafts.
func ListProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		negocioID, err := validators.ParseUUIDParam(r, "negocioId", "negocio")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListByNegocio(r.Context(), negocioID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "ok", map[string]any{"products": items})
	}
}

// CreateProduct handles product creation for a negocio.
func CreateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := Identity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		negocioID, err := validators.ParseUUIDParam(r, "negocioId", "negocio")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input product.CreateProductInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateProduct(r.Context(), product.Actor{UserID: userID, Role: role}, negocioID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Producto creado", map[string]any{"product": created})
	}
}

// UpdateProduct applies a partial product edit.
func UpdateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := Identity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId", "producto")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input product.UpdateProductInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateProduct(r.Context(), product.Actor{UserID: userID, Role: role}, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Producto actualizado", map[string]any{"product": updated})
	}
}

func DeleteProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := Identity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId", "producto")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), product.Actor{UserID: userID, Role: role}, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Producto eliminado", map[string]any{"productId": productID})
	}
}
