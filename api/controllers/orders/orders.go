package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/magisurprise/backend/api/controllers"
	"github.com/magisurprise/backend/api/responses"
	"github.com/magisurprise/backend/api/validators"
	internalorders "github.com/magisurprise/backend/internal/orders"
	"github.com/magisurprise/backend/pkg/enums"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/pagination"
)

type createOrderRequest struct {
	NegocioID *uuid.UUID                   `json:"negocioId"`
	Items     []internalorders.ItemInput   `json:"items" validate:"required,min=1"`
	Delivery  internalorders.DeliveryInput `json:"delivery"`
}

type changeStatusRequest struct {
	NewState string `json:"newState" validate:"required"`
	Comment  string `json:"comment" validate:"max=500"`
}

// Create is the storefront checkout. The order is persisted before the
// shopper is redirected to WhatsApp.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			NegocioID: payload.NegocioID,
			Items:     payload.Items,
			Delivery:  payload.Delivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Pedido creado", map[string]any{
			"orderId": order.ID,
			"order":   order,
		})
	}
}

// List pages through a negocio's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		negocioID, err := validators.ParseUUIDParam(r, "negocioId", "negocio")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		list, err := svc.ListOrders(r.Context(), actor, negocioID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "ok", map[string]any{
			"orders":     list.Orders,
			"nextCursor": list.NextCursor,
		})
	}
}

// Detail returns one order after checking the caller owns its negocio.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId", "pedido")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "ok", map[string]any{"order": order})
	}
}

func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId", "pedido")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.History(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "ok", map[string]any{"history": rows})
	}
}

// ChangeStatus moves an order to a new state and records the transition.
func ChangeStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId", "pedido")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changeStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := enums.ParseOrderState(payload.NewState)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Estado inválido"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		order, err := svc.ChangeStatus(ctx, internalorders.ChangeStatusInput{
			OrderID:  orderID,
			NewState: state,
			Comment:  payload.Comment,
			Actor:    actor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Estado actualizado", map[string]any{"order": order})
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID, role, err := controllers.Identity(r)
	if err != nil {
		return internalorders.Actor{}, err
	}
	return internalorders.Actor{UserID: userID, Role: role}, nil
}

func buildFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters
	if raw := strings.TrimSpace(r.URL.Query().Get("estado")); raw != "" {
		state, err := enums.ParseOrderState(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Estado inválido")
		}
		filters.Estado = &state
	}
	return filters, nil
}
