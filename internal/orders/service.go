package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/db"
	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/metrics"
	"github.com/magisurprise/backend/pkg/outbox"
	"github.com/magisurprise/backend/pkg/outbox/payloads"
	"github.com/magisurprise/backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// eventEnqueuer writes post-commit notifications. It is called after the
// order transaction committed and its failures never reach the caller.
type eventEnqueuer interface {
	Enqueue(ctx context.Context, event outbox.DomainEvent) error
}

// Service is the order pipeline and status state machine.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	ChangeStatus(ctx context.Context, input ChangeStatusInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, actor Actor, negocioID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	History(ctx context.Context, actor Actor, orderID uuid.UUID) ([]HistoryDTO, error)
}

type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Events eventEnqueuer
	Policy TransitionPolicy
	// PriceCheck is config.PriceCheckTrust or config.PriceCheckWarn.
	PriceCheck string
	Metrics    *metrics.OrderMetrics
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	tx         txRunner
	events     eventEnqueuer
	policy     TransitionPolicy
	priceCheck string
	metrics    *metrics.OrderMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
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
	policy := params.Policy
	if policy == nil {
		policy = PermissivePolicy{}
	}
	priceCheck := strings.ToLower(strings.TrimSpace(params.PriceCheck))
	if priceCheck == "" {
		priceCheck = config.PriceCheckTrust
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		events:     params.Events,
		policy:     policy,
		priceCheck: priceCheck,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// CreateOrder writes delivery data, the order with its items and the genesis
// history row in one transaction. Item prices are taken from the caller.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	productIDs := lo.Uniq(lo.FilterMap(input.Items, func(item ItemInput, _ int) (uuid.UUID, bool) {
		if item.IsCustom || item.ProductID == nil {
			return uuid.Nil, false
		}
		return *item.ProductID, true
	}))

	var (
		created *models.Order
		negocio *models.Negocio
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		products, err := repo.FindProducts(ctx, productIDs)
		if err != nil {
			return err
		}
		byID := lo.KeyBy(products, func(p models.Product) uuid.UUID { return p.ID })
		missing := lo.Filter(productIDs, func(id uuid.UUID, _ int) bool {
			_, ok := byID[id]
			return !ok
		})
		if len(missing) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "Producto no encontrado").
				WithDetails(map[string]any{"productIds": missing})
		}

		negocioID, err := resolveNegocio(input.NegocioID, products)
		if err != nil {
			return err
		}
		if negocioID != nil {
			negocio, err = repo.FindNegocio(ctx, *negocioID)
			if err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeValidation, "Negocio no encontrado")
				}
				return err
			}
		}

		delivery := buildDeliveryData(input.Delivery)
		if err := repo.CreateDeliveryData(ctx, delivery); err != nil {
			return err
		}

		order := &models.Order{
			ID:              uuid.New(),
			NegocioID:       negocioID,
			DeliveryDataID:  &delivery.ID,
			Estado:          enums.OrderStateRecibida,
			Total:           orderTotal(input.Items),
			PriceUnverified: s.priceCheck == config.PriceCheckWarn && pricesDiffer(input.Items, byID),
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		items := buildItems(order.ID, input.Items)
		if err := repo.CreateItems(ctx, items); err != nil {
			return err
		}

		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			NewState:  enums.OrderStateRecibida,
			ChangedBy: input.ActorUserID,
		}); err != nil {
			return err
		}

		order.DeliveryData = delivery
		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		return nil, s.translate(ctx, err, "create order")
	}

	logCtx := s.logg.WithOrderID(ctx, created.ID.String())
	if created.PriceUnverified {
		s.logg.Warn(logCtx, "order accepted with prices that differ from the catalog")
	}
	s.metrics.IncCreated(created.PriceUnverified)
	s.notify(logCtx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   created.ID,
		Actor:         actorRef(input.ActorUserID, created.NegocioID),
		Data:          orderCreatedPayload(created, negocio),
	})

	dto := toOrderDTO(created)
	return &dto, nil
}

// ChangeStatus reads the current state, asks the policy, then updates the
// estado only if it still equals the state read and appends a history row
// in the same transaction. A concurrent change that commits first makes the
// update miss and the call returns STATE_CONFLICT.
func (s *service) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "El pedido es obligatorio")
	}
	if !input.NewState.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Estado inválido").
			WithDetails(map[string]any{"allowed": enums.OrderStates()})
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Sesión requerida")
	}

	var (
		order    *models.Order
		previous enums.OrderState
		entry    *models.OrderStatusHistory
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := s.loadAuthorized(ctx, repo, input.Actor, input.OrderID)
		if err != nil {
			return err
		}
		previous = found.Estado

		if err := s.policy.Allow(previous, input.NewState); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "Transición de estado no permitida").
				WithDetails(map[string]any{"from": previous, "to": input.NewState, "policy": s.policy.Name()})
		}

		if err := repo.UpdateEstado(ctx, found.ID, previous, input.NewState); err != nil {
			if errors.Is(err, ErrStaleState) {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "El pedido cambió de estado, intenta de nuevo").
					WithDetails(map[string]any{"from": previous, "to": input.NewState})
			}
			return err
		}
		entry = &models.OrderStatusHistory{
			OrderID:       found.ID,
			PreviousState: &previous,
			NewState:      input.NewState,
			Comment:       optional(input.Comment),
			ChangedBy:     &input.Actor.UserID,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return err
		}

		found.Estado = input.NewState
		order = found
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTransitionNotAllowed) {
			s.metrics.IncRejected(string(previous), string(input.NewState))
		}
		return nil, s.translate(ctx, err, "change order status")
	}

	s.metrics.IncTransition(string(previous), string(input.NewState))
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.notify(logCtx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(&input.Actor.UserID, order.NegocioID),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:       order.ID,
			NegocioID:     order.NegocioID,
			PreviousState: entry.PreviousState,
			NewState:      entry.NewState,
			Comment:       input.Comment,
			ChangedBy:     entry.ChangedBy,
			ChangedAt:     entry.CreatedAt,
		},
	})

	dto := toOrderDTO(order)
	return &dto, nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadAuthorized(ctx, s.repo, actor, orderID)
	if err != nil {
		return nil, s.translate(ctx, err, "get order")
	}
	dto := toOrderDTO(order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, actor Actor, negocioID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if err := s.authorizeNegocio(ctx, s.repo, actor, &negocioID); err != nil {
		return nil, s.translate(ctx, err, "list orders")
	}
	if filters.Estado != nil && !filters.Estado.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Estado inválido")
	}
	rows, err := s.repo.ListByNegocio(ctx, negocioID, params, filters)
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Cursor inválido")
	}
	if err != nil {
		return nil, s.translate(ctx, err, "list orders")
	}
	page, cursor := pagination.Trim(rows, params, filters.scope(negocioID), orderCursor)
	return &OrderList{
		Orders: lo.Map(page, func(order models.Order, _ int) OrderDTO {
			return toOrderDTO(&order)
		}),
		NextCursor: cursor,
	}, nil
}

// History returns the audit trail newest first.
func (s *service) History(ctx context.Context, actor Actor, orderID uuid.UUID) ([]HistoryDTO, error) {
	if _, err := s.loadAuthorized(ctx, s.repo, actor, orderID); err != nil {
		return nil, s.translate(ctx, err, "order history")
	}
	rows, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, s.translate(ctx, err, "order history")
	}
	return lo.Map(rows, func(row models.OrderStatusHistory, _ int) HistoryDTO {
		return toHistoryDTO(row)
	}), nil
}

func (s *service) loadAuthorized(ctx context.Context, repo Repository, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "El pedido es obligatorio")
	}
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Pedido no encontrado")
		}
		return nil, err
	}
	if err := s.authorizeNegocio(ctx, repo, actor, order.NegocioID); err != nil {
		return nil, err
	}
	return order, nil
}

// authorizeNegocio lets admins through and otherwise requires the actor to
// own the negocio. Orders without a negocio are admin-only.
func (s *service) authorizeNegocio(ctx context.Context, repo Repository, actor Actor, negocioID *uuid.UUID) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "Sesión requerida")
	}
	if actor.isAdmin() {
		return nil
	}
	if negocioID == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Acceso denegado")
	}
	negocio, err := repo.FindNegocio(ctx, *negocioID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Negocio no encontrado")
		}
		return err
	}
	if negocio.UserID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Acceso denegado")
	}
	return nil
}

func (s *service) notify(ctx context.Context, event outbox.DomainEvent) {
	if err := s.events.Enqueue(ctx, event); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "event_type", event.EventType), "failed to enqueue order notification", err)
	}
}

// translate keeps typed errors and maps store errors to the public taxonomy.
func (s *service) translate(ctx context.Context, err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsForeignKeyViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Producto no encontrado")
	}
	s.logg.Error(s.logg.WithField(ctx, "op", op), "order pipeline failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "No se pudo procesar el pedido")
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "El carrito está vacío")
	}

	fields := map[string]string{}
	for i, item := range input.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		switch {
		case item.IsCustom && strings.TrimSpace(item.Nombre) == "":
			fields[prefix+".nombre"] = "obligatorio para artículos personalizados"
		case !item.IsCustom && item.ProductID == nil:
			fields[prefix+".productId"] = "obligatorio"
		}
		if item.Cantidad < 1 {
			fields[prefix+".quantity"] = "debe ser al menos 1"
		}
		if item.Precio.IsNegative() {
			fields[prefix+".unitPrice"] = "no puede ser negativo"
		}
	}

	d := input.Delivery
	required := map[string]string{
		"delivery.senderName":      d.SenderName,
		"delivery.senderPhone":     d.SenderPhone,
		"delivery.recipientPhone":  d.RecipientPhone,
		"delivery.deliveryAddress": d.DeliveryAddress,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[field] = "obligatorio"
		}
	}

	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Datos del pedido incompletos").WithDetails(fields)
	}
	return nil
}

// resolveNegocio picks the negocio the order belongs to. A cart may not mix
// products of different negocios.
func resolveNegocio(requested *uuid.UUID, products []models.Product) (*uuid.UUID, error) {
	owners := lo.Uniq(lo.Map(products, func(p models.Product, _ int) uuid.UUID { return p.NegocioID }))
	if requested != nil {
		for _, owner := range owners {
			if owner != *requested {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "Los productos no pertenecen al negocio")
			}
		}
		return requested, nil
	}
	switch len(owners) {
	case 0:
		return nil, nil
	case 1:
		return &owners[0], nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "El pedido mezcla productos de varios negocios")
	}
}

func buildDeliveryData(in DeliveryInput) *models.DeliveryData {
	return &models.DeliveryData{
		ID:               uuid.New(),
		SenderName:       strings.TrimSpace(in.SenderName),
		SenderPhone:      strings.TrimSpace(in.SenderPhone),
		RecipientName:    optional(in.RecipientName),
		RecipientPhone:   strings.TrimSpace(in.RecipientPhone),
		DeliveryAddress:  strings.TrimSpace(in.DeliveryAddress),
		City:             optional(in.City),
		DeliveryDate:     in.DeliveryDate.TimePtr(),
		DeliveryTimeSlot: optional(in.DeliveryTimeSlot),
		Message:          optional(in.Message),
		Notes:            optional(in.Notes),
	}
}

func buildItems(orderID uuid.UUID, in []ItemInput) []models.OrderItem {
	return lo.Map(in, func(item ItemInput, _ int) models.OrderItem {
		row := models.OrderItem{
			ID:         uuid.New(),
			OrderID:    orderID,
			ProductID:  item.ProductID,
			Nombre:     optional(item.Nombre),
			Cantidad:   item.Cantidad,
			Precio:     item.Precio,
			Comentario: optional(item.Comentario),
			IsCustom:   item.IsCustom,
		}
		if item.IsCustom {
			row.ProductID = nil
		}
		return row
	})
}

func orderTotal(items []ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Precio.Mul(decimal.NewFromInt(int64(item.Cantidad))))
	}
	return total
}

// pricesDiffer reports whether any caller price disagrees with the live
// product price. Custom items have nothing to compare against.
func pricesDiffer(items []ItemInput, products map[uuid.UUID]models.Product) bool {
	for _, item := range items {
		if item.IsCustom || item.ProductID == nil {
			continue
		}
		product, ok := products[*item.ProductID]
		if ok && !product.Precio.Equal(item.Precio) {
			return true
		}
	}
	return false
}

func actorRef(userID *uuid.UUID, negocioID *uuid.UUID) *outbox.ActorRef {
	if userID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *userID, NegocioID: negocioID}
}

func orderCreatedPayload(order *models.Order, negocio *models.Negocio) payloads.OrderCreatedEvent {
	event := payloads.OrderCreatedEvent{
		OrderID:         order.ID,
		NegocioID:       order.NegocioID,
		Estado:          order.Estado,
		Total:           order.Total,
		PriceUnverified: order.PriceUnverified,
		Items: lo.Map(order.Items, func(item models.OrderItem, _ int) payloads.OrderItemLine {
			return payloads.OrderItemLine{
				ProductID:  item.ProductID,
				Nombre:     lo.FromPtr(item.Nombre),
				Cantidad:   item.Cantidad,
				Precio:     item.Precio,
				Comentario: lo.FromPtr(item.Comentario),
				IsCustom:   item.IsCustom,
			}
		}),
		CreatedAt: order.CreatedAt,
	}
	if negocio != nil {
		event.NegocioNombre = negocio.Nombre
		if negocio.Owner != nil {
			event.OwnerEmail = negocio.Owner.Email
		}
	}
	if d := order.DeliveryData; d != nil {
		event.Delivery = payloads.DeliverySummary{
			SenderName:       d.SenderName,
			SenderPhone:      d.SenderPhone,
			RecipientName:    lo.FromPtr(d.RecipientName),
			RecipientPhone:   d.RecipientPhone,
			DeliveryAddress:  d.DeliveryAddress,
			City:             lo.FromPtr(d.City),
			DeliveryTimeSlot: lo.FromPtr(d.DeliveryTimeSlot),
			Message:          lo.FromPtr(d.Message),
		}
		if d.DeliveryDate != nil {
			event.Delivery.DeliveryDate = d.DeliveryDate.Format("2006-01-02")
		}
	}
	return event
}
