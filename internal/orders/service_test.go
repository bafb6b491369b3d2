package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox"
	"github.com/magisurprise/backend/pkg/outbox/payloads"
	"github.com/magisurprise/backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubEnqueuer struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type stubOrdersRepo struct {
	products  map[uuid.UUID]models.Product
	negocios  map[uuid.UUID]models.Negocio
	order     *models.Order
	history   []models.OrderStatusHistory
	delivery  *models.DeliveryData
	created   *models.Order
	items     []models.OrderItem
	updatedTo enums.OrderState
	// raced simulates a transition committed by someone else after the read.
	raced bool

	appendHistory func(entry *models.OrderStatusHistory) error
}

func (s *stubOrdersRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubOrdersRepo) CreateDeliveryData(_ context.Context, data *models.DeliveryData) error {
	s.delivery = data
	return nil
}

func (s *stubOrdersRepo) CreateOrder(_ context.Context, order *models.Order) error {
	s.created = order
	return nil
}

func (s *stubOrdersRepo) CreateItems(_ context.Context, items []models.OrderItem) error {
	s.items = items
	return nil
}

func (s *stubOrdersRepo) AppendHistory(_ context.Context, entry *models.OrderStatusHistory) error {
	if s.appendHistory != nil {
		return s.appendHistory(entry)
	}
	s.history = append(s.history, *entry)
	return nil
}

func (s *stubOrdersRepo) FindProducts(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubOrdersRepo) FindNegocio(_ context.Context, id uuid.UUID) (*models.Negocio, error) {
	n, ok := s.negocios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &n, nil
}

func (s *stubOrdersRepo) FindOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) UpdateEstado(_ context.Context, _ uuid.UUID, from, to enums.OrderState) error {
	if s.raced || (s.order != nil && s.order.Estado != from) {
		return ErrStaleState
	}
	s.updatedTo = to
	return nil
}

func (s *stubOrdersRepo) ListHistory(context.Context, uuid.UUID) ([]models.OrderStatusHistory, error) {
	return s.history, nil
}

func (s *stubOrdersRepo) ListByNegocio(context.Context, uuid.UUID, pagination.Params, ListFilters) ([]models.Order, error) {
	return nil, nil
}

type fixture struct {
	repo       *stubOrdersRepo
	events     *stubEnqueuer
	negocio    models.Negocio
	product    models.Product
	ownerID    uuid.UUID
	strangerID uuid.UUID
}

func newFixture() *fixture {
	ownerID := uuid.New()
	negocio := models.Negocio{
		ID:     uuid.New(),
		UserID: ownerID,
		Nombre: "Flores Ana",
		Owner:  &models.User{ID: ownerID, Email: "ana@flores.co"},
	}
	product := models.Product{ID: uuid.New(), NegocioID: negocio.ID, Precio: decimal.NewFromInt(10000)}
	return &fixture{
		repo: &stubOrdersRepo{
			products: map[uuid.UUID]models.Product{product.ID: product},
			negocios: map[uuid.UUID]models.Negocio{negocio.ID: negocio},
		},
		events:     &stubEnqueuer{},
		negocio:    negocio,
		product:    product,
		ownerID:    ownerID,
		strangerID: uuid.New(),
	}
}

func (f *fixture) service(t *testing.T, params ServiceParams) Service {
	t.Helper()
	params.Repo = f.repo
	params.Tx = stubTxRunner{}
	params.Events = f.events
	params.Logger = logger.Nop()
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func (f *fixture) seedOrder(estado enums.OrderState) *models.Order {
	f.repo.order = &models.Order{ID: uuid.New(), NegocioID: &f.negocio.ID, Estado: estado}
	return f.repo.order
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestCreateOrderEndToEndScenario(t *testing.T) {
	f := newFixture()
	svc := f.service(t, ServiceParams{})

	order, err := svc.CreateOrder(context.Background(), sampleInput(f.product.ID))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Estado != enums.OrderStateRecibida {
		t.Fatalf("expected RECIBIDA, got %s", order.Estado)
	}
	if len(order.Items) != 1 || order.Items[0].Cantidad != 2 || !order.Items[0].Precio.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("unexpected items %+v", order.Items)
	}
	if len(f.repo.history) != 1 || f.repo.history[0].PreviousState != nil {
		t.Fatalf("expected a single genesis history row, got %+v", f.repo.history)
	}
	if f.repo.created.DeliveryDataID == nil || *f.repo.created.DeliveryDataID != f.repo.delivery.ID {
		t.Fatalf("order must reference its delivery data")
	}

	if len(f.events.events) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.events.events))
	}
	payload, ok := f.events.events[0].Data.(payloads.OrderCreatedEvent)
	if !ok {
		t.Fatalf("unexpected payload %T", f.events.events[0].Data)
	}
	if payload.OwnerEmail != "ana@flores.co" || payload.Delivery.SenderName != "Ana" {
		t.Fatalf("payload missing contact data: %+v", payload)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture()
	svc := f.service(t, ServiceParams{})
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderInput{Delivery: sampleInput(f.product.ID).Delivery})
	assertCode(t, err, pkgerrors.CodeValidation)

	input := sampleInput(f.product.ID)
	input.Items[0].Cantidad = 0
	input.Items[0].Precio = decimal.NewFromInt(-1)
	input.Delivery.RecipientPhone = " "
	_, err = svc.CreateOrder(ctx, input)
	assertCode(t, err, pkgerrors.CodeValidation)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	for _, field := range []string{"items[0].quantity", "items[0].unitPrice", "delivery.recipientPhone"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("missing detail for %s in %v", field, details)
		}
	}

	unknown := uuid.New()
	_, err = svc.CreateOrder(ctx, sampleInput(unknown))
	assertCode(t, err, pkgerrors.CodeValidation)
	if pkgerrors.As(err).Message() != "Producto no encontrado" {
		t.Fatalf("unexpected message %q", pkgerrors.As(err).Message())
	}
	if f.repo.created != nil {
		t.Fatal("no order may be written when validation fails")
	}
}

func TestCreateOrderRejectsMixedNegocios(t *testing.T) {
	f := newFixture()
	other := models.Product{ID: uuid.New(), NegocioID: uuid.New(), Precio: decimal.NewFromInt(1)}
	f.repo.products[other.ID] = other
	svc := f.service(t, ServiceParams{})

	input := sampleInput(f.product.ID)
	input.Items = append(input.Items, ItemInput{ProductID: &other.ID, Cantidad: 1, Precio: decimal.NewFromInt(1)})
	_, err := svc.CreateOrder(context.Background(), input)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateOrderCustomItem(t *testing.T) {
	f := newFixture()
	svc := f.service(t, ServiceParams{})

	input := sampleInput(f.product.ID)
	input.NegocioID = &f.negocio.ID
	input.Items = append(input.Items, ItemInput{IsCustom: true, Nombre: "Globo metalizado", Cantidad: 3, Precio: decimal.NewFromInt(2500)})
	order, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !order.Total.Equal(decimal.NewFromInt(27500)) {
		t.Fatalf("unexpected total %s", order.Total)
	}
	if f.repo.items[1].ProductID != nil || !f.repo.items[1].IsCustom {
		t.Fatalf("custom item must not reference a product: %+v", f.repo.items[1])
	}
}

func TestCreateOrderCustomItemIgnoresProductID(t *testing.T) {
	f := newFixture()
	other := models.Product{ID: uuid.New(), NegocioID: uuid.New(), Precio: decimal.NewFromInt(1)}
	f.repo.products[other.ID] = other
	unknown := uuid.New()
	svc := f.service(t, ServiceParams{})

	input := sampleInput(f.product.ID)
	input.Items = append(input.Items,
		ItemInput{IsCustom: true, ProductID: &other.ID, Nombre: "Tarjeta", Cantidad: 1, Precio: decimal.NewFromInt(3000)},
		ItemInput{IsCustom: true, ProductID: &unknown, Nombre: "Globo", Cantidad: 1, Precio: decimal.NewFromInt(2000)},
	)
	order, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.NegocioID == nil || *order.NegocioID != f.negocio.ID {
		t.Fatalf("negocio must come from the catalog item, got %v", order.NegocioID)
	}
	for _, item := range f.repo.items[1:] {
		if item.ProductID != nil {
			t.Fatalf("custom item must not reference a product: %+v", item)
		}
	}
}

func TestCreateOrderPriceCheckModes(t *testing.T) {
	input := func(f *fixture) CreateOrderInput {
		in := sampleInput(f.product.ID)
		in.Items[0].Precio = decimal.NewFromInt(1)
		return in
	}

	f := newFixture()
	order, err := f.service(t, ServiceParams{PriceCheck: config.PriceCheckTrust}).CreateOrder(context.Background(), input(f))
	if err != nil {
		t.Fatalf("CreateOrder trust: %v", err)
	}
	if order.PriceUnverified {
		t.Fatal("trust mode never flags prices")
	}
	if !order.Items[0].Precio.Equal(decimal.NewFromInt(1)) {
		t.Fatal("caller price must be stored as given")
	}

	f = newFixture()
	order, err = f.service(t, ServiceParams{PriceCheck: config.PriceCheckWarn}).CreateOrder(context.Background(), input(f))
	if err != nil {
		t.Fatalf("CreateOrder warn: %v", err)
	}
	if !order.PriceUnverified {
		t.Fatal("warn mode must flag a mismatching price")
	}
}

func TestCreateOrderIgnoresNotificationFailure(t *testing.T) {
	f := newFixture()
	f.events.err = errors.New("outbox down")
	svc := f.service(t, ServiceParams{})

	if _, err := svc.CreateOrder(context.Background(), sampleInput(f.product.ID)); err != nil {
		t.Fatalf("notification failure must not fail the order: %v", err)
	}
}

func TestCreateOrderStoreFailureIsInternal(t *testing.T) {
	f := newFixture()
	f.repo.appendHistory = func(*models.OrderStatusHistory) error { return errors.New("connection reset") }
	svc := f.service(t, ServiceParams{})

	_, err := svc.CreateOrder(context.Background(), sampleInput(f.product.ID))
	assertCode(t, err, pkgerrors.CodeInternal)
	if len(f.events.events) != 0 {
		t.Fatal("failed orders must not be notified")
	}
}

func TestChangeStatusLosesRace(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(enums.OrderStateRecibida)
	f.repo.raced = true
	svc := f.service(t, ServiceParams{})

	_, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:  order.ID,
		NewState: enums.OrderStatePagada,
		Actor:    Actor{UserID: f.ownerID, Role: enums.UserRoleNegocio},
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if len(f.repo.history) != 0 || len(f.events.events) != 0 {
		t.Fatalf("a lost race must not write history or notify")
	}
}

func TestChangeStatusScenario(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(enums.OrderStateRecibida)
	svc := f.service(t, ServiceParams{})

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:  order.ID,
		NewState: enums.OrderStateCancelada,
		Comment:  "cliente se retractó",
		Actor:    Actor{UserID: f.ownerID, Role: enums.UserRoleNegocio},
	})
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if updated.Estado != enums.OrderStateCancelada || f.repo.updatedTo != enums.OrderStateCancelada {
		t.Fatalf("estado not updated")
	}
	entry := f.repo.history[0]
	if entry.PreviousState == nil || *entry.PreviousState != enums.OrderStateRecibida || entry.NewState != enums.OrderStateCancelada {
		t.Fatalf("unexpected history %+v", entry)
	}
	if entry.Comment == nil || *entry.Comment != "cliente se retractó" {
		t.Fatalf("comment not recorded")
	}
	if len(f.events.events) != 1 || f.events.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("expected status notification, got %+v", f.events.events)
	}
}

func TestChangeStatusPermissiveLeavesCancelada(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(enums.OrderStateCancelada)
	svc := f.service(t, ServiceParams{})

	if _, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:  order.ID,
		NewState: enums.OrderStatePreparacion,
		Actor:    Actor{UserID: f.ownerID},
	}); err != nil {
		t.Fatalf("permissive policy must allow leaving CANCELADA: %v", err)
	}
}

func TestChangeStatusGraphPolicyRejects(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(enums.OrderStateCancelada)
	svc := f.service(t, ServiceParams{Policy: NewGraphPolicy(DefaultTransitionGraph())})

	_, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:  order.ID,
		NewState: enums.OrderStatePreparacion,
		Actor:    Actor{UserID: f.ownerID},
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if f.repo.updatedTo != "" || len(f.repo.history) != 0 {
		t.Fatal("rejected transition must not write")
	}
}

func TestChangeStatusAuthorization(t *testing.T) {
	f := newFixture()
	order := f.seedOrder(enums.OrderStateRecibida)
	svc := f.service(t, ServiceParams{})
	ctx := context.Background()

	_, err := svc.ChangeStatus(ctx, ChangeStatusInput{OrderID: order.ID, NewState: enums.OrderStatePagada, Actor: Actor{UserID: f.strangerID}})
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = svc.ChangeStatus(ctx, ChangeStatusInput{OrderID: order.ID, NewState: enums.OrderStatePagada})
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.ChangeStatus(ctx, ChangeStatusInput{OrderID: order.ID, NewState: enums.OrderStatePagada, Actor: Actor{UserID: f.strangerID, Role: enums.UserRoleAdmin}})
	if err != nil {
		t.Fatalf("admins may change any order: %v", err)
	}

	_, err = svc.ChangeStatus(ctx, ChangeStatusInput{OrderID: uuid.New(), NewState: enums.OrderStatePagada, Actor: Actor{UserID: f.ownerID}})
	assertCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.ChangeStatus(ctx, ChangeStatusInput{OrderID: order.ID, NewState: "ENVIADA", Actor: Actor{UserID: f.ownerID}})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing repository error")
	}
	if _, err := NewService(ServiceParams{Repo: &stubOrdersRepo{}, Tx: stubTxRunner{}, Events: &stubEnqueuer{}}); err == nil {
		t.Fatal("expected missing logger error")
	}
}
