package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/magisurprise/backend/pkg/db"
	"github.com/magisurprise/backend/pkg/db/dbtest"
	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox"
	"github.com/magisurprise/backend/pkg/pagination"
)

// failingHistoryRepo breaks the third write of the pipeline.
type failingHistoryRepo struct {
	Repository
}

func (f failingHistoryRepo) WithTx(tx *gorm.DB) Repository {
	return failingHistoryRepo{Repository: f.Repository.WithTx(tx)}
}

func (failingHistoryRepo) AppendHistory(context.Context, *models.OrderStatusHistory) error {
	return errors.New("disk full")
}

func newSQLiteService(t *testing.T, conn *gorm.DB, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Tx:     db.Wrap(conn),
		Events: outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Logger: logger.Nop(),
	})
	require.NoError(t, err)
	return svc
}

func sampleInput(productID uuid.UUID) CreateOrderInput {
	return CreateOrderInput{
		Items: []ItemInput{{
			ProductID: &productID,
			Cantidad:  2,
			Precio:    decimal.NewFromInt(10000),
		}},
		Delivery: DeliveryInput{
			SenderName:      "Ana",
			SenderPhone:     "3001234567",
			RecipientPhone:  "3009876543",
			DeliveryAddress: "Calle 1",
		},
	}
}

func TestCreateOrderPersistsAllRows(t *testing.T) {
	conn := dbtest.Open(t)
	negocio := dbtest.SeedNegocio(t, conn)
	product := dbtest.SeedProduct(t, conn, negocio.ID, 10000)
	svc := newSQLiteService(t, conn, NewRepository(conn))

	order, err := svc.CreateOrder(context.Background(), sampleInput(product.ID))
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStateRecibida, order.Estado)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Cantidad)
	assert.True(t, order.Items[0].Precio.Equal(decimal.NewFromInt(10000)))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(20000)))
	require.NotNil(t, order.NegocioID)
	assert.Equal(t, negocio.ID, *order.NegocioID)

	assert.Equal(t, int64(1), dbtest.Count(t, conn, &models.Order{}))
	assert.Equal(t, int64(1), dbtest.Count(t, conn, &models.DeliveryData{}))
	assert.Equal(t, int64(1), dbtest.Count(t, conn, &models.OrderItem{}))
	assert.Equal(t, int64(1), dbtest.Count(t, conn, &models.OrderStatusHistory{}))

	var genesis models.OrderStatusHistory
	require.NoError(t, conn.Where("order_id = ?", order.ID).First(&genesis).Error)
	assert.Nil(t, genesis.PreviousState)
	assert.Equal(t, enums.OrderStateRecibida, genesis.NewState)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestCreateOrderRollsBackOnMidTransactionFailure(t *testing.T) {
	conn := dbtest.Open(t)
	negocio := dbtest.SeedNegocio(t, conn)
	product := dbtest.SeedProduct(t, conn, negocio.ID, 10000)
	svc := newSQLiteService(t, conn, failingHistoryRepo{Repository: NewRepository(conn)})

	_, err := svc.CreateOrder(context.Background(), sampleInput(product.ID))
	require.Error(t, err)

	assert.Zero(t, dbtest.Count(t, conn, &models.Order{}))
	assert.Zero(t, dbtest.Count(t, conn, &models.DeliveryData{}))
	assert.Zero(t, dbtest.Count(t, conn, &models.OrderItem{}))
	assert.Zero(t, dbtest.Count(t, conn, &models.OrderStatusHistory{}))
	assert.Zero(t, dbtest.Count(t, conn, &models.OutboxEvent{}), "no notification for a rolled back order")
}

func TestChangeStatusAppendsHistory(t *testing.T) {
	conn := dbtest.Open(t)
	negocio := dbtest.SeedNegocio(t, conn)
	product := dbtest.SeedProduct(t, conn, negocio.ID, 10000)
	svc := newSQLiteService(t, conn, NewRepository(conn))
	ctx := context.Background()
	owner := Actor{UserID: negocio.UserID, Role: enums.UserRoleNegocio}

	order, err := svc.CreateOrder(ctx, sampleInput(product.ID))
	require.NoError(t, err)

	transitions := []enums.OrderState{
		enums.OrderStatePreparacion,
		enums.OrderStateCancelada,
		enums.OrderStateRecibida,
		enums.OrderStateCancelada,
	}
	for _, next := range transitions {
		_, err := svc.ChangeStatus(ctx, ChangeStatusInput{OrderID: order.ID, NewState: next, Actor: owner})
		require.NoError(t, err)
	}

	updated, err := svc.ChangeStatus(ctx, ChangeStatusInput{
		OrderID:  order.ID,
		NewState: enums.OrderStatePagada,
		Comment:  "pago confirmado",
		Actor:    owner,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatePagada, updated.Estado)

	history, err := svc.History(ctx, owner, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1+len(transitions)+1)

	genesis := history[len(history)-1]
	assert.Nil(t, genesis.PreviousState)
	assert.Equal(t, enums.OrderStateRecibida, genesis.NewState)

	latest := history[0]
	require.NotNil(t, latest.PreviousState)
	assert.Equal(t, enums.OrderStateCancelada, *latest.PreviousState)
	assert.Equal(t, enums.OrderStatePagada, latest.NewState)
	assert.Equal(t, "pago confirmado", latest.Comment)
	require.NotNil(t, latest.ChangedBy)
	assert.Equal(t, owner.UserID, *latest.ChangedBy)
}

func TestUpdateEstadoRejectsStaleState(t *testing.T) {
	conn := dbtest.Open(t)
	negocio := dbtest.SeedNegocio(t, conn)
	product := dbtest.SeedProduct(t, conn, negocio.ID, 10000)
	svc := newSQLiteService(t, conn, NewRepository(conn))
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, sampleInput(product.ID))
	require.NoError(t, err)

	repo := NewRepository(conn)
	require.NoError(t, repo.UpdateEstado(ctx, order.ID, enums.OrderStateRecibida, enums.OrderStatePreparacion))
	// a second writer that read RECIBIDA before the first commit loses
	err = repo.UpdateEstado(ctx, order.ID, enums.OrderStateRecibida, enums.OrderStateCancelada)
	require.ErrorIs(t, err, ErrStaleState)

	stored, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatePreparacion, stored.Estado)
}

func TestOrphanedItemsSurviveProductDeletion(t *testing.T) {
	conn := dbtest.Open(t)
	negocio := dbtest.SeedNegocio(t, conn)
	product := dbtest.SeedProduct(t, conn, negocio.ID, 5000)
	svc := newSQLiteService(t, conn, NewRepository(conn))
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, sampleInput(product.ID))
	require.NoError(t, err)

	// sqlite has no ON DELETE SET NULL here, so mimic the Postgres FK action.
	require.NoError(t, conn.Delete(&models.Product{}, "id = ?", product.ID).Error)
	require.NoError(t, conn.Model(&models.OrderItem{}).Where("product_id = ?", product.ID).Update("product_id", nil).Error)

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	fetched, err := svc.GetOrder(ctx, admin, order.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Items, 1)
	assert.Nil(t, fetched.Items[0].ProductID)
	assert.True(t, fetched.Items[0].Precio.Equal(decimal.NewFromInt(10000)), "price snapshot is kept")
}

func TestListByNegocioPaginates(t *testing.T) {
	conn := dbtest.Open(t)
	negocio := dbtest.SeedNegocio(t, conn)
	product := dbtest.SeedProduct(t, conn, negocio.ID, 1000)
	svc := newSQLiteService(t, conn, NewRepository(conn))
	ctx := context.Background()
	owner := Actor{UserID: negocio.UserID, Role: enums.UserRoleNegocio}

	for i := 0; i < 3; i++ {
		_, err := svc.CreateOrder(ctx, sampleInput(product.ID))
		require.NoError(t, err)
	}

	first, err := svc.ListOrders(ctx, owner, negocio.ID, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListOrders(ctx, owner, negocio.ID, pagination.Params{Limit: 2, Cursor: first.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Empty(t, second.NextCursor)
	assert.NotEqual(t, first.Orders[0].ID, second.Orders[0].ID)
	assert.NotEqual(t, first.Orders[1].ID, second.Orders[0].ID)

	cancelada := enums.OrderStateCancelada
	filtered, err := svc.ListOrders(ctx, owner, negocio.ID, pagination.Params{}, ListFilters{Estado: &cancelada})
	require.NoError(t, err)
	assert.Empty(t, filtered.Orders)

	_, err = svc.ListOrders(ctx, owner, negocio.ID, pagination.Params{Limit: 2, Cursor: first.NextCursor}, ListFilters{Estado: &cancelada})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "a cursor from the unfiltered listing must not page the filtered one")

	_, err = svc.ListOrders(ctx, owner, negocio.ID, pagination.Params{Cursor: "not-a-cursor"}, ListFilters{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
