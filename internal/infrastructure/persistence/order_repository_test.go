package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/salepoint/backend/internal/domain/order"
	"github.com/salepoint/backend/internal/domain/shared"
)

// newMockOrderRepository creates a GormOrderRepository with a mocked SQL connection
func newMockOrderRepository(t *testing.T) (*GormOrderRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormOrderRepository(gormDB), mock, mockDB
}

func TestGormOrderRepository_NextOperationNumber(t *testing.T) {
	t.Run("starts at one for an empty year", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		businessID := uuid.New()

		mock.ExpectQuery(`SELECT MAX\(operation_number\) FROM "orders" WHERE .*business_id = \$1 AND operation_number IS NOT NULL.*registered_at >= \$2 AND registered_at < \$3`).
			WithArgs(businessID, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

		next, err := repo.NextOperationNumber(context.Background(), businessID, order.ScopeCalendarYear, uuid.Nil)

		require.NoError(t, err)
		assert.Equal(t, 1, next)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("continues the yearly sequence", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		businessID := uuid.New()

		mock.ExpectQuery(`SELECT MAX\(operation_number\) FROM "orders"`).
			WithArgs(businessID, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(41))

		next, err := repo.NextOperationNumber(context.Background(), businessID, order.ScopeCalendarYear, uuid.Nil)

		require.NoError(t, err)
		assert.Equal(t, 42, next)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scopes by economic cycle", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		businessID := uuid.New()
		cycleID := uuid.New()

		mock.ExpectQuery(`SELECT MAX\(operation_number\) FROM "orders" WHERE .*business_id = \$1 AND operation_number IS NOT NULL.* AND economic_cycle_id = \$2`).
			WithArgs(businessID, cycleID).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(7))

		next, err := repo.NextOperationNumber(context.Background(), businessID, order.ScopeEconomicCycle, cycleID)

		require.NoError(t, err)
		assert.Equal(t, 8, next)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_NextPreOperationNumber(t *testing.T) {
	t.Run("pre-bills keep their own yearly sequence", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		businessID := uuid.New()

		mock.ExpectQuery(`SELECT MAX\(pre_operation_number\) FROM "orders" WHERE .*business_id = \$1 AND pre_operation_number IS NOT NULL`).
			WithArgs(businessID, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))

		next, err := repo.NextPreOperationNumber(context.Background(), businessID)

		require.NoError(t, err)
		assert.Equal(t, 4, next)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_FindOverdue(t *testing.T) {
	t.Run("lists pending orders past their deadline", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		businessID := uuid.New()
		orderID := uuid.New()
		asOf := time.Now()

		rows := sqlmock.NewRows([]string{"id", "business_id", "status"}).
			AddRow(orderID, businessID, "PAYMENT_PENDING")

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE business_id = \$1 AND status = \$2 AND payment_deadline_at IS NOT NULL AND payment_deadline_at < \$3`).
			WithArgs(businessID, order.StatusPaymentPending, asOf).
			WillReturnRows(rows)

		orders, err := repo.FindOverdue(context.Background(), businessID, asOf)

		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, orderID, orders[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_FindByIDForBusiness(t *testing.T) {
	t.Run("maps missing order to not found", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		businessID := uuid.New()
		orderID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE business_id = \$1 AND id = \$2`).
			WithArgs(businessID, orderID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		o, err := repo.FindByIDForBusiness(context.Background(), businessID, orderID)

		assert.Nil(t, o)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain error")))
	assert.False(t, isUniqueViolation(nil))
}

func TestCalendarYearBounds(t *testing.T) {
	now := time.Date(2026, time.August, 31, 13, 45, 0, 0, time.UTC)
	start, end := calendarYearBounds(now)

	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}
