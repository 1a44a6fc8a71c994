package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTenantProvider_GetActiveTenantIDs(t *testing.T) {
	t.Run("returns distinct tenants with stock", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		provider := NewGormTenantProvider(db)

		tenantA := uuid.New()
		tenantB := uuid.New()
		rows := sqlmock.NewRows([]string{"tenant_id"}).
			AddRow(tenantA).
			AddRow(tenantB)

		mock.ExpectQuery(`SELECT DISTINCT "tenant_id" FROM "stock_items"`).
			WillReturnRows(rows)

		tenantIDs, err := provider.GetActiveTenantIDs(context.Background())
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{tenantA, tenantB}, tenantIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty slice when no stock exists", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		provider := NewGormTenantProvider(db)

		mock.ExpectQuery(`SELECT DISTINCT "tenant_id" FROM "stock_items"`).
			WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}))

		tenantIDs, err := provider.GetActiveTenantIDs(context.Background())
		require.NoError(t, err)
		assert.Empty(t, tenantIDs)
	})
}
