package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/backend/internal/domain/shared"
)

func TestGormDocumentNumberGenerator_Generate(t *testing.T) {
	t.Run("increments an existing sequence", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		gen := NewGormDocumentNumberGenerator(db)

		tenantID := uuid.New()
		rows := sqlmock.NewRows([]string{"tenant_id", "prefix", "last_value", "updated_at"}).
			AddRow(tenantID, "PO", 41, time.Now())

		mock.ExpectQuery(`SELECT \* FROM "document_sequences" WHERE tenant_id = \$1 AND prefix = \$2 .* FOR UPDATE`).
			WithArgs(tenantID, "PO", 1).
			WillReturnRows(rows)
		mock.ExpectExec(`UPDATE "document_sequences" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		number, err := gen.Generate(context.Background(), tenantID, "PO")
		require.NoError(t, err)
		assert.Equal(t, "PO-000042", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("starts a new sequence at one", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		gen := NewGormDocumentNumberGenerator(db)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "document_sequences" .* FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "prefix", "last_value", "updated_at"}))
		mock.ExpectExec(`INSERT INTO "document_sequences"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "document_sequences" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		number, err := gen.Generate(context.Background(), tenantID, "WO")
		require.NoError(t, err)
		assert.Equal(t, "WO-000001", number)
	})

	t.Run("rejects an empty prefix", func(t *testing.T) {
		db, _, mockDB := newMockDB(t)
		defer mockDB.Close()
		gen := NewGormDocumentNumberGenerator(db)

		_, err := gen.Generate(context.Background(), uuid.New(), "")
		require.Error(t, err)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	})
}
