package repository_test

import (
	"benzback/infras/otel/mocks"
	"benzback/shared/dto"
	"benzback/shared/repository"
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vehicleRow struct {
	ID       string  `db:"id"`
	Status   string  `db:"status"`
	Odometer float64 `db:"odometer"`
}

func newTx(t *testing.T) (*sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()

	tx, err := sqlx.NewDb(db, "postgres").Beginx()
	require.NoError(t, err)

	return tx, mock
}

func newRepository() repository.Repository[vehicleRow] {
	return repository.NewRepository[vehicleRow]("vehicle", "vehicles", "id", mocks.NewOtel())
}

func TestInsertColumns(t *testing.T) {
	repo := newRepository()

	assert.Equal(t, []string{"id", "status", "odometer"}, repo.InsertColumns)
}

func TestGetTx(t *testing.T) {
	tests := []struct {
		name string
		rows *sqlmock.Rows
		want vehicleRow
	}{
		{
			name: "row found",
			rows: sqlmock.NewRows([]string{"id", "status", "odometer"}).AddRow("v-1", "available", 1200.5),
			want: vehicleRow{ID: "v-1", Status: "available", Odometer: 1200.5},
		},
		{
			name: "missing row yields zero value",
			rows: sqlmock.NewRows([]string{"id", "status", "odometer"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, mock := newTx(t)
			repo := newRepository()

			query := "SELECT vehicles.id, vehicles.status, vehicles.odometer FROM vehicles   WHERE (vehicles.id = $1)  FOR UPDATE"
			mock.ExpectPrepare(regexp.QuoteMeta(query)).
				ExpectQuery().
				WithArgs("v-1").
				WillReturnRows(tt.rows)

			got, err := repo.GetTx(context.Background(), tx, dto.FilterGroup{
				Operator: dto.FilterGroupOperatorAnd,
				Filters:  []any{dto.Filter{Field: "id", Table: "vehicles", Operator: dto.FilterOperatorEq, Value: "v-1"}},
			}, repository.LockForUpdate)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetAllTx_PagesAndOrders(t *testing.T) {
	tx, mock := newTx(t)
	repo := newRepository()

	mock.ExpectPrepare(regexp.QuoteMeta("ORDER BY odometer DESC LIMIT $2 OFFSET $3")).
		ExpectQuery().
		WithArgs("available", 5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "odometer"}).AddRow("v-3", "available", 90.0))

	got, err := repo.GetAllTx(context.Background(), tx,
		dto.QueryParams{Page: 3, Limit: 5, SortBy: "odometer", SortDir: dto.SortDirDesc},
		dto.FilterGroup{Filters: []any{dto.Filter{Field: "status", Operator: dto.FilterOperatorEq, Value: "available"}}},
		repository.LockNone,
	)

	require.NoError(t, err)
	assert.Equal(t, []vehicleRow{{ID: "v-3", Status: "available", Odometer: 90}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTx(t *testing.T) {
	tx, mock := newTx(t)
	repo := newRepository()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vehicles SET status = $1, odometer = $2 WHERE id = $3")).
		WithArgs("rented", 1500.0, "v-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveTx(context.Background(), tx, vehicleRow{ID: "v-1", Status: "rented", Odometer: 1500})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBulkTx_EmptyIsNoop(t *testing.T) {
	tx, mock := newTx(t)
	repo := newRepository()

	require.NoError(t, repo.InsertBulkTx(context.Background(), tx, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
