package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"benzback/infras/otel"
	"benzback/internal/domains/booking/model"
	"benzback/shared"
	"benzback/shared/constant"
	gDto "benzback/shared/dto"
	gRepo "benzback/shared/repository"
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Booking interface {
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, booking model.Booking) error
	GetByIDTx(ctx context.Context, sqltx *sqlx.Tx, id string, lock gRepo.Lock) (model.Booking, error)
	GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params gDto.QueryParams, filter gDto.FilterGroup, lock gRepo.Lock, columns ...string) ([]model.Booking, error)
	CountTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) (int, error)
	SaveTx(ctx context.Context, sqltx *sqlx.Tx, booking model.Booking) error
	GetHistoryTx(ctx context.Context, sqltx *sqlx.Tx, bookingID string) ([]model.StatusEntry, error)
	AppendHistoryTx(ctx context.Context, sqltx *sqlx.Tx, entries []model.StatusEntry) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	history gRepo.Repository[model.StatusEntry]
	otel    otel.Otel
}

func New(otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, otel),
		history:    gRepo.NewRepository[model.StatusEntry](model.HistoryEntity, model.HistoryTableName, model.FieldSeq, otel),
		otel:       otel,
	}
}

// GetByIDTx loads the booking row and its full history. A missing booking yields a zero value.
func (r *repositoryImpl) GetByIDTx(ctx context.Context, sqltx *sqlx.Tx, id string, lock gRepo.Lock) (model.Booking, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.GetByIDTx")
	defer scope.End()

	booking, err := r.GetTx(ctx, sqltx, shared.FilterByID(id, model.FieldID, model.TableName), lock)
	if err != nil {
		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, nil
	}

	booking.History, err = r.GetHistoryTx(ctx, sqltx, booking.ID)
	if err != nil {
		return booking, err
	}

	return booking, nil
}

func (r *repositoryImpl) InsertTx(ctx context.Context, sqltx *sqlx.Tx, booking model.Booking) error {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.InsertTx")
	defer scope.End()

	if err := r.Repository.InsertTx(ctx, sqltx, booking); err != nil {
		return err //nolint:wrapcheck
	}

	return r.AppendHistoryTx(ctx, sqltx, booking.History)
}

func (r *repositoryImpl) GetHistoryTx(ctx context.Context, sqltx *sqlx.Tx, bookingID string) ([]model.StatusEntry, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.GetHistoryTx")
	defer scope.End()

	params := gDto.QueryParams{SortBy: model.FieldSeq, SortDir: gDto.SortDirAsc}

	entries, err := r.history.GetAllTx(ctx, sqltx, params, shared.FilterByID(bookingID, model.FieldBookingID, model.HistoryTableName), gRepo.LockNone)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking history: %w", err)
	}

	return entries, nil
}

// AppendHistoryTx inserts new history entries. Existing rows are never updated.
func (r *repositoryImpl) AppendHistoryTx(ctx context.Context, sqltx *sqlx.Tx, entries []model.StatusEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.AppendHistoryTx")
	defer scope.End()

	if err := r.history.InsertBulkTx(ctx, sqltx, entries); err != nil {
		return fmt.Errorf("failed to append booking history: %w", err)
	}

	return nil
}
