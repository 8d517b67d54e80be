package repository

import (
	"benzback/infras/otel"
	"benzback/internal/domains/outbox/model"
	gDto "benzback/shared/dto"
	gRepo "benzback/shared/repository"
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Outbox interface {
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, message model.Message) error
	SaveTx(ctx context.Context, sqltx *sqlx.Tx, message model.Message) error
	ClaimDueTx(ctx context.Context, sqltx *sqlx.Tx, now time.Time, limit int) ([]model.Message, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Message]
}

func New(otel otel.Otel) Outbox {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Message](model.EntityName, model.TableName, model.FieldID, otel),
	}
}

// ClaimDueTx locks up to limit pending messages whose next attempt is due. Rows held by
// another relay are skipped.
func (r *repositoryImpl) ClaimDueTx(ctx context.Context, sqltx *sqlx.Tx, now time.Time, limit int) ([]model.Message, error) {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldStatus, Operator: gDto.FilterOperatorEq, Value: model.StatusPending, Table: model.TableName},
			gDto.Filter{Field: model.FieldNextAttemptAt, Operator: gDto.FilterOperatorLessEq, Value: now, Table: model.TableName},
		},
	}

	params := gDto.QueryParams{Limit: limit, SortBy: model.FieldCreatedAt, SortDir: gDto.SortDirAsc}

	return r.GetAllTx(ctx, sqltx, params, filter, gRepo.LockForUpdateSkipLocked) //nolint:wrapcheck
}
