package repository

import (
	"benzback/infras/otel"
	"benzback/internal/domains/session/model"
	gDto "benzback/shared/dto"
	gRepo "benzback/shared/repository"
	"context"

	"github.com/jmoiron/sqlx"
)

type Session interface {
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, session model.Session) error
	GetOpenByBookingTx(ctx context.Context, sqltx *sqlx.Tx, bookingID string, lock gRepo.Lock) (model.Session, error)
	SaveTx(ctx context.Context, sqltx *sqlx.Tx, session model.Session) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Session]
}

func New(otel otel.Otel) Session {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Session](model.EntityName, model.TableName, model.FieldID, otel),
	}
}

func (r *repositoryImpl) GetOpenByBookingTx(ctx context.Context, sqltx *sqlx.Tx, bookingID string, lock gRepo.Lock) (model.Session, error) {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldBookingID, Operator: gDto.FilterOperatorEq, Value: bookingID, Table: model.TableName},
			gDto.Filter{Field: model.FieldStatus, Operator: gDto.FilterOperatorEq, Value: model.StatusOpen, Table: model.TableName},
		},
	}

	return r.GetTx(ctx, sqltx, filter, lock) //nolint:wrapcheck
}
