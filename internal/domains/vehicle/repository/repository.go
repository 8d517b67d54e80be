package repository

import (
	"benzback/infras/otel"
	"benzback/internal/domains/vehicle/model"
	"benzback/shared"
	gRepo "benzback/shared/repository"
	"context"

	"github.com/jmoiron/sqlx"
)

type Vehicle interface {
	GetByIDTx(ctx context.Context, sqltx *sqlx.Tx, id string, lock gRepo.Lock) (model.Vehicle, error)
	SaveTx(ctx context.Context, sqltx *sqlx.Tx, vehicle model.Vehicle) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Vehicle]
}

func New(otel otel.Otel) Vehicle {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Vehicle](model.EntityName, model.TableName, model.FieldID, otel),
	}
}

func (r *repositoryImpl) GetByIDTx(ctx context.Context, sqltx *sqlx.Tx, id string, lock gRepo.Lock) (model.Vehicle, error) {
	return r.GetTx(ctx, sqltx, shared.FilterByID(id, model.FieldID, model.TableName), lock) //nolint:wrapcheck
}
