package repository

import (
	"benzback/infras/otel"
	"benzback/internal/domains/user/model"
	"benzback/shared"
	gRepo "benzback/shared/repository"
	"context"

	"github.com/jmoiron/sqlx"
)

type User interface {
	GetByIDTx(ctx context.Context, sqltx *sqlx.Tx, id string, lock gRepo.Lock) (model.User, error)
	SaveTx(ctx context.Context, sqltx *sqlx.Tx, user model.User) error
}

type repositoryImpl struct {
	gRepo.Repository[model.User]
}

func New(otel otel.Otel) User {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.User](model.EntityName, model.TableName, model.FieldID, otel),
	}
}

func (r *repositoryImpl) GetByIDTx(ctx context.Context, sqltx *sqlx.Tx, id string, lock gRepo.Lock) (model.User, error) {
	return r.GetTx(ctx, sqltx, shared.FilterByID(id, model.FieldID, model.TableName), lock) //nolint:wrapcheck
}
