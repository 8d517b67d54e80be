package repository

import (
	"benzback/infras/otel"
	"benzback/internal/domains/driver/model"
	"benzback/shared"
	gDto "benzback/shared/dto"
	gRepo "benzback/shared/repository"
	"context"

	"github.com/jmoiron/sqlx"
)

type Driver interface {
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, driver model.Driver) error
	GetByIDTx(ctx context.Context, sqltx *sqlx.Tx, id string, lock gRepo.Lock) (model.Driver, error)
	ListEligibleTx(ctx context.Context, sqltx *sqlx.Tx, ids []string) ([]model.Driver, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Driver]
}

func New(otel otel.Otel) Driver {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Driver](model.EntityName, model.TableName, model.FieldID, otel),
	}
}

func (r *repositoryImpl) GetByIDTx(ctx context.Context, sqltx *sqlx.Tx, id string, lock gRepo.Lock) (model.Driver, error) {
	return r.GetTx(ctx, sqltx, shared.FilterByID(id, model.FieldID, model.TableName), lock) //nolint:wrapcheck
}

// ListEligibleTx returns the verified professional drivers among ids.
func (r *repositoryImpl) ListEligibleTx(ctx context.Context, sqltx *sqlx.Tx, ids []string) ([]model.Driver, error) {
	if len(ids) == 0 {
		return []model.Driver{}, nil
	}

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Operator: gDto.FilterOperatorIn, Value: ids, Table: model.TableName},
			gDto.Filter{Field: model.FieldProfessional, Operator: gDto.FilterOperatorEq, Value: true, Table: model.TableName},
			gDto.Filter{Field: model.FieldLicenseVerified, Operator: gDto.FilterOperatorEq, Value: true, Table: model.TableName},
			gDto.Filter{Field: model.FieldInsuranceVerified, Operator: gDto.FilterOperatorEq, Value: true, Table: model.TableName},
		},
	}

	params := gDto.QueryParams{SortBy: model.FieldID, SortDir: gDto.SortDirAsc}

	return r.GetAllTx(ctx, sqltx, params, filter, gRepo.LockNone) //nolint:wrapcheck
}
