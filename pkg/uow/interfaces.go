// Package uow единица работы поверх пула pgx. Репозитории регистрируются фабриками и создаются заново
// для каждого соединения или транзакции, поэтому сервисы не зависят от того, где выполняется запрос.
package uow

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks
import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type (
	RepositoryName string
	Repository     any
	// RepositoryFactory создает репозиторий поверх соединения или транзакции.
	RepositoryFactory func(DBTX) Repository
)

// TX репозитории, привязанные к открытой транзакции.
type TX interface {
	Get(name RepositoryName) (Repository, error)
}

// DBTX общее подмножество методов pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
}

// UOW единица работы. Регистрация репозиториев зависит от хранилища и в контракт не входит.
type UOW interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx TX) error) error
	GetRepository(name RepositoryName) (Repository, error)
}
