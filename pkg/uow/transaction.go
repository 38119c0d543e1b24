package uow

import (
	"github.com/jackc/pgx/v5"
)

// Transaction выдает репозитории, работающие внутри одной транзакции. Каждый репозиторий создается
// один раз и переиспользуется до конца транзакции.
type Transaction struct {
	tx           pgx.Tx
	repositories map[RepositoryName]RepositoryFactory
	created      map[RepositoryName]Repository
}

func NewTransaction(tx pgx.Tx, repositories map[RepositoryName]RepositoryFactory) *Transaction {
	return &Transaction{
		tx:           tx,
		repositories: repositories,
		created:      make(map[RepositoryName]Repository, len(repositories)),
	}
}

// Get возвращает репозиторий транзакции или ошибку ErrRepositoryNotRegistered.
func (t *Transaction) Get(name RepositoryName) (Repository, error) {
	if repo, ok := t.created[name]; ok {
		return repo, nil
	}
	factory, ok := t.repositories[name]
	if !ok {
		return nil, ErrRepositoryNotRegistered
	}
	repo := factory(t.tx)
	t.created[name] = repo
	return repo, nil
}

// GetAs то же, что TX.Get, с приведением к типу T. Возвращает ошибки ErrRepositoryNotRegistered
// и ErrInvalidRepositoryType.
func GetAs[T any](t TX, name RepositoryName) (T, error) {
	var res T
	repo, err := t.Get(name)
	if err != nil {
		return res, err //nolint:wrapcheck
	}
	res, ok := repo.(T)
	if !ok {
		return res, ErrInvalidRepositoryType
	}
	return res, nil
}
