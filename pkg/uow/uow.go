package uow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options настройки транзакций единицы работы. Нулевые значения таймаутов означают отсутствие ограничения.
type Options struct {
	// LockTimeout ограничивает ожидание блокировки строк внутри транзакции.
	LockTimeout time.Duration
	// StatementTimeout ограничивает время выполнения одного запроса внутри транзакции.
	StatementTimeout time.Duration
	// IsoLevel уровень изоляции, по умолчанию read committed.
	IsoLevel pgx.TxIsoLevel
}

// statements SET LOCAL для начала каждой транзакции.
func (o Options) statements() []string {
	var stmts []string
	if o.LockTimeout > 0 {
		stmts = append(stmts, setLocalTimeout("lock_timeout", o.LockTimeout))
	}
	if o.StatementTimeout > 0 {
		stmts = append(stmts, setLocalTimeout("statement_timeout", o.StatementTimeout))
	}
	return stmts
}

type UnitOfWork struct {
	conn         *pgxpool.Pool
	repositories map[RepositoryName]RepositoryFactory
	txOptions    pgx.TxOptions
	prelude      []string
}

func NewUnitOfWork(conn *pgxpool.Pool, opts Options) *UnitOfWork {
	isoLevel := opts.IsoLevel
	if isoLevel == "" {
		isoLevel = pgx.ReadCommitted
	}
	return &UnitOfWork{
		conn:         conn,
		repositories: make(map[RepositoryName]RepositoryFactory),
		txOptions:    pgx.TxOptions{IsoLevel: isoLevel},
		prelude:      opts.statements(),
	}
}

// Register регистрирует фабрику репозитория под именем name. Повторная регистрация возвращает
// ErrRepositoryAlreadyRegistered.
func (u *UnitOfWork) Register(name RepositoryName, factory RepositoryFactory) error {
	if factory == nil {
		return ErrNilFactory
	}
	if _, ok := u.repositories[name]; ok {
		return ErrRepositoryAlreadyRegistered
	}
	u.repositories[name] = factory
	return nil
}

// Do выполняет fn в одной транзакции. Ошибка fn, как и паника, откатывает все изменения.
func (u *UnitOfWork) Do(ctx context.Context, fn func(context.Context, TX) error) (err error) {
	tx, txErr := u.conn.BeginTx(ctx, u.txOptions)
	if txErr != nil {
		return fmt.Errorf("begin transaction: %w", txErr)
	}
	defer func() {
		// после успешного Commit откат вернет pgx.ErrTxClosed
		rollbackErr := tx.Rollback(context.WithoutCancel(ctx))
		if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rollbackErr))
		}
	}()

	for _, stmt := range u.prelude {
		if _, execErr := tx.Exec(ctx, stmt); execErr != nil {
			return fmt.Errorf("prepare transaction: %w", execErr)
		}
	}

	if fnErr := fn(ctx, NewTransaction(tx, u.repositories)); fnErr != nil {
		return fnErr
	}
	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit: %w", commitErr)
	}
	return nil
}

// GetRepository возвращает репозиторий поверх пула, вне транзакции. Для незарегистрированного имени
// вернется ErrRepositoryNotRegistered.
func (u *UnitOfWork) GetRepository(name RepositoryName) (Repository, error) {
	factory, ok := u.repositories[name]
	if !ok {
		return nil, ErrRepositoryNotRegistered
	}
	return factory(u.conn), nil
}

// GetRepositoryAs то же, что GetRepository, с приведением к типу T. Возвращает ошибки
// ErrRepositoryNotRegistered и ErrInvalidRepositoryType.
func GetRepositoryAs[T any](u UOW, name RepositoryName) (T, error) {
	var res T
	repo, err := u.GetRepository(name)
	if err != nil {
		return res, err //nolint:wrapcheck
	}
	res, ok := repo.(T)
	if !ok {
		return res, ErrInvalidRepositoryType
	}
	return res, nil
}

// setLocalTimeout SET LOCAL не принимает параметры, поэтому значение подставляется в текст запроса.
func setLocalTimeout(setting string, d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return fmt.Sprintf("SET LOCAL %s = '%dms'", setting, ms)
}
