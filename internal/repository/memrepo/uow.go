// Package memrepo хранилище счетов в памяти, реализующее контракт единицы работы.
// Вся транзакция выполняется под одной блокировкой хранилища, при ошибке состояние откатывается
// к снимку, сделанному перед ее началом.
package memrepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
	"github.com/fsdevblog/groph-bank/pkg/uow"
)

type state struct {
	accounts     map[string]domain.Account
	transactions []domain.Transaction
	credentials  map[string]domain.Credential
	lastTxID     int64
}

func newState() *state {
	return &state{
		accounts:    make(map[string]domain.Account),
		credentials: make(map[string]domain.Credential),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:     make(map[string]domain.Account, len(s.accounts)),
		transactions: make([]domain.Transaction, len(s.transactions)),
		credentials:  make(map[string]domain.Credential, len(s.credentials)),
		lastTxID:     s.lastTxID,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	copy(c.transactions, s.transactions)
	for k, v := range s.credentials {
		c.credentials[k] = v
	}
	return c
}

type UnitOfWork struct {
	mu     sync.Mutex
	st     *state
	faults map[string]error
	now    func() time.Time
}

func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{
		st:     newState(),
		faults: make(map[string]error),
		now:    time.Now,
	}
}

// Do выполняет fn атомарно относительно всех остальных операций хранилища.
// Внутри fn допустимо обращаться только к репозиториям, полученным из tx.
func (u *UnitOfWork) Do(ctx context.Context, fn func(context.Context, uow.TX) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrBusy, err.Error())
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	snapshot := u.st.clone()
	if err := fn(ctx, &transaction{u: u}); err != nil {
		u.st = snapshot
		return err
	}
	return nil
}

// GetRepository возвращает репозиторий, каждый вызов которого выполняется под собственной блокировкой.
func (u *UnitOfWork) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	return u.repository(name, false)
}

// InjectFault заставляет следующий вызов операции op вернуть err. Используется в тестах отката.
// op имеет вид "<repository>.<method>", например "transaction.Append".
func (u *UnitOfWork) InjectFault(op string, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.faults[op] = err
}

func (u *UnitOfWork) repository(name uow.RepositoryName, inTx bool) (uow.Repository, error) {
	base := repo{u: u, inTx: inTx}
	switch repoargs.RepositoryName(name) {
	case repoargs.AccountRepoName:
		return &AccountRepository{repo: base}, nil
	case repoargs.TransactionRepoName:
		return &TransactionRepository{repo: base}, nil
	case repoargs.CredentialRepoName:
		return &CredentialRepository{repo: base}, nil
	default:
		return nil, uow.ErrRepositoryNotRegistered
	}
}

type transaction struct {
	u *UnitOfWork
}

func (t *transaction) Get(name uow.RepositoryName) (uow.Repository, error) {
	return t.u.repository(name, true)
}

// repo общая часть репозиториев: захват блокировки вне транзакции и внедренные ошибки.
type repo struct {
	u    *UnitOfWork
	inTx bool
}

// enter захватывает блокировку, если вызов сделан вне транзакции, и возвращает функцию ее освобождения.
func (r repo) enter(op string) (func(), error) {
	release := func() {}
	if !r.inTx {
		r.u.mu.Lock()
		release = r.u.mu.Unlock
	}
	if err, ok := r.u.faults[op]; ok {
		delete(r.u.faults, op)
		release()
		return nil, fmt.Errorf("[memrepo/%s] %w: %s", op, domain.ErrStoreFailure, err.Error())
	}
	return release, nil
}

func notFound(op, key string) error {
	return fmt.Errorf("[memrepo/%s `%s`] %w", op, key, domain.ErrRecordNotFound)
}
