package service

import (
	"context"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

// SecretGenerator выдает временные пароли для сброса учетных данных.
type SecretGenerator interface {
	TempSecret() (string, error)
}

// Notifier доставляет уведомления держателю счета. Ошибка доставки никогда не отменяет
// уже зафиксированную операцию, вызывающая сторона только логирует ее.
type Notifier interface {
	Notify(address, subject, body string) error
	// NotifyWithAttachment принимает владение файлом filePath: после отправки или неудачи файл удаляется.
	NotifyWithAttachment(address, subject, body, filePath string) error
}

type AccountRepository interface {
	Create(ctx context.Context, args repoargs.CreateAccount) (*domain.Account, error)
	FindByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	// LockForUpdate читает счет с блокировкой строки до конца транзакции.
	LockForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetBalance(ctx context.Context, accountNumber string) (*domain.BalanceSnapshot, error)
	// AdjustBalance атомарно прибавляет delta к балансу и возвращает новый баланс.
	// Если баланс стал бы отрицательным, возвращает domain.ErrInsufficientFunds и ничего не меняет.
	AdjustBalance(ctx context.Context, accountNumber string, delta decimal.Decimal) (decimal.Decimal, error)
	Exists(ctx context.Context, accountNumber string) (bool, error)
	SetLocked(ctx context.Context, accountNumber string, locked bool) error
	UpdateProfile(ctx context.Context, accountNumber string, args repoargs.UpdateProfile) (*domain.Account, error)
	DeleteAccountAndHistory(ctx context.Context, accountNumber string) error
}

type TransactionRepository interface {
	Append(ctx context.Context, args repoargs.AppendTransaction) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountNumber string, limit uint) ([]domain.Transaction, error)
}

type CredentialRepository interface {
	Create(ctx context.Context, args repoargs.CreateCredential) (*domain.Credential, error)
	FindByUsername(ctx context.Context, username string) (*domain.Credential, error)
	FindByAccount(ctx context.Context, accountNumber string) (*domain.Credential, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	// RecordFailedAttempt увеличивает счетчик counter незаблокированных учетных данных и блокирует их,
	// когда счетчик достигает domain.MaxFailedAttempts. Для заблокированных возвращает domain.ErrAccountLocked.
	RecordFailedAttempt(ctx context.Context, username string, counter domain.AttemptCounter) (*domain.Credential, error)
	// ClearFailedAttempts обнуляет оба счетчика незаблокированных учетных данных. Для заблокированных
	// возвращает domain.ErrAccountLocked.
	ClearFailedAttempts(ctx context.Context, username string) error
	// Unlock снимает блокировку и обнуляет оба счетчика.
	Unlock(ctx context.Context, username string) error
	DeleteByAccount(ctx context.Context, accountNumber string) error
}

// StatementWriter формирует файл выписки по счету и возвращает путь к нему.
type StatementWriter interface {
	WriteStatement(account domain.Account, transactions []domain.Transaction) (string, error)
}
