package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/service"
	"github.com/shopspring/decimal"
)

// LedgerServicer операции со счетом, доступные через http.
type LedgerServicer interface {
	OpenAccount(ctx context.Context, args service.OpenAccountArgs) (*domain.Account, error)
	Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal) (decimal.Decimal, error)
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (*service.TransferResult, error)
	CheckBalance(ctx context.Context, accountNumber string) (*domain.BalanceSnapshot, error)
	History(ctx context.Context, accountNumber string, limit uint) ([]domain.Transaction, error)
	UpdateProfile(ctx context.Context, accountNumber string, args service.UpdateProfileArgs) (*domain.Account, error)
	CloseAccount(ctx context.Context, accountNumber string) error
	SendStatement(ctx context.Context, accountNumber string, limit uint) error
}

type AuthServicer interface {
	Register(ctx context.Context, args service.RegisterArgs) (*domain.Credential, error)
	Login(ctx context.Context, username, password string) (*domain.Credential, error)
	VerifyForSensitiveOp(ctx context.Context, username, password string) (*domain.Credential, error)
	ResetCredential(ctx context.Context, accountNumber string) error
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
}
