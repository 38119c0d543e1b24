package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	AccountNumber  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	HolderName     string
	Phone          string
	Email          string
	Balance        decimal.Decimal
	AlertThreshold decimal.Decimal
	Locked         bool
}

// HasContactChannel сообщает, известен ли адрес для отправки уведомлений.
func (a *Account) HasContactChannel() bool {
	return a.Email != ""
}

// Snapshot возвращает срез данных счета, достаточный для проверки порога уведомлений.
func (a *Account) Snapshot() BalanceSnapshot {
	return BalanceSnapshot{
		AccountNumber:  a.AccountNumber,
		HolderName:     a.HolderName,
		Email:          a.Email,
		Balance:        a.Balance,
		AlertThreshold: a.AlertThreshold,
	}
}

// BalanceSnapshot результат точечного чтения баланса вместе с порогом уведомления и контактом.
type BalanceSnapshot struct {
	AccountNumber  string
	HolderName     string
	Email          string
	Balance        decimal.Decimal
	AlertThreshold decimal.Decimal
}

// BelowThreshold true, если баланс опустился ниже порога уведомления.
func (b BalanceSnapshot) BelowThreshold() bool {
	return b.Balance.LessThan(b.AlertThreshold)
}

type Transaction struct {
	ID            int64
	CreatedAt     time.Time
	AccountNumber string
	Type          TransactionType
	Amount        decimal.Decimal
	// TargetAccount заполняется только для переводов.
	TargetAccount *string
}

type Credential struct {
	Username              string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	PasswordHash          string
	AccountNumber         string
	FailedAttempts        int
	ConfirmFailedAttempts int
	Locked                bool
}
