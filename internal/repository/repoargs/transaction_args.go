package repoargs

import (
	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/shopspring/decimal"
)

type AppendTransaction struct {
	AccountNumber string
	Type          domain.TransactionType
	Amount        decimal.Decimal
	TargetAccount *string
}
