package pgrepo

import (
	"context"
	"fmt"
	"math"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
	"github.com/fsdevblog/groph-bank/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, created_at, account_number, type, amount, target_account`

const transactionsAppend = `INSERT INTO transactions (account_number, type, amount, target_account)
VALUES ($1, $2, $3, $4)
RETURNING ` + transactionColumns

const transactionsListByAccount = `SELECT ` + transactionColumns + `
FROM transactions WHERE account_number = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

type TransactionRepository struct {
	conn uow.DBTX
}

func NewTransactionRepository(conn uow.DBTX) *TransactionRepository {
	return &TransactionRepository{conn: conn}
}

// Append добавляет запись в историю операций. Записи неизменяемы.
func (t *TransactionRepository) Append(
	ctx context.Context,
	args repoargs.AppendTransaction,
) (*domain.Transaction, error) {
	row := t.conn.QueryRow(ctx, transactionsAppend,
		args.AccountNumber,
		string(args.Type),
		domain.RoundMoney(args.Amount),
		args.TargetAccount,
	)
	tr, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "appending %s transaction to account `%s`", args.Type, args.AccountNumber)
	}
	return tr, nil
}

// ListByAccount возвращает последние limit операций по счету, новые первыми.
func (t *TransactionRepository) ListByAccount(
	ctx context.Context,
	accountNumber string,
	limit uint,
) ([]domain.Transaction, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}

	rows, err := t.conn.Query(ctx, transactionsListByAccount, accountNumber, safeLimit)
	if err != nil {
		return nil, convertErr(err, "listing transactions of account `%s`", accountNumber)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tr, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning transaction of account `%s`", accountNumber)
		}
		transactions = append(transactions, *tr)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "listing transactions of account `%s`", accountNumber)
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tr domain.Transaction
	var trType string
	err := row.Scan(
		&tr.ID,
		&tr.CreatedAt,
		&tr.AccountNumber,
		&trType,
		&tr.Amount,
		&tr.TargetAccount,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	tr.Type = domain.TransactionType(trType)
	return &tr, nil
}

// safeConvertUintToInt32 безопасно конвертирует uint в int32. В случае выхода значения за рамки диапазона
// выбрасывает ошибку.
func safeConvertUintToInt32(val uint) (int32, error) {
	if val > uint(math.MaxInt32) {
		return 0, fmt.Errorf("value is out of range: %d", val)
	}
	return int32(val), nil
}
