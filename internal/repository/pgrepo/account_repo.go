package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
	"github.com/fsdevblog/groph-bank/pkg/uow"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_number, created_at, updated_at, holder_name, phone, email,
	balance, alert_threshold, locked`

const accountsCreate = `INSERT INTO accounts (account_number, holder_name, phone, email, balance, alert_threshold)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + accountColumns

const accountsFindByNumber = `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

const accountsLockForUpdate = accountsFindByNumber + ` FOR UPDATE`

const accountsGetBalance = `SELECT account_number, holder_name, email, balance, alert_threshold
FROM accounts WHERE account_number = $1`

const accountsAdjustBalance = `UPDATE accounts SET balance = balance + $2, updated_at = now()
WHERE account_number = $1 AND balance + $2 >= 0
RETURNING balance`

const accountsExists = `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`

const accountsSetLocked = `UPDATE accounts SET locked = $2, updated_at = now() WHERE account_number = $1`

const accountsDelete = `DELETE FROM accounts WHERE account_number = $1`

const transactionsDeleteByAccount = `DELETE FROM transactions WHERE account_number = $1`

type AccountRepository struct {
	conn uow.DBTX
}

func NewAccountRepository(conn uow.DBTX) *AccountRepository {
	return &AccountRepository{conn: conn}
}

// Create создает счет. В случае конфликта номера счета возвращает ошибку domain.ErrDuplicateKey.
func (a *AccountRepository) Create(ctx context.Context, args repoargs.CreateAccount) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx, accountsCreate,
		args.AccountNumber,
		args.HolderName,
		args.Phone,
		args.Email,
		domain.RoundMoney(args.Balance),
		domain.RoundMoney(args.AlertThreshold),
	)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "creating account `%s`", args.AccountNumber)
	}
	return acc, nil
}

// FindByNumber возвращает счет или domain.ErrRecordNotFound.
func (a *AccountRepository) FindByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	acc, err := scanAccount(a.conn.QueryRow(ctx, accountsFindByNumber, accountNumber))
	if err != nil {
		return nil, convertErr(err, "finding account `%s`", accountNumber)
	}
	return acc, nil
}

// LockForUpdate работает только внутри транзакции, блокировка держится до ее завершения.
func (a *AccountRepository) LockForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error) {
	acc, err := scanAccount(a.conn.QueryRow(ctx, accountsLockForUpdate, accountNumber))
	if err != nil {
		return nil, convertErr(err, "locking account `%s`", accountNumber)
	}
	return acc, nil
}

func (a *AccountRepository) GetBalance(ctx context.Context, accountNumber string) (*domain.BalanceSnapshot, error) {
	var snapshot domain.BalanceSnapshot
	err := a.conn.QueryRow(ctx, accountsGetBalance, accountNumber).Scan(
		&snapshot.AccountNumber,
		&snapshot.HolderName,
		&snapshot.Email,
		&snapshot.Balance,
		&snapshot.AlertThreshold,
	)
	if err != nil {
		return nil, convertErr(err, "getting balance of account `%s`", accountNumber)
	}
	return &snapshot, nil
}

// AdjustBalance выполняет условное обновление баланса. Если ни одна строка не обновлена, отдельным запросом
// определяет причину: отсутствие счета (domain.ErrRecordNotFound) или нехватку средств (domain.ErrInsufficientFunds).
func (a *AccountRepository) AdjustBalance(
	ctx context.Context,
	accountNumber string,
	delta decimal.Decimal,
) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := a.conn.QueryRow(ctx, accountsAdjustBalance, accountNumber, domain.RoundMoney(delta)).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, convertErr(err, "adjusting balance of account `%s`", accountNumber)
	}

	exists, existsErr := a.Exists(ctx, accountNumber)
	if existsErr != nil {
		return decimal.Zero, existsErr
	}
	if !exists {
		return decimal.Zero, convertErr(pgx.ErrNoRows, "adjusting balance of account `%s`", accountNumber)
	}
	return decimal.Zero, fmt.Errorf("[repository/adjusting balance of account `%s`] %w",
		accountNumber, domain.ErrInsufficientFunds)
}

func (a *AccountRepository) Exists(ctx context.Context, accountNumber string) (bool, error) {
	var exists bool
	if err := a.conn.QueryRow(ctx, accountsExists, accountNumber).Scan(&exists); err != nil {
		return false, convertErr(err, "checking account `%s` exists", accountNumber)
	}
	return exists, nil
}

// SetLocked возвращает domain.ErrRecordNotFound, если счета нет.
func (a *AccountRepository) SetLocked(ctx context.Context, accountNumber string, locked bool) error {
	tag, err := a.conn.Exec(ctx, accountsSetLocked, accountNumber, locked)
	if err != nil {
		return convertErr(err, "setting locked=%t on account `%s`", locked, accountNumber)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "setting locked=%t on account `%s`", locked, accountNumber)
	}
	return nil
}

// UpdateProfile обновляет только заданные поля. Пустой набор полей просто возвращает текущее состояние счета.
func (a *AccountRepository) UpdateProfile(
	ctx context.Context,
	accountNumber string,
	args repoargs.UpdateProfile,
) (*domain.Account, error) {
	if args.IsEmpty() {
		return a.FindByNumber(ctx, accountNumber)
	}

	sets := make([]string, 0, 4) //nolint:mnd
	params := []any{accountNumber}
	addSet := func(column string, value any) {
		params = append(params, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(params)))
	}
	if args.Phone != nil {
		addSet("phone", *args.Phone)
	}
	if args.Email != nil {
		addSet("email", *args.Email)
	}
	if args.AlertThreshold != nil {
		addSet("alert_threshold", domain.RoundMoney(*args.AlertThreshold))
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE accounts SET ` + strings.Join(sets, ", ") +
		` WHERE account_number = $1 RETURNING ` + accountColumns

	acc, err := scanAccount(a.conn.QueryRow(ctx, query, params...))
	if err != nil {
		return nil, convertErr(err, "updating profile of account `%s`", accountNumber)
	}
	return acc, nil
}

// DeleteAccountAndHistory удаляет историю операций и сам счет. Учетные данные удаляются каскадно.
func (a *AccountRepository) DeleteAccountAndHistory(ctx context.Context, accountNumber string) error {
	if _, err := a.conn.Exec(ctx, transactionsDeleteByAccount, accountNumber); err != nil {
		return convertErr(err, "deleting history of account `%s`", accountNumber)
	}
	tag, err := a.conn.Exec(ctx, accountsDelete, accountNumber)
	if err != nil {
		return convertErr(err, "deleting account `%s`", accountNumber)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "deleting account `%s`", accountNumber)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	err := row.Scan(
		&acc.AccountNumber,
		&acc.CreatedAt,
		&acc.UpdatedAt,
		&acc.HolderName,
		&acc.Phone,
		&acc.Email,
		&acc.Balance,
		&acc.AlertThreshold,
		&acc.Locked,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &acc, nil
}
