package pgrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
	"github.com/fsdevblog/groph-bank/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const (
	usernameConstraint    = "credentials_pkey"
	accountLinkConstraint = "credentials_account_number_key"
)

const credentialColumns = `username, created_at, updated_at, password_hash, account_number,
	failed_attempts, confirm_failed_attempts, locked`

const credentialsCreate = `INSERT INTO credentials (username, password_hash, account_number)
VALUES ($1, $2, $3)
RETURNING ` + credentialColumns

const credentialsFindByUsername = `SELECT ` + credentialColumns + ` FROM credentials WHERE username = $1`

const credentialsFindByAccount = `SELECT ` + credentialColumns + ` FROM credentials WHERE account_number = $1`

const credentialsUpdatePassword = `UPDATE credentials SET password_hash = $2, updated_at = now()
WHERE username = $1`

const credentialsRecordLoginFailure = `UPDATE credentials
SET failed_attempts = failed_attempts + 1, locked = failed_attempts + 1 >= $2, updated_at = now()
WHERE username = $1 AND NOT locked
RETURNING ` + credentialColumns

const credentialsRecordConfirmFailure = `UPDATE credentials
SET confirm_failed_attempts = confirm_failed_attempts + 1, locked = confirm_failed_attempts + 1 >= $2,
	updated_at = now()
WHERE username = $1 AND NOT locked
RETURNING ` + credentialColumns

const credentialsClearAttempts = `UPDATE credentials
SET failed_attempts = 0, confirm_failed_attempts = 0, updated_at = now()
WHERE username = $1 AND NOT locked`

const credentialsUnlock = `UPDATE credentials
SET failed_attempts = 0, confirm_failed_attempts = 0, locked = FALSE, updated_at = now()
WHERE username = $1`

const credentialsDeleteByAccount = `DELETE FROM credentials WHERE account_number = $1`

type CredentialRepository struct {
	conn uow.DBTX
}

func NewCredentialRepository(conn uow.DBTX) *CredentialRepository {
	return &CredentialRepository{conn: conn}
}

// Create создает учетные данные. Занятый юзернейм возвращается как domain.ErrDuplicateUsername,
// уже привязанный счет как domain.ErrDuplicateAccountLink.
func (c *CredentialRepository) Create(
	ctx context.Context,
	args repoargs.CreateCredential,
) (*domain.Credential, error) {
	row := c.conn.QueryRow(ctx, credentialsCreate, args.Username, args.PasswordHash, args.AccountNumber)
	cred, err := scanCredential(row)
	if err != nil {
		return nil, classifyCredentialConflict(convertErr(err, "creating credential `%s`", args.Username))
	}
	return cred, nil
}

func (c *CredentialRepository) FindByUsername(ctx context.Context, username string) (*domain.Credential, error) {
	cred, err := scanCredential(c.conn.QueryRow(ctx, credentialsFindByUsername, username))
	if err != nil {
		return nil, convertErr(err, "finding credential `%s`", username)
	}
	return cred, nil
}

func (c *CredentialRepository) FindByAccount(ctx context.Context, accountNumber string) (*domain.Credential, error) {
	cred, err := scanCredential(c.conn.QueryRow(ctx, credentialsFindByAccount, accountNumber))
	if err != nil {
		return nil, convertErr(err, "finding credential of account `%s`", accountNumber)
	}
	return cred, nil
}

func (c *CredentialRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	return c.execOne(ctx, credentialsUpdatePassword, "updating password of `"+username+"`", username, passwordHash)
}

// RecordFailedAttempt увеличивает счетчик и выставляет блокировку одним условным UPDATE. Строка
// заблокированных учетных данных не обновляется, такой случай возвращается как domain.ErrAccountLocked.
func (c *CredentialRepository) RecordFailedAttempt(
	ctx context.Context,
	username string,
	counter domain.AttemptCounter,
) (*domain.Credential, error) {
	query := credentialsRecordLoginFailure
	if counter == domain.ConfirmCounter {
		query = credentialsRecordConfirmFailure
	}

	cred, err := scanCredential(c.conn.QueryRow(ctx, query, username, domain.MaxFailedAttempts))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("[repository/recording %s failure of `%s`] %w", counter, username, domain.ErrAccountLocked)
	}
	if err != nil {
		return nil, convertErr(err, "recording %s failure of `%s`", counter, username)
	}
	return cred, nil
}

// ClearFailedAttempts не трогает заблокированные учетные данные и возвращает для них domain.ErrAccountLocked.
func (c *CredentialRepository) ClearFailedAttempts(ctx context.Context, username string) error {
	tag, err := c.conn.Exec(ctx, credentialsClearAttempts, username)
	if err != nil {
		return convertErr(err, "clearing attempts of `%s`", username)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[repository/clearing attempts of `%s`] %w", username, domain.ErrAccountLocked)
	}
	return nil
}

func (c *CredentialRepository) Unlock(ctx context.Context, username string) error {
	return c.execOne(ctx, credentialsUnlock, "unlocking `"+username+"`", username)
}

func (c *CredentialRepository) DeleteByAccount(ctx context.Context, accountNumber string) error {
	if _, err := c.conn.Exec(ctx, credentialsDeleteByAccount, accountNumber); err != nil {
		return convertErr(err, "deleting credential of account `%s`", accountNumber)
	}
	return nil
}

// execOne выполняет запрос, который должен затронуть ровно одну строку.
func (c *CredentialRepository) execOne(ctx context.Context, query, msg string, args ...any) error {
	tag, err := c.conn.Exec(ctx, query, args...)
	if err != nil {
		return convertErr(err, "%s", msg)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "%s", msg)
	}
	return nil
}

// classifyCredentialConflict по имени нарушенного ограничения определяет, что именно уже занято.
func classifyCredentialConflict(err error) error {
	var dupErr *domain.DuplicateKeyError
	if !errors.As(err, &dupErr) {
		return err
	}
	switch dupErr.Constraint {
	case usernameConstraint:
		return fmt.Errorf("%w: %w", domain.ErrDuplicateUsername, err)
	case accountLinkConstraint:
		return fmt.Errorf("%w: %w", domain.ErrDuplicateAccountLink, err)
	default:
		return err
	}
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var cred domain.Credential
	err := row.Scan(
		&cred.Username,
		&cred.CreatedAt,
		&cred.UpdatedAt,
		&cred.PasswordHash,
		&cred.AccountNumber,
		&cred.FailedAttempts,
		&cred.ConfirmFailedAttempts,
		&cred.Locked,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &cred, nil
}
