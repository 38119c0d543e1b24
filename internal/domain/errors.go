package domain

import (
	"errors"
	"fmt"
)

// Ошибки слоя репозитория.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrStoreFailure   = errors.New("store failure")
	// ErrBusy истекло время ожидания блокировки. Является частным случаем ErrStoreFailure.
	ErrBusy = fmt.Errorf("store busy: %w", ErrStoreFailure)
)

// Ошибки бизнес-логики.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrAccountNotFound      = errors.New("account not found")
	ErrTargetNotFound       = errors.New("target account not found")
	ErrSourceNotFound       = errors.New("source account not found")
	ErrSameAccount          = errors.New("source and target accounts are the same")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrDuplicateUsername    = errors.New("username already taken")
	ErrDuplicateAccountLink = errors.New("account already has a linked user")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account locked")
	ErrNoContactChannel     = errors.New("no contact channel")

	ErrInvalidHolder = errors.New("invalid holder name")
	ErrInvalidPhone  = errors.New("invalid phone")
	ErrInvalidEmail  = errors.New("invalid email")

	ErrInvalidPassword = errors.New("invalid password")
)

// DuplicateKeyError нарушение уникальности с указанием имени ограничения.
type DuplicateKeyError struct {
	Constraint string
}

func NewDuplicateKeyError(constraint string) error {
	return &DuplicateKeyError{Constraint: constraint}
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key violates constraint %q", e.Constraint)
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

// publicErrors ошибки, которые можно показывать пользователю, и их короткие сообщения.
// Порядок важен: ErrBusy проверяется раньше ErrStoreFailure.
var publicErrors = []struct {
	err error
	msg string
}{
	{ErrInvalidAmount, "amount must be greater than zero and at most 9999999999999999.99"},
	{ErrAccountNotFound, "account not found"},
	{ErrTargetNotFound, "target account not found"},
	{ErrSourceNotFound, "source account not found"},
	{ErrSameAccount, "cannot transfer to the same account"},
	{ErrInsufficientFunds, "insufficient balance"},
	{ErrDuplicateUsername, "username already exists"},
	{ErrDuplicateAccountLink, "account already linked to another user"},
	{ErrInvalidCredentials, "invalid username or password"},
	{ErrAccountLocked, "account is locked, reset your password to unlock it"},
	{ErrNoContactChannel, "no email linked to this account"},
	{ErrInvalidHolder, "holder name may contain only letters and spaces"},
	{ErrInvalidPhone, "phone number must be exactly 10 digits"},
	{ErrInvalidEmail, "invalid email address"},
	{ErrInvalidPassword, "password must be from 1 to 72 bytes long"},
	{ErrBusy, "service is busy, try again later"},
	{ErrStoreFailure, "internal error"},
}

// PublicMessage возвращает короткое сообщение об ошибке, пригодное для показа недоверенному клиенту.
// Текст ошибок хранилища наружу не попадает.
func PublicMessage(err error) string {
	for _, pe := range publicErrors {
		if errors.Is(err, pe.err) {
			return pe.msg
		}
	}
	return "internal error"
}

// IsKnown проверяет, относится ли ошибка к таксономии домена.
func IsKnown(err error) bool {
	for _, pe := range publicErrors {
		if errors.Is(err, pe.err) {
			return true
		}
	}
	return false
}

// AsStoreFailure оборачивает неизвестную ошибку в ErrStoreFailure. Ошибки домена возвращаются как есть.
func AsStoreFailure(err error) error {
	if err == nil || IsKnown(err) {
		return err
	}
	return fmt.Errorf("%w: %s", ErrStoreFailure, err.Error())
}
