package domain

type TransactionType string

const (
	TransactionDeposit        TransactionType = "deposit"
	TransactionWithdraw       TransactionType = "withdraw"
	TransactionTransferDebit  TransactionType = "transfer-debit"
	TransactionTransferCredit TransactionType = "transfer-credit"
)

// AttemptCounter определяет, какой счетчик неудачных попыток увеличивать.
// Вход в систему и подтверждение чувствительных операций считаются независимо.
type AttemptCounter string

const (
	LoginCounter   AttemptCounter = "login"
	ConfirmCounter AttemptCounter = "confirm"
)

// MaxFailedAttempts кол-во подряд неудачных попыток, после которого учетная запись блокируется.
const MaxFailedAttempts = 3

// MaxPasswordBytes предел длины пароля, который принимает bcrypt.
const MaxPasswordBytes = 72

// ValidatePassword проверяет, что пароль не пустой и не длиннее MaxPasswordBytes байт.
func ValidatePassword(password string) error {
	if password == "" || len(password) > MaxPasswordBytes {
		return ErrInvalidPassword
	}
	return nil
}
