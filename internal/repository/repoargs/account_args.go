package repoargs

import "github.com/shopspring/decimal"

type CreateAccount struct {
	AccountNumber  string
	HolderName     string
	Phone          string
	Email          string
	Balance        decimal.Decimal
	AlertThreshold decimal.Decimal
}

// UpdateProfile частичное обновление описательных полей счета. nil означает "не менять".
type UpdateProfile struct {
	Phone          *string
	Email          *string
	AlertThreshold *decimal.Decimal
}

// IsEmpty true, если ни одно поле не задано.
func (u UpdateProfile) IsEmpty() bool {
	return u.Phone == nil && u.Email == nil && u.AlertThreshold == nil
}
