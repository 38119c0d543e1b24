package psswd

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHash bcrypt-хешер. Значение задает стоимость хеширования: 0 означает bcrypt.DefaultCost,
// значения вне допустимого диапазона bcrypt прижимаются к его границам.
type PasswordHash int

func (p PasswordHash) cost() int {
	switch c := int(p); {
	case c == 0:
		return bcrypt.DefaultCost
	case c < bcrypt.MinCost:
		return bcrypt.MinCost
	case c > bcrypt.MaxCost:
		return bcrypt.MaxCost
	default:
		return c
	}
}

// HashPassword возвращает bcrypt-хеш пароля. Пароли длиннее 72 байт bcrypt не принимает.
func (p PasswordHash) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.cost())
	if err != nil {
		return "", fmt.Errorf("hash password: %s", err.Error())
	}
	return string(hashed), nil
}

// ComparePassword сообщает, соответствует ли пароль хешу. Поврежденный хеш считается несовпадением.
func (p PasswordHash) ComparePassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
