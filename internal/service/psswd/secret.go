package psswd

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const secretAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const minSecretLength = 8

// TempSecret генератор временных паролей заданной длины.
type TempSecret int

// TempSecret возвращает криптографически случайную строку из букв и цифр без легко путаемых символов.
func (t TempSecret) TempSecret() (string, error) {
	length := int(t)
	if length < minSecretLength {
		return "", errors.New("temp secret length is too short")
	}
	alphabetLen := big.NewInt(int64(len(secretAlphabet)))
	secret := make([]byte, length)
	for i := range secret {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generating temp secret: %w", err)
		}
		secret[i] = secretAlphabet[n.Int64()]
	}
	return string(secret), nil
}
