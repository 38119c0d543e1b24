package psswd

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type PsswdTestSuite struct {
	suite.Suite
}

func TestPsswdSuite(t *testing.T) {
	suite.Run(t, new(PsswdTestSuite))
}

func (s *PsswdTestSuite) TestHashAndCompare() {
	hasher := PasswordHash(bcrypt.MinCost)
	password := gofakeit.Password(true, true, true, false, false, 12)

	hash, err := hasher.HashPassword(password)
	s.Require().NoError(err)
	s.NotEqual(password, hash)

	s.True(hasher.ComparePassword(password, hash))
	s.False(hasher.ComparePassword(password+"x", hash))
	s.False(hasher.ComparePassword(password, "not a bcrypt hash"))
}

func (s *PsswdTestSuite) TestCost() {
	cases := []struct {
		name string
		p    PasswordHash
		want int
	}{
		{name: "default", p: 0, want: bcrypt.DefaultCost},
		{name: "too low", p: 1, want: bcrypt.MinCost},
		{name: "too high", p: 99, want: bcrypt.MaxCost},
		{name: "as is", p: 12, want: 12},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			s.Equal(t.want, t.p.cost())
		})
	}
}

func (s *PsswdTestSuite) TestHashTooLong() {
	_, err := PasswordHash(bcrypt.MinCost).HashPassword(strings.Repeat("a", 73))
	s.Require().Error(err)
}

func (s *PsswdTestSuite) TestTempSecret() {
	gen := TempSecret(10)

	first, err := gen.TempSecret()
	s.Require().NoError(err)
	s.Len(first, 10)
	for _, r := range first {
		s.True(strings.ContainsRune(secretAlphabet, r))
	}

	second, err := gen.TempSecret()
	s.Require().NoError(err)
	s.NotEqual(first, second)

	_, err = TempSecret(4).TempSecret()
	s.Require().Error(err)
}
