package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorsTestSuite struct {
	suite.Suite
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}

func (s *ErrorsTestSuite) TestPublicMessage() {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "wrapped domain error", err: fmt.Errorf("withdraw: %w", ErrInsufficientFunds), want: "insufficient balance"},
		{name: "busy before store failure", err: fmt.Errorf("transfer: %w", ErrBusy), want: "service is busy, try again later"},
		{
			name: "store failure hides driver text",
			err:  fmt.Errorf("[repository/x] %w: relation \"accounts\" does not exist", ErrStoreFailure),
			want: "internal error",
		},
		{name: "unknown error", err: errors.New("boom"), want: "internal error"},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			s.Equal(t.want, PublicMessage(t.err))
		})
	}
}

func (s *ErrorsTestSuite) TestAsStoreFailure() {
	s.NoError(AsStoreFailure(nil))
	s.Require().ErrorIs(AsStoreFailure(ErrAccountLocked), ErrAccountLocked)

	wrapped := AsStoreFailure(errors.New("conn reset"))
	s.Require().ErrorIs(wrapped, ErrStoreFailure)
	s.False(errors.Is(wrapped, ErrBusy))
}

func (s *ErrorsTestSuite) TestDuplicateKeyError() {
	err := fmt.Errorf("create: %w", NewDuplicateKeyError("credentials_pkey"))

	s.Require().ErrorIs(err, ErrDuplicateKey)

	var dupErr *DuplicateKeyError
	s.Require().ErrorAs(err, &dupErr)
	s.Equal("credentials_pkey", dupErr.Constraint)
}

func (s *ErrorsTestSuite) TestValidatePassword() {
	s.NoError(ValidatePassword("secret"))
	s.NoError(ValidatePassword(strings.Repeat("p", MaxPasswordBytes)))
	// многобайтные символы считаются в байтах
	s.Require().ErrorIs(ValidatePassword(strings.Repeat("ж", MaxPasswordBytes/2+1)), ErrInvalidPassword)
	s.Require().ErrorIs(ValidatePassword(""), ErrInvalidPassword)
	s.Equal("password must be from 1 to 72 bytes long", PublicMessage(ErrInvalidPassword))
}
