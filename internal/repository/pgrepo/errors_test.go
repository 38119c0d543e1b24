package pgrepo

import (
	"errors"
	"testing"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"
)

type ConvertErrTestSuite struct {
	suite.Suite
}

func TestConvertErrSuite(t *testing.T) {
	suite.Run(t, new(ConvertErrTestSuite))
}

func (s *ConvertErrTestSuite) TestConvertErr() {
	cases := []struct {
		name    string
		err     error
		wantErr error
		notErr  error
	}{
		{name: "no rows", err: pgx.ErrNoRows, wantErr: domain.ErrRecordNotFound},
		{
			name:    "unique violation",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "credentials_pkey"},
			wantErr: domain.ErrDuplicateKey,
		},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, wantErr: domain.ErrBusy},
		{name: "statement timeout", err: &pgconn.PgError{Code: "57014"}, wantErr: domain.ErrBusy},
		{
			name:    "numeric overflow",
			err:     &pgconn.PgError{Code: "22003"},
			wantErr: domain.ErrInvalidAmount,
			notErr:  domain.ErrStoreFailure,
		},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, wantErr: domain.ErrBusy},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, wantErr: domain.ErrBusy},
		{name: "busy is store failure too", err: &pgconn.PgError{Code: "55P03"}, wantErr: domain.ErrStoreFailure},
		{
			name:    "check violation",
			err:     &pgconn.PgError{Code: "23514"},
			wantErr: domain.ErrStoreFailure,
			notErr:  domain.ErrBusy,
		},
		{name: "connection error", err: errors.New("conn closed"), wantErr: domain.ErrStoreFailure, notErr: domain.ErrBusy},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			err := convertErr(t.err, "test %s", "op")
			s.Require().ErrorIs(err, t.wantErr)
			if t.notErr != nil {
				s.False(errors.Is(err, t.notErr))
			}
		})
	}

	s.NoError(convertErr(nil, "nothing"))
}

func (s *ConvertErrTestSuite) TestConvertErr_KeepsConstraintName() {
	err := convertErr(&pgconn.PgError{Code: "23505", ConstraintName: "credentials_account_number_key"}, "creating")

	var dupErr *domain.DuplicateKeyError
	s.Require().ErrorAs(err, &dupErr)
	s.Equal(accountLinkConstraint, dupErr.Constraint)
}
