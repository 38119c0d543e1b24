package service

import (
	"fmt"

	"github.com/fsdevblog/groph-bank/pkg/uow"
	"github.com/sirupsen/logrus"
)

type AppServices struct {
	LedgerService *LedgerService
	AuthService   *AuthService
}

type FactoryArgs struct {
	Hasher     PasswordHasher
	Secrets    SecretGenerator
	Notifier   Notifier
	Statements StatementWriter
	Logger     *logrus.Logger
}

func Factory(unitOfWork uow.UOW, args FactoryArgs) (*AppServices, error) {
	ledgerService, ledgerServiceErr := NewLedgerService(unitOfWork, LedgerServiceArgs{
		Notifier:   args.Notifier,
		Statements: args.Statements,
		Logger:     args.Logger,
	})
	if ledgerServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", ledgerServiceErr.Error())
	}

	authService, authServiceErr := NewAuthService(unitOfWork, AuthServiceArgs{
		Hasher:   args.Hasher,
		Secrets:  args.Secrets,
		Notifier: args.Notifier,
		Logger:   args.Logger,
	})
	if authServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", authServiceErr.Error())
	}

	return &AppServices{
		LedgerService: ledgerService,
		AuthService:   authService,
	}, nil
}
