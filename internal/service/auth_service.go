package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
	"github.com/fsdevblog/groph-bank/pkg/uow"
	"github.com/sirupsen/logrus"
)

// AuthService реализует проверку учетных данных с блокировкой после MaxFailedAttempts неудач подряд.
// Вход в систему и подтверждение чувствительных операций считают неудачи раздельно. Блокировка по
// подтверждению блокирует и учетные данные, и привязанный счет. Снимается блокировка только ResetCredential.
type AuthService struct {
	uow         uow.UOW
	credRepo    CredentialRepository
	accountRepo AccountRepository
	hasher      PasswordHasher
	secrets     SecretGenerator
	notifier    Notifier
	log         *logrus.Entry
}

type AuthServiceArgs struct {
	Hasher   PasswordHasher
	Secrets  SecretGenerator
	Notifier Notifier
	Logger   *logrus.Logger
}

func NewAuthService(u uow.UOW, args AuthServiceArgs) (*AuthService, error) {
	credRepo, credRepoErr := uow.GetRepositoryAs[CredentialRepository](
		u, uow.RepositoryName(repoargs.CredentialRepoName),
	)
	if credRepoErr != nil {
		return nil, credRepoErr
	}
	accountRepo, accountRepoErr := uow.GetRepositoryAs[AccountRepository](
		u, uow.RepositoryName(repoargs.AccountRepoName),
	)
	if accountRepoErr != nil {
		return nil, accountRepoErr
	}
	return &AuthService{
		uow:         u,
		credRepo:    credRepo,
		accountRepo: accountRepo,
		hasher:      args.Hasher,
		secrets:     args.Secrets,
		notifier:    args.Notifier,
		log:         args.Logger.WithFields(logrus.Fields{"component": "service", "module": "auth"}),
	}, nil
}

// Login проверяет пароль. Заблокированные учетные данные отклоняются с domain.ErrAccountLocked
// без проверки пароля. Неизвестный юзернейм неотличим от неверного пароля.
func (a *AuthService) Login(ctx context.Context, username, password string) (*domain.Credential, error) {
	cred, err := a.verify(ctx, username, password, domain.LoginCounter)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return cred, nil
}

// VerifyForSensitiveOp повторная проверка пароля перед списанием, переводом или изменением счета.
func (a *AuthService) VerifyForSensitiveOp(ctx context.Context, username, password string) (*domain.Credential, error) {
	cred, err := a.verify(ctx, username, password, domain.ConfirmCounter)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	return cred, nil
}

type RegisterArgs struct {
	Username      string
	Password      string
	AccountNumber string
}

// Register привязывает учетные данные к существующему счету, у которого их еще нет.
func (a *AuthService) Register(ctx context.Context, args RegisterArgs) (*domain.Credential, error) {
	if err := domain.ValidatePassword(args.Password); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	hash, hashErr := a.hasher.HashPassword(args.Password)
	if hashErr != nil {
		return nil, fmt.Errorf("register: %w", domain.AsStoreFailure(hashErr))
	}

	var cred *domain.Credential
	var acc *domain.Account
	txErr := a.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		credRepo, accountRepo, repoErr := authRepos(tx)
		if repoErr != nil {
			return repoErr
		}

		var findErr error
		acc, findErr = accountRepo.FindByNumber(c, args.AccountNumber)
		if findErr != nil {
			return notFoundAs(findErr, domain.ErrAccountNotFound)
		}
		if taken, takenErr := found(credRepo.FindByUsername(c, args.Username)); takenErr != nil || taken {
			return orErr(takenErr, domain.ErrDuplicateUsername)
		}
		if linked, linkedErr := found(credRepo.FindByAccount(c, args.AccountNumber)); linkedErr != nil || linked {
			return orErr(linkedErr, domain.ErrDuplicateAccountLink)
		}

		var createErr error
		cred, createErr = credRepo.Create(c, repoargs.CreateCredential{
			Username:      args.Username,
			PasswordHash:  hash,
			AccountNumber: args.AccountNumber,
		})
		return createErr //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("register: %w", domain.AsStoreFailure(txErr))
	}

	if acc.HasContactChannel() {
		body := fmt.Sprintf("Dear %s,\n\nUser %s is now linked to your account %s.\n",
			acc.HolderName, cred.Username, acc.AccountNumber)
		if err := a.notifier.Notify(acc.Email, "Registration completed", body); err != nil {
			a.log.WithError(err).WithField("account", acc.AccountNumber).Warn("registration notification was not delivered")
		}
	}
	return cred, nil
}

// ResetCredential выдает новый временный пароль, обнуляет счетчики и снимает блокировку с учетных данных
// и счета. Без известного адреса ничего не меняет и возвращает domain.ErrNoContactChannel.
func (a *AuthService) ResetCredential(ctx context.Context, accountNumber string) error {
	acc, findErr := a.accountRepo.FindByNumber(ctx, accountNumber)
	if findErr != nil {
		return fmt.Errorf("reset credential: %w", domain.AsStoreFailure(notFoundAs(findErr, domain.ErrAccountNotFound)))
	}
	if !acc.HasContactChannel() {
		return fmt.Errorf("reset credential: %w", domain.ErrNoContactChannel)
	}

	secret, secretErr := a.secrets.TempSecret()
	if secretErr != nil {
		return fmt.Errorf("reset credential: %w", domain.AsStoreFailure(secretErr))
	}
	hash, hashErr := a.hasher.HashPassword(secret)
	if hashErr != nil {
		return fmt.Errorf("reset credential: %w", domain.AsStoreFailure(hashErr))
	}

	var cred *domain.Credential
	txErr := a.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		credRepo, accountRepo, repoErr := authRepos(tx)
		if repoErr != nil {
			return repoErr
		}
		var credErr error
		cred, credErr = credRepo.FindByAccount(c, accountNumber)
		if credErr != nil {
			return notFoundAs(credErr, domain.ErrAccountNotFound)
		}
		if err := credRepo.UpdatePassword(c, cred.Username, hash); err != nil {
			return err //nolint:wrapcheck
		}
		if err := credRepo.Unlock(c, cred.Username); err != nil {
			return err //nolint:wrapcheck
		}
		return accountRepo.SetLocked(c, accountNumber, false) //nolint:wrapcheck
	})
	if txErr != nil {
		return fmt.Errorf("reset credential: %w", domain.AsStoreFailure(txErr))
	}

	log := a.log.WithFields(logrus.Fields{"account": accountNumber, "username": cred.Username})
	log.Info("credential reset")

	body := fmt.Sprintf("Dear %s,\n\nYour credentials have been reset.\nUsername: %s\nTemporary password: %s\n",
		acc.HolderName, cred.Username, secret)
	if err := a.notifier.Notify(acc.Email, "Credential reset", body); err != nil {
		log.WithError(err).Warn("credential reset notification was not delivered")
	}
	return nil
}

// ChangePassword меняет пароль после проверки старого как для чувствительной операции.
func (a *AuthService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if _, err := a.VerifyForSensitiveOp(ctx, username, oldPassword); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	hash, hashErr := a.hasher.HashPassword(newPassword)
	if hashErr != nil {
		return fmt.Errorf("change password: %w", domain.AsStoreFailure(hashErr))
	}
	txErr := a.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		credRepo, repoErr := uow.GetAs[CredentialRepository](tx, uow.RepositoryName(repoargs.CredentialRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		// блокировка, выставленная после проверки старого пароля, отменяет смену
		if err := credRepo.ClearFailedAttempts(c, username); err != nil {
			return err //nolint:wrapcheck
		}
		return credRepo.UpdatePassword(c, username, hash) //nolint:wrapcheck
	})
	if txErr != nil {
		return fmt.Errorf("change password: %w", domain.AsStoreFailure(txErr))
	}
	return nil
}

// verify общий автомат проверки: LOCKED -> отказ, совпадение -> сброс счетчиков, несовпадение -> учет неудачи.
// Сброс и учет неудачи выполняются условными обновлениями незаблокированных учетных данных, поэтому
// параллельные попытки не проходят мимо блокировки, выставленной после чтения cred.
func (a *AuthService) verify(
	ctx context.Context,
	username, password string,
	counter domain.AttemptCounter,
) (*domain.Credential, error) {
	cred, findErr := a.credRepo.FindByUsername(ctx, username)
	if findErr != nil {
		if errors.Is(findErr, domain.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.AsStoreFailure(findErr)
	}
	if cred.Locked {
		return nil, domain.ErrAccountLocked
	}

	if a.hasher.ComparePassword(password, cred.PasswordHash) {
		if err := a.credRepo.ClearFailedAttempts(ctx, username); err != nil {
			return nil, domain.AsStoreFailure(err)
		}
		cred.FailedAttempts, cred.ConfirmFailedAttempts = 0, 0
		return cred, nil
	}

	if err := a.recordFailure(ctx, cred, counter); err != nil {
		return nil, domain.AsStoreFailure(err)
	}
	return nil, domain.ErrInvalidCredentials
}

// recordFailure фиксирует неудачную попытку. Изменения коммитятся, даже если вызывающий получит ошибку.
// Если учетные данные успели заблокировать, возвращает domain.ErrAccountLocked.
func (a *AuthService) recordFailure(ctx context.Context, cred *domain.Credential, counter domain.AttemptCounter) error {
	var updated *domain.Credential
	txErr := a.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		credRepo, accountRepo, repoErr := authRepos(tx)
		if repoErr != nil {
			return repoErr
		}
		var recErr error
		updated, recErr = credRepo.RecordFailedAttempt(c, cred.Username, counter)
		if recErr != nil {
			return recErr //nolint:wrapcheck
		}
		if updated.Locked && counter == domain.ConfirmCounter {
			return accountRepo.SetLocked(c, cred.AccountNumber, true) //nolint:wrapcheck
		}
		return nil
	})
	if txErr != nil {
		return fmt.Errorf("recording failed %s attempt: %w", counter, txErr)
	}

	attempts := updated.FailedAttempts
	if counter == domain.ConfirmCounter {
		attempts = updated.ConfirmFailedAttempts
	}
	log := a.log.WithFields(logrus.Fields{"username": cred.Username, "counter": counter, "attempts": attempts})
	if updated.Locked {
		log.Warn("credential locked after failed attempts")
	} else {
		log.Info("failed authentication attempt")
	}
	return nil
}

func authRepos(tx uow.TX) (CredentialRepository, AccountRepository, error) {
	credRepo, credRepoErr := uow.GetAs[CredentialRepository](tx, uow.RepositoryName(repoargs.CredentialRepoName))
	if credRepoErr != nil {
		return nil, nil, credRepoErr //nolint:wrapcheck
	}
	accountRepo, accountRepoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
	if accountRepoErr != nil {
		return nil, nil, accountRepoErr //nolint:wrapcheck
	}
	return credRepo, accountRepo, nil
}

// found превращает результат поиска в признак существования записи. ErrRecordNotFound ошибкой не считается.
func found(_ *domain.Credential, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func orErr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}
