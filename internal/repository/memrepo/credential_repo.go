package memrepo

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
)

type CredentialRepository struct {
	repo
}

func (c *CredentialRepository) Create(_ context.Context, args repoargs.CreateCredential) (*domain.Credential, error) {
	release, err := c.enter("credential.Create")
	if err != nil {
		return nil, err
	}
	defer release()

	if _, ok := c.u.st.credentials[args.Username]; ok {
		return nil, fmt.Errorf("[memrepo/credential.Create] %w", domain.ErrDuplicateUsername)
	}
	for _, cred := range c.u.st.credentials {
		if cred.AccountNumber == args.AccountNumber {
			return nil, fmt.Errorf("[memrepo/credential.Create] %w", domain.ErrDuplicateAccountLink)
		}
	}
	if _, ok := c.u.st.accounts[args.AccountNumber]; !ok {
		return nil, notFound("credential.Create", args.AccountNumber)
	}
	now := c.u.now()
	cred := domain.Credential{
		Username:      args.Username,
		CreatedAt:     now,
		UpdatedAt:     now,
		PasswordHash:  args.PasswordHash,
		AccountNumber: args.AccountNumber,
	}
	c.u.st.credentials[cred.Username] = cred
	return &cred, nil
}

func (c *CredentialRepository) FindByUsername(_ context.Context, username string) (*domain.Credential, error) {
	release, err := c.enter("credential.FindByUsername")
	if err != nil {
		return nil, err
	}
	defer release()

	cred, ok := c.u.st.credentials[username]
	if !ok {
		return nil, notFound("credential.FindByUsername", username)
	}
	return &cred, nil
}

func (c *CredentialRepository) FindByAccount(_ context.Context, accountNumber string) (*domain.Credential, error) {
	release, err := c.enter("credential.FindByAccount")
	if err != nil {
		return nil, err
	}
	defer release()

	for _, cred := range c.u.st.credentials {
		if cred.AccountNumber == accountNumber {
			return &cred, nil
		}
	}
	return nil, notFound("credential.FindByAccount", accountNumber)
}

func (c *CredentialRepository) UpdatePassword(_ context.Context, username, passwordHash string) error {
	return c.update("credential.UpdatePassword", username, func(cred *domain.Credential) {
		cred.PasswordHash = passwordHash
	})
}

func (c *CredentialRepository) RecordFailedAttempt(
	_ context.Context,
	username string,
	counter domain.AttemptCounter,
) (*domain.Credential, error) {
	var updated domain.Credential
	err := c.updateUnlocked("credential.RecordFailedAttempt", username, func(cred *domain.Credential) {
		attempts := &cred.FailedAttempts
		if counter == domain.ConfirmCounter {
			attempts = &cred.ConfirmFailedAttempts
		}
		*attempts++
		cred.Locked = *attempts >= domain.MaxFailedAttempts
		updated = *cred
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *CredentialRepository) ClearFailedAttempts(_ context.Context, username string) error {
	return c.updateUnlocked("credential.ClearFailedAttempts", username, func(cred *domain.Credential) {
		cred.FailedAttempts = 0
		cred.ConfirmFailedAttempts = 0
	})
}

func (c *CredentialRepository) Unlock(_ context.Context, username string) error {
	return c.update("credential.Unlock", username, func(cred *domain.Credential) {
		cred.FailedAttempts = 0
		cred.ConfirmFailedAttempts = 0
		cred.Locked = false
	})
}

func (c *CredentialRepository) DeleteByAccount(_ context.Context, accountNumber string) error {
	release, err := c.enter("credential.DeleteByAccount")
	if err != nil {
		return err
	}
	defer release()

	for username, cred := range c.u.st.credentials {
		if cred.AccountNumber == accountNumber {
			delete(c.u.st.credentials, username)
		}
	}
	return nil
}

func (c *CredentialRepository) update(op, username string, fn func(cred *domain.Credential)) error {
	return c.apply(op, username, false, fn)
}

// updateUnlocked как update, но заблокированные учетные данные не меняет и возвращает domain.ErrAccountLocked.
func (c *CredentialRepository) updateUnlocked(op, username string, fn func(cred *domain.Credential)) error {
	return c.apply(op, username, true, fn)
}

func (c *CredentialRepository) apply(op, username string, onlyUnlocked bool, fn func(cred *domain.Credential)) error {
	release, err := c.enter(op)
	if err != nil {
		return err
	}
	defer release()

	cred, ok := c.u.st.credentials[username]
	if !ok {
		return notFound(op, username)
	}
	if onlyUnlocked && cred.Locked {
		return fmt.Errorf("[memrepo/%s `%s`] %w", op, username, domain.ErrAccountLocked)
	}
	fn(&cred)
	cred.UpdatedAt = c.u.now()
	c.u.st.credentials[username] = cred
	return nil
}
