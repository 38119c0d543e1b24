package memrepo

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
	"github.com/shopspring/decimal"
)

type AccountRepository struct {
	repo
}

func (a *AccountRepository) Create(_ context.Context, args repoargs.CreateAccount) (*domain.Account, error) {
	release, err := a.enter("account.Create")
	if err != nil {
		return nil, err
	}
	defer release()

	if _, ok := a.u.st.accounts[args.AccountNumber]; ok {
		return nil, fmt.Errorf("[memrepo/account.Create] %w", domain.NewDuplicateKeyError("accounts_pkey"))
	}
	now := a.u.now()
	acc := domain.Account{
		AccountNumber:  args.AccountNumber,
		CreatedAt:      now,
		UpdatedAt:      now,
		HolderName:     args.HolderName,
		Phone:          args.Phone,
		Email:          args.Email,
		Balance:        domain.RoundMoney(args.Balance),
		AlertThreshold: domain.RoundMoney(args.AlertThreshold),
	}
	a.u.st.accounts[acc.AccountNumber] = acc
	return &acc, nil
}

func (a *AccountRepository) FindByNumber(_ context.Context, accountNumber string) (*domain.Account, error) {
	release, err := a.enter("account.FindByNumber")
	if err != nil {
		return nil, err
	}
	defer release()

	acc, ok := a.u.st.accounts[accountNumber]
	if !ok {
		return nil, notFound("account.FindByNumber", accountNumber)
	}
	return &acc, nil
}

// LockForUpdate транзакция уже держит блокировку всего хранилища, поэтому это обычное чтение.
func (a *AccountRepository) LockForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return a.FindByNumber(ctx, accountNumber)
}

func (a *AccountRepository) GetBalance(ctx context.Context, accountNumber string) (*domain.BalanceSnapshot, error) {
	acc, err := a.FindByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	snapshot := acc.Snapshot()
	return &snapshot, nil
}

func (a *AccountRepository) AdjustBalance(
	_ context.Context,
	accountNumber string,
	delta decimal.Decimal,
) (decimal.Decimal, error) {
	release, err := a.enter("account.AdjustBalance")
	if err != nil {
		return decimal.Zero, err
	}
	defer release()

	acc, ok := a.u.st.accounts[accountNumber]
	if !ok {
		return decimal.Zero, notFound("account.AdjustBalance", accountNumber)
	}
	balance := domain.RoundMoney(acc.Balance.Add(delta))
	if balance.IsNegative() {
		return decimal.Zero, fmt.Errorf("[memrepo/account.AdjustBalance `%s`] %w",
			accountNumber, domain.ErrInsufficientFunds)
	}
	if balance.GreaterThan(domain.MaxAmount) {
		return decimal.Zero, fmt.Errorf("[memrepo/account.AdjustBalance `%s`] %w", accountNumber, domain.ErrInvalidAmount)
	}
	acc.Balance = balance
	acc.UpdatedAt = a.u.now()
	a.u.st.accounts[accountNumber] = acc
	return balance, nil
}

func (a *AccountRepository) Exists(_ context.Context, accountNumber string) (bool, error) {
	release, err := a.enter("account.Exists")
	if err != nil {
		return false, err
	}
	defer release()

	_, ok := a.u.st.accounts[accountNumber]
	return ok, nil
}

func (a *AccountRepository) SetLocked(_ context.Context, accountNumber string, locked bool) error {
	release, err := a.enter("account.SetLocked")
	if err != nil {
		return err
	}
	defer release()

	acc, ok := a.u.st.accounts[accountNumber]
	if !ok {
		return notFound("account.SetLocked", accountNumber)
	}
	acc.Locked = locked
	acc.UpdatedAt = a.u.now()
	a.u.st.accounts[accountNumber] = acc
	return nil
}

func (a *AccountRepository) UpdateProfile(
	_ context.Context,
	accountNumber string,
	args repoargs.UpdateProfile,
) (*domain.Account, error) {
	release, err := a.enter("account.UpdateProfile")
	if err != nil {
		return nil, err
	}
	defer release()

	acc, ok := a.u.st.accounts[accountNumber]
	if !ok {
		return nil, notFound("account.UpdateProfile", accountNumber)
	}
	if args.Phone != nil {
		acc.Phone = *args.Phone
	}
	if args.Email != nil {
		acc.Email = *args.Email
	}
	if args.AlertThreshold != nil {
		acc.AlertThreshold = domain.RoundMoney(*args.AlertThreshold)
	}
	if !args.IsEmpty() {
		acc.UpdatedAt = a.u.now()
	}
	a.u.st.accounts[accountNumber] = acc
	return &acc, nil
}

func (a *AccountRepository) DeleteAccountAndHistory(_ context.Context, accountNumber string) error {
	release, err := a.enter("account.DeleteAccountAndHistory")
	if err != nil {
		return err
	}
	defer release()

	if _, ok := a.u.st.accounts[accountNumber]; !ok {
		return notFound("account.DeleteAccountAndHistory", accountNumber)
	}
	kept := a.u.st.transactions[:0]
	for _, tr := range a.u.st.transactions {
		if tr.AccountNumber != accountNumber {
			kept = append(kept, tr)
		}
	}
	a.u.st.transactions = kept
	for username, cred := range a.u.st.credentials {
		if cred.AccountNumber == accountNumber {
			delete(a.u.st.credentials, username)
		}
	}
	delete(a.u.st.accounts, accountNumber)
	return nil
}
