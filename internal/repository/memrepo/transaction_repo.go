package memrepo

import (
	"context"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
)

type TransactionRepository struct {
	repo
}

func (t *TransactionRepository) Append(_ context.Context, args repoargs.AppendTransaction) (*domain.Transaction, error) {
	release, err := t.enter("transaction.Append")
	if err != nil {
		return nil, err
	}
	defer release()

	if _, ok := t.u.st.accounts[args.AccountNumber]; !ok {
		return nil, notFound("transaction.Append", args.AccountNumber)
	}
	t.u.st.lastTxID++
	tr := domain.Transaction{
		ID:            t.u.st.lastTxID,
		CreatedAt:     t.u.now(),
		AccountNumber: args.AccountNumber,
		Type:          args.Type,
		Amount:        domain.RoundMoney(args.Amount),
	}
	if args.TargetAccount != nil {
		target := *args.TargetAccount
		tr.TargetAccount = &target
	}
	t.u.st.transactions = append(t.u.st.transactions, tr)
	return &tr, nil
}

// ListByAccount новые записи первыми. limit == 0 возвращает пустой список.
func (t *TransactionRepository) ListByAccount(
	_ context.Context,
	accountNumber string,
	limit uint,
) ([]domain.Transaction, error) {
	release, err := t.enter("transaction.ListByAccount")
	if err != nil {
		return nil, err
	}
	defer release()

	var res []domain.Transaction
	for i := len(t.u.st.transactions) - 1; i >= 0 && uint(len(res)) < limit; i-- {
		if tr := t.u.st.transactions[i]; tr.AccountNumber == accountNumber {
			res = append(res, tr)
		}
	}
	return res, nil
}
