package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
	"github.com/fsdevblog/groph-bank/pkg/uow"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHistoryLimit uint = 50
	phoneLength              = 10
	openAccountAttempts      = 5
)

var validate = validator.New()

type LedgerService struct {
	uow         uow.UOW
	accountRepo AccountRepository
	trRepo      TransactionRepository
	alert       *AlertPolicy
	notifier    Notifier
	statements  StatementWriter
	log         *logrus.Entry
}

type LedgerServiceArgs struct {
	Notifier   Notifier
	Statements StatementWriter
	Logger     *logrus.Logger
}

func NewLedgerService(u uow.UOW, args LedgerServiceArgs) (*LedgerService, error) {
	accountRepo, accountRepoErr := uow.GetRepositoryAs[AccountRepository](
		u, uow.RepositoryName(repoargs.AccountRepoName),
	)
	if accountRepoErr != nil {
		return nil, accountRepoErr
	}
	trRepo, trRepoErr := uow.GetRepositoryAs[TransactionRepository](
		u, uow.RepositoryName(repoargs.TransactionRepoName),
	)
	if trRepoErr != nil {
		return nil, trRepoErr
	}
	return &LedgerService{
		uow:         u,
		accountRepo: accountRepo,
		trRepo:      trRepo,
		alert:       NewAlertPolicy(args.Notifier, args.Logger),
		notifier:    args.Notifier,
		statements:  args.Statements,
		log:         args.Logger.WithFields(logrus.Fields{"component": "service", "module": "ledger"}),
	}, nil
}

// Deposit зачисляет amount на счет и возвращает новый баланс. Зачисление разрешено и на заблокированный счет.
func (l *LedgerService) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (decimal.Decimal, error) {
	amount, amountErr := domain.NormalizeAmount(amount)
	if amountErr != nil {
		return decimal.Zero, fmt.Errorf("deposit: %w", amountErr)
	}

	var balance decimal.Decimal
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		accountRepo, trRepo, repoErr := ledgerRepos(tx)
		if repoErr != nil {
			return repoErr
		}
		var adjustErr error
		balance, adjustErr = accountRepo.AdjustBalance(c, accountNumber, amount)
		if adjustErr != nil {
			return notFoundAs(adjustErr, domain.ErrAccountNotFound)
		}
		_, appendErr := trRepo.Append(c, repoargs.AppendTransaction{
			AccountNumber: accountNumber,
			Type:          domain.TransactionDeposit,
			Amount:        amount,
		})
		return appendErr //nolint:wrapcheck
	})
	if txErr != nil {
		return decimal.Zero, fmt.Errorf("deposit: %w", domain.AsStoreFailure(txErr))
	}
	return balance, nil
}

// Withdraw списывает amount со счета и возвращает новый баланс. После фиксации проверяет порог уведомления.
func (l *LedgerService) Withdraw(
	ctx context.Context,
	accountNumber string,
	amount decimal.Decimal,
) (decimal.Decimal, error) {
	amount, amountErr := domain.NormalizeAmount(amount)
	if amountErr != nil {
		return decimal.Zero, fmt.Errorf("withdraw: %w", amountErr)
	}

	var snapshot domain.BalanceSnapshot
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		accountRepo, trRepo, repoErr := ledgerRepos(tx)
		if repoErr != nil {
			return repoErr
		}
		acc, lockErr := accountRepo.LockForUpdate(c, accountNumber)
		if lockErr != nil {
			return notFoundAs(lockErr, domain.ErrAccountNotFound)
		}
		if acc.Locked {
			return domain.ErrAccountLocked
		}
		balance, adjustErr := accountRepo.AdjustBalance(c, accountNumber, amount.Neg())
		if adjustErr != nil {
			return notFoundAs(adjustErr, domain.ErrAccountNotFound)
		}
		if _, appendErr := trRepo.Append(c, repoargs.AppendTransaction{
			AccountNumber: accountNumber,
			Type:          domain.TransactionWithdraw,
			Amount:        amount,
		}); appendErr != nil {
			return appendErr //nolint:wrapcheck
		}
		snapshot = acc.Snapshot()
		snapshot.Balance = balance
		return nil
	})
	if txErr != nil {
		return decimal.Zero, fmt.Errorf("withdraw: %w", domain.AsStoreFailure(txErr))
	}

	l.alert.Evaluate(snapshot)
	return snapshot.Balance, nil
}

type TransferResult struct {
	SourceBalance decimal.Decimal
	TargetBalance decimal.Decimal
}

// Transfer переводит amount между счетами одной транзакцией: списание, зачисление и две записи истории.
// Строки счетов блокируются в порядке возрастания номера, чтобы встречные переводы не взаимоблокировались.
func (l *LedgerService) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (*TransferResult, error) {
	amount, amountErr := domain.NormalizeAmount(amount)
	if amountErr != nil {
		return nil, fmt.Errorf("transfer: %w", amountErr)
	}
	if from == to {
		return nil, fmt.Errorf("transfer: %w", domain.ErrSameAccount)
	}

	var result TransferResult
	var source domain.BalanceSnapshot
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		accountRepo, trRepo, repoErr := ledgerRepos(tx)
		if repoErr != nil {
			return repoErr
		}

		locked, lockErr := lockInOrder(c, accountRepo, from, to)
		if lockErr != nil {
			return lockErr
		}
		if locked[to] == nil {
			return domain.ErrTargetNotFound
		}
		src := locked[from]
		if src == nil {
			return domain.ErrSourceNotFound
		}
		if src.Locked {
			return domain.ErrAccountLocked
		}

		var debitErr, creditErr error
		result.SourceBalance, debitErr = accountRepo.AdjustBalance(c, from, amount.Neg())
		if debitErr != nil {
			return notFoundAs(debitErr, domain.ErrSourceNotFound)
		}
		result.TargetBalance, creditErr = accountRepo.AdjustBalance(c, to, amount)
		if creditErr != nil {
			return notFoundAs(creditErr, domain.ErrTargetNotFound)
		}

		records := []repoargs.AppendTransaction{
			{AccountNumber: from, Type: domain.TransactionTransferDebit, Amount: amount, TargetAccount: &to},
			{AccountNumber: to, Type: domain.TransactionTransferCredit, Amount: amount, TargetAccount: &from},
		}
		for _, record := range records {
			if _, appendErr := trRepo.Append(c, record); appendErr != nil {
				return appendErr //nolint:wrapcheck
			}
		}

		source = src.Snapshot()
		source.Balance = result.SourceBalance
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("transfer: %w", domain.AsStoreFailure(txErr))
	}

	l.alert.Evaluate(source)
	return &result, nil
}

// CheckBalance точечное чтение баланса без блокировок. Проверяет порог уведомления.
func (l *LedgerService) CheckBalance(ctx context.Context, accountNumber string) (*domain.BalanceSnapshot, error) {
	snapshot, err := l.accountRepo.GetBalance(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("check balance: %w", domain.AsStoreFailure(notFoundAs(err, domain.ErrAccountNotFound)))
	}
	l.alert.Evaluate(*snapshot)
	return snapshot, nil
}

type OpenAccountArgs struct {
	HolderName     string
	Phone          string
	Email          string
	InitialDeposit decimal.Decimal
	AlertThreshold decimal.Decimal
}

// OpenAccount создает счет с начальным балансом. Положительный начальный баланс фиксируется записью deposit.
func (l *LedgerService) OpenAccount(ctx context.Context, args OpenAccountArgs) (*domain.Account, error) {
	args.HolderName = strings.TrimSpace(args.HolderName)
	args.Email = strings.TrimSpace(args.Email)
	if err := validateOpenAccount(&args); err != nil {
		return nil, fmt.Errorf("open account: %w", err)
	}

	var acc *domain.Account
	for attempt := 1; ; attempt++ {
		number := newAccountNumber(time.Now())
		txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
			accountRepo, trRepo, repoErr := ledgerRepos(tx)
			if repoErr != nil {
				return repoErr
			}
			var createErr error
			acc, createErr = accountRepo.Create(c, repoargs.CreateAccount{
				AccountNumber:  number,
				HolderName:     args.HolderName,
				Phone:          args.Phone,
				Email:          args.Email,
				Balance:        args.InitialDeposit,
				AlertThreshold: args.AlertThreshold,
			})
			if createErr != nil {
				return createErr //nolint:wrapcheck
			}
			if !args.InitialDeposit.IsPositive() {
				return nil
			}
			_, appendErr := trRepo.Append(c, repoargs.AppendTransaction{
				AccountNumber: number,
				Type:          domain.TransactionDeposit,
				Amount:        args.InitialDeposit,
			})
			return appendErr //nolint:wrapcheck
		})
		if txErr == nil {
			break
		}
		if errors.Is(txErr, domain.ErrDuplicateKey) && attempt < openAccountAttempts {
			continue
		}
		return nil, fmt.Errorf("open account: %w", domain.AsStoreFailure(txErr))
	}

	if acc.HasContactChannel() {
		body := fmt.Sprintf("Dear %s,\n\nYour account %s has been opened. Current balance: %s.\n",
			acc.HolderName, acc.AccountNumber, acc.Balance.StringFixed(domain.MoneyPlaces))
		if err := l.notifier.Notify(acc.Email, "Welcome to groph bank", body); err != nil {
			l.log.WithError(err).WithField("account", acc.AccountNumber).Warn("welcome notification was not delivered")
		}
	}
	l.log.WithField("account", acc.AccountNumber).Info("account opened")
	return acc, nil
}

// History возвращает последние limit операций по счету, новые первыми. limit == 0 означает DefaultHistoryLimit.
func (l *LedgerService) History(ctx context.Context, accountNumber string, limit uint) ([]domain.Transaction, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	exists, existsErr := l.accountRepo.Exists(ctx, accountNumber)
	if existsErr != nil {
		return nil, fmt.Errorf("history: %w", domain.AsStoreFailure(existsErr))
	}
	if !exists {
		return nil, fmt.Errorf("history: %w", domain.ErrAccountNotFound)
	}
	transactions, err := l.trRepo.ListByAccount(ctx, accountNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", domain.AsStoreFailure(err))
	}
	return transactions, nil
}

// CloseAccount удаляет счет вместе с историей и привязанными учетными данными. Заблокированный счет закрыть нельзя.
func (l *LedgerService) CloseAccount(ctx context.Context, accountNumber string) error {
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		accountRepo, repoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		credRepo, credRepoErr := uow.GetAs[CredentialRepository](tx, uow.RepositoryName(repoargs.CredentialRepoName))
		if credRepoErr != nil {
			return credRepoErr //nolint:wrapcheck
		}
		acc, lockErr := accountRepo.LockForUpdate(c, accountNumber)
		if lockErr != nil {
			return notFoundAs(lockErr, domain.ErrAccountNotFound)
		}
		if acc.Locked {
			return domain.ErrAccountLocked
		}
		if delErr := credRepo.DeleteByAccount(c, accountNumber); delErr != nil {
			return delErr //nolint:wrapcheck
		}
		return accountRepo.DeleteAccountAndHistory(c, accountNumber) //nolint:wrapcheck
	})
	if txErr != nil {
		return fmt.Errorf("close account: %w", domain.AsStoreFailure(txErr))
	}
	l.log.WithField("account", accountNumber).Info("account closed")
	return nil
}

type UpdateProfileArgs struct {
	Phone          *string
	Email          *string
	AlertThreshold *decimal.Decimal
}

// UpdateProfile частично обновляет контакты и порог уведомления.
func (l *LedgerService) UpdateProfile(
	ctx context.Context,
	accountNumber string,
	args UpdateProfileArgs,
) (*domain.Account, error) {
	update, validateErr := validateProfile(args)
	if validateErr != nil {
		return nil, fmt.Errorf("update profile: %w", validateErr)
	}

	var acc *domain.Account
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		accountRepo, repoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		current, lockErr := accountRepo.LockForUpdate(c, accountNumber)
		if lockErr != nil {
			return notFoundAs(lockErr, domain.ErrAccountNotFound)
		}
		if current.Locked {
			return domain.ErrAccountLocked
		}
		var updateErr error
		acc, updateErr = accountRepo.UpdateProfile(c, accountNumber, update)
		return updateErr //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("update profile: %w", domain.AsStoreFailure(txErr))
	}
	return acc, nil
}

// SendStatement формирует выписку из последних limit операций и отправляет ее на адрес держателя счета.
func (l *LedgerService) SendStatement(ctx context.Context, accountNumber string, limit uint) error {
	acc, findErr := l.accountRepo.FindByNumber(ctx, accountNumber)
	if findErr != nil {
		return fmt.Errorf("send statement: %w", domain.AsStoreFailure(notFoundAs(findErr, domain.ErrAccountNotFound)))
	}
	if !acc.HasContactChannel() {
		return fmt.Errorf("send statement: %w", domain.ErrNoContactChannel)
	}
	transactions, historyErr := l.History(ctx, accountNumber, limit)
	if historyErr != nil {
		return fmt.Errorf("send statement: %w", historyErr)
	}
	path, writeErr := l.statements.WriteStatement(*acc, transactions)
	if writeErr != nil {
		return fmt.Errorf("send statement: %w", domain.AsStoreFailure(writeErr))
	}

	body := fmt.Sprintf("Dear %s,\n\nPlease find attached the statement of your account %s.\n",
		acc.HolderName, acc.AccountNumber)
	if err := l.notifier.NotifyWithAttachment(acc.Email, "Account statement", body, path); err != nil {
		l.log.WithError(err).WithField("account", accountNumber).Warn("statement was not delivered")
	}
	return nil
}

func ledgerRepos(tx uow.TX) (AccountRepository, TransactionRepository, error) {
	accountRepo, accountRepoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
	if accountRepoErr != nil {
		return nil, nil, accountRepoErr //nolint:wrapcheck
	}
	trRepo, trRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if trRepoErr != nil {
		return nil, nil, trRepoErr //nolint:wrapcheck
	}
	return accountRepo, trRepo, nil
}

// lockInOrder блокирует оба счета по возрастанию номера. Отсутствующий счет остается nil в результате.
func lockInOrder(
	ctx context.Context,
	repo AccountRepository,
	a, b string,
) (map[string]*domain.Account, error) {
	order := []string{a, b}
	if b < a {
		order = []string{b, a}
	}
	locked := make(map[string]*domain.Account, len(order))
	for _, number := range order {
		acc, err := repo.LockForUpdate(ctx, number)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				locked[number] = nil
				continue
			}
			return nil, err //nolint:wrapcheck
		}
		locked[number] = acc
	}
	return locked, nil
}

// notFoundAs заменяет ErrRecordNotFound репозитория на ошибку домена target.
func notFoundAs(err error, target error) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", target, err)
	}
	return err
}

func newAccountNumber(now time.Time) string {
	return fmt.Sprintf("ACC%013d%03d", now.UnixMilli(), rand.IntN(1000)) //nolint:gosec,mnd
}

func validateOpenAccount(args *OpenAccountArgs) error {
	if err := validateHolderName(args.HolderName); err != nil {
		return err
	}
	if err := validatePhone(args.Phone); err != nil {
		return err
	}
	if err := validateEmail(args.Email); err != nil {
		return err
	}
	var err error
	if args.InitialDeposit, err = domain.NormalizeNonNegative(args.InitialDeposit); err != nil {
		return err
	}
	if args.AlertThreshold, err = domain.NormalizeNonNegative(args.AlertThreshold); err != nil {
		return err
	}
	return nil
}

func validateProfile(args UpdateProfileArgs) (repoargs.UpdateProfile, error) {
	update := repoargs.UpdateProfile{Phone: args.Phone}
	if args.Phone != nil {
		if err := validatePhone(*args.Phone); err != nil {
			return update, err
		}
	}
	if args.Email != nil {
		email := strings.TrimSpace(*args.Email)
		if err := validateEmail(email); err != nil {
			return update, err
		}
		update.Email = &email
	}
	if args.AlertThreshold != nil {
		threshold, err := domain.NormalizeNonNegative(*args.AlertThreshold)
		if err != nil {
			return update, err
		}
		update.AlertThreshold = &threshold
	}
	return update, nil
}

func validateHolderName(name string) error {
	if name == "" {
		return domain.ErrInvalidHolder
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' {
			return domain.ErrInvalidHolder
		}
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) != phoneLength {
		return domain.ErrInvalidPhone
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return domain.ErrInvalidPhone
		}
	}
	return nil
}

// validateEmail пустой адрес допустим: уведомления для такого счета просто не отправляются.
func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if err := validate.Var(email, "email"); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}
