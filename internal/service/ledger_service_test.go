package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/repository/memrepo"
	"github.com/fsdevblog/groph-bank/internal/repository/repoargs"
	"github.com/fsdevblog/groph-bank/internal/service/mocks"
	"github.com/fsdevblog/groph-bank/pkg/uow"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	mockCtrl       *gomock.Controller
	mockNotifier   *mocks.MockNotifier
	mockStatements *mocks.MockStatementWriter
	store          *memrepo.UnitOfWork
	accounts       AccountRepository
	transactions   TransactionRepository
	service        *LedgerService
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func (s *LedgerServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockNotifier = mocks.NewMockNotifier(s.mockCtrl)
	s.mockStatements = mocks.NewMockStatementWriter(s.mockCtrl)
	s.store = memrepo.NewUnitOfWork()

	var err error
	s.accounts, err = uow.GetRepositoryAs[AccountRepository](s.store, uow.RepositoryName(repoargs.AccountRepoName))
	s.Require().NoError(err)
	s.transactions, err = uow.GetRepositoryAs[TransactionRepository](
		s.store, uow.RepositoryName(repoargs.TransactionRepoName),
	)
	s.Require().NoError(err)

	s.service, err = NewLedgerService(s.store, LedgerServiceArgs{
		Notifier:   s.mockNotifier,
		Statements: s.mockStatements,
		Logger:     testLogger(),
	})
	s.Require().NoError(err)
}

func (s *LedgerServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func testLogger() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}

func (s *LedgerServiceTestSuite) createAccount(number string, balance, threshold int64, email string) {
	_, err := s.accounts.Create(s.T().Context(), repoargs.CreateAccount{
		AccountNumber:  number,
		HolderName:     "Anna Smirnova",
		Phone:          "9001234567",
		Email:          email,
		Balance:        decimal.NewFromInt(balance),
		AlertThreshold: decimal.NewFromInt(threshold),
	})
	s.Require().NoError(err)
}

func (s *LedgerServiceTestSuite) balanceOf(number string) decimal.Decimal {
	acc, err := s.accounts.FindByNumber(s.T().Context(), number)
	s.Require().NoError(err)
	return acc.Balance
}

func (s *LedgerServiceTestSuite) historyOf(number string) []domain.Transaction {
	list, err := s.transactions.ListByAccount(s.T().Context(), number, 100)
	s.Require().NoError(err)
	return list
}

func (s *LedgerServiceTestSuite) TestTransfer_Simple() {
	s.createAccount("ACC-A", 1000, 0, "")
	s.createAccount("ACC-B", 200, 0, "")

	result, err := s.service.Transfer(s.T().Context(), "ACC-A", "ACC-B", decimal.NewFromInt(300))
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(700).Equal(result.SourceBalance))
	s.True(decimal.NewFromInt(500).Equal(result.TargetBalance))

	s.True(decimal.NewFromInt(700).Equal(s.balanceOf("ACC-A")))
	s.True(decimal.NewFromInt(500).Equal(s.balanceOf("ACC-B")))

	debit := s.historyOf("ACC-A")
	s.Require().Len(debit, 1)
	s.Equal(domain.TransactionTransferDebit, debit[0].Type)
	s.Require().NotNil(debit[0].TargetAccount)
	s.Equal("ACC-B", *debit[0].TargetAccount)
	s.True(decimal.NewFromInt(300).Equal(debit[0].Amount))

	credit := s.historyOf("ACC-B")
	s.Require().Len(credit, 1)
	s.Equal(domain.TransactionTransferCredit, credit[0].Type)
	s.Require().NotNil(credit[0].TargetAccount)
	s.Equal("ACC-A", *credit[0].TargetAccount)
}

func (s *LedgerServiceTestSuite) TestTransfer_Errors() {
	s.createAccount("ACC-A", 100, 0, "")
	s.createAccount("ACC-B", 100, 0, "")
	s.createAccount("ACC-L", 100, 0, "")
	s.Require().NoError(s.accounts.SetLocked(s.T().Context(), "ACC-L", true))

	cases := []struct {
		name    string
		from    string
		to      string
		amount  decimal.Decimal
		wantErr error
	}{
		{name: "zero amount", from: "ACC-A", to: "ACC-B", amount: decimal.Zero, wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", from: "ACC-A", to: "ACC-B", amount: decimal.NewFromInt(-1), wantErr: domain.ErrInvalidAmount},
		{name: "same account", from: "ACC-A", to: "ACC-A", amount: decimal.NewFromInt(1), wantErr: domain.ErrSameAccount},
		{name: "missing target", from: "ACC-A", to: "ACC-X", amount: decimal.NewFromInt(1), wantErr: domain.ErrTargetNotFound},
		{name: "missing source", from: "ACC-X", to: "ACC-A", amount: decimal.NewFromInt(1), wantErr: domain.ErrSourceNotFound},
		{
			name:    "insufficient funds",
			from:    "ACC-A",
			to:      "ACC-B",
			amount:  decimal.NewFromFloat(100.01),
			wantErr: domain.ErrInsufficientFunds,
		},
		{name: "locked source", from: "ACC-L", to: "ACC-A", amount: decimal.NewFromInt(1), wantErr: domain.ErrAccountLocked},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			_, err := s.service.Transfer(s.T().Context(), t.from, t.to, t.amount)
			s.Require().ErrorIs(err, t.wantErr)
		})
	}

	for _, number := range []string{"ACC-A", "ACC-B", "ACC-L"} {
		s.True(decimal.NewFromInt(100).Equal(s.balanceOf(number)))
		s.Empty(s.historyOf(number))
	}
}

func (s *LedgerServiceTestSuite) TestTransfer_RollbackOnStoreFailure() {
	s.createAccount("ACC-A", 1000, 0, "")
	s.createAccount("ACC-B", 200, 0, "")
	s.store.InjectFault("transaction.Append", errors.New("connection reset"))

	_, err := s.service.Transfer(s.T().Context(), "ACC-A", "ACC-B", decimal.NewFromInt(300))
	s.Require().ErrorIs(err, domain.ErrStoreFailure)
	s.Equal("internal error", domain.PublicMessage(err))

	s.True(decimal.NewFromInt(1000).Equal(s.balanceOf("ACC-A")))
	s.True(decimal.NewFromInt(200).Equal(s.balanceOf("ACC-B")))
	s.Empty(s.historyOf("ACC-A"))
	s.Empty(s.historyOf("ACC-B"))
}

func (s *LedgerServiceTestSuite) TestTransfer_AlertOnSource() {
	email := gofakeit.Email()
	s.createAccount("ACC-A", 1200, 1000, email)
	s.createAccount("ACC-B", 0, 1000, gofakeit.Email())

	s.mockNotifier.EXPECT().Notify(email, lowBalanceSubject, gomock.Any()).Return(nil).Times(1)

	_, err := s.service.Transfer(s.T().Context(), "ACC-A", "ACC-B", decimal.NewFromInt(300))
	s.Require().NoError(err)
}

func (s *LedgerServiceTestSuite) TestConcurrentTransfers_Conservation() {
	numbers := []string{"ACC-1", "ACC-2", "ACC-3", "ACC-4"}
	for _, n := range numbers {
		s.createAccount(n, 500, 0, "")
	}
	total := decimal.NewFromInt(500 * int64(len(numbers)))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				from := numbers[rand.IntN(len(numbers))] //nolint:gosec
				to := numbers[rand.IntN(len(numbers))]   //nolint:gosec
				amount := decimal.NewFromInt(int64(rand.IntN(200) + 1)) //nolint:gosec
				_, err := s.service.Transfer(context.Background(), from, to, amount)
				if err != nil && !errors.Is(err, domain.ErrSameAccount) && !errors.Is(err, domain.ErrInsufficientFunds) {
					s.Failf("unexpected transfer error", "%v", err)
				}
			}
		}()
	}
	wg.Wait()

	sum := decimal.Zero
	for _, n := range numbers {
		balance := s.balanceOf(n)
		s.False(balance.IsNegative(), "account %s went negative", n)
		sum = sum.Add(balance)
	}
	s.True(total.Equal(sum), "total %s, got %s", total, sum)
}

func (s *LedgerServiceTestSuite) TestDeposit() {
	s.createAccount("ACC-A", 10, 0, "")
	s.createAccount("ACC-L", 10, 0, "")
	s.Require().NoError(s.accounts.SetLocked(s.T().Context(), "ACC-L", true))

	cases := []struct {
		name    string
		number  string
		amount  decimal.Decimal
		want    decimal.Decimal
		wantErr error
	}{
		{name: "ok", number: "ACC-A", amount: decimal.NewFromFloat(5.255), want: decimal.NewFromFloat(15.26)},
		{name: "locked account accepts deposits", number: "ACC-L", amount: decimal.NewFromInt(1), want: decimal.NewFromInt(11)},
		{name: "zero", number: "ACC-A", amount: decimal.Zero, wantErr: domain.ErrInvalidAmount},
		{name: "above max", number: "ACC-A", amount: domain.MaxAmount.Add(decimal.NewFromInt(1)), wantErr: domain.ErrInvalidAmount},
		{name: "balance overflow", number: "ACC-A", amount: domain.MaxAmount, wantErr: domain.ErrInvalidAmount},
		{name: "missing account", number: "ACC-X", amount: decimal.NewFromInt(1), wantErr: domain.ErrAccountNotFound},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			balance, err := s.service.Deposit(s.T().Context(), t.number, t.amount)
			if t.wantErr != nil {
				s.Require().ErrorIs(err, t.wantErr)
				return
			}
			s.Require().NoError(err)
			s.True(t.want.Equal(balance), "got %s", balance)
		})
	}

	history := s.historyOf("ACC-A")
	s.Require().Len(history, 1)
	s.Equal(domain.TransactionDeposit, history[0].Type)
	s.True(decimal.NewFromFloat(5.26).Equal(history[0].Amount))
}

func (s *LedgerServiceTestSuite) TestWithdraw_InsufficientFunds() {
	s.createAccount("ACC-A", 50, 0, gofakeit.Email())

	_, err := s.service.Withdraw(s.T().Context(), "ACC-A", decimal.NewFromInt(100))
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)

	s.True(decimal.NewFromInt(50).Equal(s.balanceOf("ACC-A")))
	s.Empty(s.historyOf("ACC-A"))
}

func (s *LedgerServiceTestSuite) TestWithdraw_LowBalanceAlert() {
	email := gofakeit.Email()
	s.createAccount("ACC-A", 1200, 1000, email)

	s.mockNotifier.EXPECT().
		Notify(email, lowBalanceSubject, gomock.Any()).
		DoAndReturn(func(_, _, body string) error {
			s.Contains(body, "ACC-A")
			s.Contains(body, "900.00")
			return nil
		}).Times(1)

	balance, err := s.service.Withdraw(s.T().Context(), "ACC-A", decimal.NewFromInt(300))
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(900).Equal(balance))

	history := s.historyOf("ACC-A")
	s.Require().Len(history, 1)
	s.Equal(domain.TransactionWithdraw, history[0].Type)
	s.Nil(history[0].TargetAccount)
}

func (s *LedgerServiceTestSuite) TestWithdraw_NotifierFailureIsSwallowed() {
	email := gofakeit.Email()
	s.createAccount("ACC-A", 1200, 1000, email)

	s.mockNotifier.EXPECT().Notify(email, gomock.Any(), gomock.Any()).Return(errors.New("queue full")).Times(1)

	balance, err := s.service.Withdraw(s.T().Context(), "ACC-A", decimal.NewFromInt(300))
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(900).Equal(balance))
}

func (s *LedgerServiceTestSuite) TestWithdraw_Refused() {
	s.createAccount("ACC-L", 100, 0, "")
	s.Require().NoError(s.accounts.SetLocked(s.T().Context(), "ACC-L", true))

	_, err := s.service.Withdraw(s.T().Context(), "ACC-L", decimal.NewFromInt(1))
	s.Require().ErrorIs(err, domain.ErrAccountLocked)

	_, err = s.service.Withdraw(s.T().Context(), "ACC-X", decimal.NewFromInt(1))
	s.Require().ErrorIs(err, domain.ErrAccountNotFound)

	_, err = s.service.Withdraw(s.T().Context(), "ACC-L", decimal.NewFromFloat(0.001))
	s.Require().ErrorIs(err, domain.ErrInvalidAmount)
}

func (s *LedgerServiceTestSuite) TestCheckBalance_IdempotentRead() {
	s.createAccount("ACC-A", 300, 0, gofakeit.Email())

	first, err := s.service.CheckBalance(s.T().Context(), "ACC-A")
	s.Require().NoError(err)
	second, err := s.service.CheckBalance(s.T().Context(), "ACC-A")
	s.Require().NoError(err)

	s.Equal(*first, *second)
	s.Empty(s.historyOf("ACC-A"))

	_, err = s.service.CheckBalance(s.T().Context(), "ACC-X")
	s.Require().ErrorIs(err, domain.ErrAccountNotFound)
}

func (s *LedgerServiceTestSuite) TestCheckBalance_AlertWithoutChannel() {
	s.createAccount("ACC-A", 10, 1000, "")

	// адрес не известен - уведомление не отправляется, мок упадет на любой вызов.
	snapshot, err := s.service.CheckBalance(s.T().Context(), "ACC-A")
	s.Require().NoError(err)
	s.True(snapshot.BelowThreshold())
}

func (s *LedgerServiceTestSuite) TestOpenAccount() {
	email := gofakeit.Email()
	s.mockNotifier.EXPECT().Notify(email, gomock.Any(), gomock.Any()).Return(nil).Times(1)

	acc, err := s.service.OpenAccount(s.T().Context(), OpenAccountArgs{
		HolderName:     "  Olga Ivanova ",
		Phone:          "9161234567",
		Email:          email,
		InitialDeposit: decimal.NewFromFloat(250.505),
		AlertThreshold: decimal.NewFromInt(100),
	})
	s.Require().NoError(err)
	s.Regexp(`^ACC\d{16}$`, acc.AccountNumber)
	s.Equal("Olga Ivanova", acc.HolderName)
	s.True(decimal.NewFromFloat(250.51).Equal(acc.Balance))

	history := s.historyOf(acc.AccountNumber)
	s.Require().Len(history, 1)
	s.Equal(domain.TransactionDeposit, history[0].Type)
}

func (s *LedgerServiceTestSuite) TestOpenAccount_ZeroDepositNoRecord() {
	acc, err := s.service.OpenAccount(s.T().Context(), OpenAccountArgs{
		HolderName: "Olga Ivanova",
		Phone:      "9161234567",
	})
	s.Require().NoError(err)
	s.True(acc.Balance.IsZero())
	s.Empty(s.historyOf(acc.AccountNumber))
}

func (s *LedgerServiceTestSuite) TestOpenAccount_Validation() {
	valid := OpenAccountArgs{HolderName: "Olga Ivanova", Phone: "9161234567"}

	cases := []struct {
		name    string
		modify  func(args *OpenAccountArgs)
		wantErr error
	}{
		{name: "digits in name", modify: func(a *OpenAccountArgs) { a.HolderName = "Olga 2" }, wantErr: domain.ErrInvalidHolder},
		{name: "empty name", modify: func(a *OpenAccountArgs) { a.HolderName = "   " }, wantErr: domain.ErrInvalidHolder},
		{name: "short phone", modify: func(a *OpenAccountArgs) { a.Phone = "916123" }, wantErr: domain.ErrInvalidPhone},
		{name: "letters in phone", modify: func(a *OpenAccountArgs) { a.Phone = "91612345ab" }, wantErr: domain.ErrInvalidPhone},
		{name: "bad email", modify: func(a *OpenAccountArgs) { a.Email = "not-an-email" }, wantErr: domain.ErrInvalidEmail},
		{
			name:    "negative deposit",
			modify:  func(a *OpenAccountArgs) { a.InitialDeposit = decimal.NewFromInt(-1) },
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "negative threshold",
			modify:  func(a *OpenAccountArgs) { a.AlertThreshold = decimal.NewFromInt(-1) },
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			args := valid
			t.modify(&args)
			_, err := s.service.OpenAccount(s.T().Context(), args)
			s.Require().ErrorIs(err, t.wantErr)
		})
	}
}

func (s *LedgerServiceTestSuite) TestHistory() {
	s.createAccount("ACC-A", 0, 0, "")
	for i := 1; i <= 3; i++ {
		_, err := s.service.Deposit(s.T().Context(), "ACC-A", decimal.NewFromInt(int64(i)))
		s.Require().NoError(err)
	}

	list, err := s.service.History(s.T().Context(), "ACC-A", 2)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.True(decimal.NewFromInt(3).Equal(list[0].Amount))
	s.True(decimal.NewFromInt(2).Equal(list[1].Amount))

	_, err = s.service.History(s.T().Context(), "ACC-X", 0)
	s.Require().ErrorIs(err, domain.ErrAccountNotFound)
}

func (s *LedgerServiceTestSuite) TestCloseAccount() {
	s.createAccount("ACC-A", 100, 0, "")
	s.createAccount("ACC-L", 100, 0, "")
	s.Require().NoError(s.accounts.SetLocked(s.T().Context(), "ACC-L", true))
	_, err := s.service.Deposit(s.T().Context(), "ACC-A", decimal.NewFromInt(1))
	s.Require().NoError(err)

	s.Require().ErrorIs(s.service.CloseAccount(s.T().Context(), "ACC-L"), domain.ErrAccountLocked)
	s.Require().ErrorIs(s.service.CloseAccount(s.T().Context(), "ACC-X"), domain.ErrAccountNotFound)

	s.Require().NoError(s.service.CloseAccount(s.T().Context(), "ACC-A"))
	_, err = s.service.CheckBalance(s.T().Context(), "ACC-A")
	s.Require().ErrorIs(err, domain.ErrAccountNotFound)
	s.Empty(s.historyOf("ACC-A"))
}

func (s *LedgerServiceTestSuite) TestUpdateProfile() {
	s.createAccount("ACC-A", 100, 0, "")
	email := gofakeit.Email()
	threshold := decimal.NewFromFloat(50.129)

	acc, err := s.service.UpdateProfile(s.T().Context(), "ACC-A", UpdateProfileArgs{
		Email:          &email,
		AlertThreshold: &threshold,
	})
	s.Require().NoError(err)
	s.Equal(email, acc.Email)
	s.Equal("9001234567", acc.Phone)
	s.True(decimal.NewFromFloat(50.13).Equal(acc.AlertThreshold))

	badPhone := "123"
	_, err = s.service.UpdateProfile(s.T().Context(), "ACC-A", UpdateProfileArgs{Phone: &badPhone})
	s.Require().ErrorIs(err, domain.ErrInvalidPhone)

	s.Require().NoError(s.accounts.SetLocked(s.T().Context(), "ACC-A", true))
	_, err = s.service.UpdateProfile(s.T().Context(), "ACC-A", UpdateProfileArgs{Email: &email})
	s.Require().ErrorIs(err, domain.ErrAccountLocked)
}

func (s *LedgerServiceTestSuite) TestSendStatement() {
	email := gofakeit.Email()
	s.createAccount("ACC-A", 100, 0, email)
	s.createAccount("ACC-N", 100, 0, "")
	_, err := s.service.Deposit(s.T().Context(), "ACC-A", decimal.NewFromInt(5))
	s.Require().NoError(err)

	s.mockStatements.EXPECT().WriteStatement(gomock.Any(), gomock.Any()).
		DoAndReturn(func(acc domain.Account, list []domain.Transaction) (string, error) {
			s.Equal("ACC-A", acc.AccountNumber)
			s.Len(list, 1)
			return "/tmp/ACC-A.csv", nil
		}).Times(1)
	s.mockNotifier.EXPECT().
		NotifyWithAttachment(email, gomock.Any(), gomock.Any(), "/tmp/ACC-A.csv").
		Return(nil).Times(1)

	s.Require().NoError(s.service.SendStatement(s.T().Context(), "ACC-A", 10))
	s.Require().ErrorIs(s.service.SendStatement(s.T().Context(), "ACC-N", 10), domain.ErrNoContactChannel)
	s.Require().ErrorIs(s.service.SendStatement(s.T().Context(), "ACC-X", 10), domain.ErrAccountNotFound)
}
