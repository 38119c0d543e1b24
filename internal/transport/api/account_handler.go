package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AccountHandler struct {
	ledgerService LedgerServicer
	authService   AuthServicer
}

func NewAccountHandler(ledgerService LedgerServicer, authService AuthServicer) *AccountHandler {
	return &AccountHandler{
		ledgerService: ledgerService,
		authService:   authService,
	}
}

type AccountResponse struct {
	AccountNumber  string    `json:"account_number"`
	HolderName     string    `json:"holder_name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email,omitempty"`
	Balance        string    `json:"balance"`
	AlertThreshold string    `json:"alert_threshold"`
	Locked         bool      `json:"locked"`
	CreatedAt      time.Time `json:"created_at"`
}

func newAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountNumber:  acc.AccountNumber,
		HolderName:     acc.HolderName,
		Phone:          acc.Phone,
		Email:          acc.Email,
		Balance:        money(acc.Balance),
		AlertThreshold: money(acc.AlertThreshold),
		Locked:         acc.Locked,
		CreatedAt:      acc.CreatedAt,
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyPlaces)
}

type OpenAccountParams struct {
	HolderName     string          `binding:"required,max=128"        json:"holder_name"`
	Phone          string          `binding:"required,phone"          json:"phone"`
	Email          string          `binding:"omitempty,email,max=254" json:"email"`
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
}

// Open POST RouteGroup + OpenAccountRoute. Открывает новый счет, учетные данные к нему привязываются отдельно.
func (h *AccountHandler) Open(c *gin.Context) {
	var params OpenAccountParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	acc, err := h.ledgerService.OpenAccount(ctx, service.OpenAccountArgs{
		HolderName:     params.HolderName,
		Phone:          params.Phone,
		Email:          params.Email,
		InitialDeposit: params.InitialDeposit,
		AlertThreshold: params.AlertThreshold,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": newAccountResponse(acc)})
}

type BalanceResponse struct {
	AccountNumber  string `json:"account_number"`
	Balance        string `json:"balance"`
	AlertThreshold string `json:"alert_threshold"`
}

// Balance GET RouteGroup + BalanceRoute.
func (h *AccountHandler) Balance(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	snapshot, err := h.ledgerService.CheckBalance(ctx, currentAccountNumber(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{
		AccountNumber:  snapshot.AccountNumber,
		Balance:        money(snapshot.Balance),
		AlertThreshold: money(snapshot.AlertThreshold),
	})
}

type DepositParams struct {
	Amount decimal.Decimal `json:"amount"`
}

// Deposit POST RouteGroup + DepositRoute. Пополнение не требует подтверждения паролем.
func (h *AccountHandler) Deposit(c *gin.Context) {
	var params DepositParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balance, err := h.ledgerService.Deposit(ctx, currentAccountNumber(c), params.Amount)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": money(balance)})
}

type WithdrawParams struct {
	Amount   decimal.Decimal `json:"amount"`
	Password string          `binding:"required,max_bytes=72" json:"password"`
}

// Withdraw POST RouteGroup + WithdrawRoute.
func (h *AccountHandler) Withdraw(c *gin.Context) {
	var params WithdrawParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	accountNumber, ok := h.confirm(ctx, c, params.Password)
	if !ok {
		return
	}

	balance, err := h.ledgerService.Withdraw(ctx, accountNumber, params.Amount)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": money(balance)})
}

type TransferParams struct {
	TargetAccount string          `binding:"required,account_number" json:"target_account"`
	Amount        decimal.Decimal `json:"amount"`
	Password      string          `binding:"required,max_bytes=72"   json:"password"`
}

type TransferResponse struct {
	SourceBalance string `json:"source_balance"`
	TargetBalance string `json:"target_balance"`
}

// Transfer POST RouteGroup + TransferRoute. Переводит средства со счета текущего пользователя на target_account.
func (h *AccountHandler) Transfer(c *gin.Context) {
	var params TransferParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	accountNumber, ok := h.confirm(ctx, c, params.Password)
	if !ok {
		return
	}

	res, err := h.ledgerService.Transfer(ctx, accountNumber, params.TargetAccount, params.Amount)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, TransferResponse{
		SourceBalance: money(res.SourceBalance),
		TargetBalance: money(res.TargetBalance),
	})
}

type HistoryParams struct {
	Limit uint `binding:"omitempty,min=1,max=500" form:"limit"`
}

type TransactionResponse struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	TargetAccount *string   `json:"target_account,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Transactions GET RouteGroup + TransactionsRoute. Последние операции по счету, новые первыми.
func (h *AccountHandler) Transactions(c *gin.Context) {
	var params HistoryParams
	if !bindQuery(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, err := h.ledgerService.History(ctx, currentAccountNumber(c), params.Limit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if len(transactions) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	response := make([]TransactionResponse, len(transactions))
	for i, tx := range transactions {
		response[i] = TransactionResponse{
			ID:            tx.ID,
			Type:          string(tx.Type),
			Amount:        money(tx.Amount),
			TargetAccount: tx.TargetAccount,
			CreatedAt:     tx.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, response)
}

type UpdateProfileParams struct {
	Phone *string `binding:"omitempty,phone" json:"phone"`
	// пустой адрес отключает уведомления, формат проверяется сервисом.
	Email          *string          `binding:"omitempty,max=254"     json:"email"`
	AlertThreshold *decimal.Decimal `json:"alert_threshold"`
	Password       string           `binding:"required,max_bytes=72" json:"password"`
}

// UpdateProfile PATCH RouteGroup + ProfileRoute. Меняются только переданные поля.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var params UpdateProfileParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	accountNumber, ok := h.confirm(ctx, c, params.Password)
	if !ok {
		return
	}

	acc, err := h.ledgerService.UpdateProfile(ctx, accountNumber, service.UpdateProfileArgs{
		Phone:          params.Phone,
		Email:          params.Email,
		AlertThreshold: params.AlertThreshold,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": newAccountResponse(acc)})
}

type StatementParams struct {
	Limit uint `binding:"omitempty,min=1,max=500" json:"limit"`
}

// Statement POST RouteGroup + StatementRoute. Выписка формируется и отправляется на почту владельца.
func (h *AccountHandler) Statement(c *gin.Context) {
	var params StatementParams
	// тело запроса необязательно
	if c.Request.ContentLength != 0 && !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.ledgerService.SendStatement(ctx, currentAccountNumber(c), params.Limit); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.AbortWithStatus(http.StatusAccepted)
}

type CloseAccountParams struct {
	Password string `binding:"required,max_bytes=72" json:"password"`
}

// Close DELETE RouteGroup + AccountRoute. Удаляет счет вместе с историей и учетными данными.
func (h *AccountHandler) Close(c *gin.Context) {
	var params CloseAccountParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	accountNumber, ok := h.confirm(ctx, c, params.Password)
	if !ok {
		return
	}

	if err := h.ledgerService.CloseAccount(ctx, accountNumber); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}

// confirm проверяет пароль текущего пользователя перед чувствительной операцией и возвращает номер
// привязанного счета. При отказе запрос прерывается.
func (h *AccountHandler) confirm(ctx context.Context, c *gin.Context, password string) (string, bool) {
	cred, err := h.authService.VerifyForSensitiveOp(ctx, currentUsername(c), password)
	if err != nil {
		abortWithServiceError(c, err)
		return "", false
	}
	return cred.AccountNumber, true
}
