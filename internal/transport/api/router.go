package api

import (
	"time"

	"github.com/fsdevblog/groph-bank/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
	DefaultTokenTTL       = 24 * time.Hour
)

const (
	RouteGroup        = "/api"
	OpenAccountRoute  = "/accounts"
	RegisterRoute     = "/user/register"
	LoginRoute        = "/user/login"
	ResetRoute        = "/user/reset"
	PasswordRoute     = "/user/password"
	AccountRoute      = "/account"
	BalanceRoute      = "/account/balance"
	DepositRoute      = "/account/deposit"
	WithdrawRoute     = "/account/withdraw"
	TransferRoute     = "/account/transfer"
	TransactionsRoute = "/account/transactions"
	ProfileRoute      = "/account/profile"
	StatementRoute    = "/account/statement"
)

type RouterArgs struct {
	Logger        *logrus.Logger
	LedgerService LedgerServicer
	AuthService   AuthServicer
	JWTSecretKey  []byte
	// TokenTTL время жизни выдаваемых токенов, по умолчанию DefaultTokenTTL.
	TokenTTL time.Duration
}

func New(args RouterArgs) *gin.Engine {
	if err := registerValidators(); err != nil {
		panic(err)
	}
	if args.TokenTTL <= 0 {
		args.TokenTTL = DefaultTokenTTL
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	authHandler := NewAuthHandler(args.AuthService, args.JWTSecretKey, args.TokenTTL)
	accountHandler := NewAccountHandler(args.LedgerService, args.AuthService)

	api := r.Group(RouteGroup)

	api.POST(OpenAccountRoute, accountHandler.Open)

	nonAuth := api.Group("", middlewares.NonAuthRequired(args.JWTSecretKey))
	nonAuth.POST(RegisterRoute, authHandler.Register)
	nonAuth.POST(LoginRoute, authHandler.Login)
	nonAuth.POST(ResetRoute, authHandler.Reset)

	// ниже все роуты группы требуют авторизованного пользователя.
	auth := api.Group("", middlewares.AuthRequired(args.JWTSecretKey))
	auth.POST(PasswordRoute, authHandler.ChangePassword)

	auth.GET(BalanceRoute, accountHandler.Balance)
	auth.POST(DepositRoute, accountHandler.Deposit)
	auth.POST(WithdrawRoute, accountHandler.Withdraw)
	auth.POST(TransferRoute, accountHandler.Transfer)
	auth.GET(TransactionsRoute, accountHandler.Transactions)
	auth.PATCH(ProfileRoute, accountHandler.UpdateProfile)
	auth.POST(StatementRoute, accountHandler.Statement)
	auth.DELETE(AccountRoute, accountHandler.Close)
	return r
}
