package app

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsdevblog/groph-bank/internal/config"
	"github.com/fsdevblog/groph-bank/internal/notify"
	"github.com/fsdevblog/groph-bank/internal/report"
	"github.com/fsdevblog/groph-bank/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-bank/internal/service"
	"github.com/fsdevblog/groph-bank/internal/service/psswd"
	"github.com/fsdevblog/groph-bank/internal/transport/api"
	"github.com/fsdevblog/groph-bank/pkg/uow"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	notifySendTimeout = 15 * time.Second
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

// Run поднимает хранилище, диспетчер уведомлений и http сервер. Блокируется до сигнала остановки или
// ошибки одного из компонентов.
func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"address":      a.Config.RunAddress,
		"lock_timeout": a.Config.LockWaitTimeout.String(),
		"smtp":         a.Config.SMTP.Host != "",
	}).Info("Starting app")

	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return errors.Wrap(connErr, "app run")
	}
	defer conn.Close()

	unitOfWork, uowErr := pgrepo.NewUnitOfWork(conn, uow.Options{
		LockTimeout:      a.Config.LockWaitTimeout,
		StatementTimeout: a.Config.StatementTimeout,
	})
	if uowErr != nil {
		return errors.Wrap(uowErr, "app run")
	}

	dispatcher := notify.NewDispatcher(a.sender(), a.Config.NotifyQueueSize, a.Logger).
		SetWorkers(a.Config.NotifyWorkers).
		SetSendTimeout(notifySendTimeout).
		SetRetry(3, time.Second) //nolint:mnd

	services, sErr := service.Factory(unitOfWork, service.FactoryArgs{
		Hasher:     psswd.PasswordHash(a.Config.BcryptCost),
		Secrets:    psswd.TempSecret(a.Config.TempPasswordLength),
		Notifier:   dispatcher,
		Statements: report.NewCSVStatementWriter(a.Config.StatementsDir),
		Logger:     a.Logger,
	})
	if sErr != nil {
		return errors.Wrap(sErr, "app run")
	}

	router := api.New(api.RouterArgs{
		Logger:        a.Logger,
		LedgerService: services.LedgerService,
		AuthService:   services.AuthService,
		JWTSecretKey:  []byte(a.Config.JWTSecret),
		TokenTTL:      a.Config.TokenTTL,
	})
	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gCtx := errgroup.WithContext(notifyCtx)
	g.Go(func() error {
		return dispatcher.Run(gCtx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		a.Logger.Info("Shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), shutdownTimeout)
		defer cancel()
		return errors.Wrap(srv.Shutdown(shutdownCtx), "http server shutdown")
	})

	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck
	}
	return notifyCtx.Err() //nolint:wrapcheck
}

// sender почтовый релей, если он настроен, иначе письма только пишутся в лог.
func (a *App) sender() notify.Sender {
	if a.Config.SMTP.Host == "" {
		return notify.NewLogSender(a.Logger)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     a.Config.SMTP.Host,
		Port:     a.Config.SMTP.Port,
		Username: a.Config.SMTP.Username,
		Password: a.Config.SMTP.Password,
		From:     a.Config.SMTP.From,
	})
}
