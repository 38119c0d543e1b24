package service

import (
	"fmt"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/sirupsen/logrus"
)

const lowBalanceSubject = "Low balance alert"

// AlertPolicy решает, нужно ли уведомить держателя счета о падении баланса ниже порога.
type AlertPolicy struct {
	notifier Notifier
	log      *logrus.Entry
}

func NewAlertPolicy(notifier Notifier, l *logrus.Logger) *AlertPolicy {
	return &AlertPolicy{
		notifier: notifier,
		log:      l.WithFields(logrus.Fields{"component": "service", "module": "alert"}),
	}
}

// Evaluate отправляет ровно одно уведомление, если баланс ниже порога и известен адрес.
// Возвращает true, если уведомление было передано на отправку. Ошибка доставки только логируется.
func (a *AlertPolicy) Evaluate(snapshot domain.BalanceSnapshot) bool {
	if !snapshot.BelowThreshold() || snapshot.Email == "" {
		return false
	}

	body := fmt.Sprintf(
		"Dear %s,\n\nThe balance of your account %s is %s, which is below your alert threshold of %s.\n",
		snapshot.HolderName,
		snapshot.AccountNumber,
		snapshot.Balance.StringFixed(domain.MoneyPlaces),
		snapshot.AlertThreshold.StringFixed(domain.MoneyPlaces),
	)
	if err := a.notifier.Notify(snapshot.Email, lowBalanceSubject, body); err != nil {
		a.log.WithError(err).
			WithField("account", snapshot.AccountNumber).
			Warn("low balance alert was not delivered")
		return false
	}
	a.log.WithField("account", snapshot.AccountNumber).Info("low balance alert dispatched")
	return true
}
