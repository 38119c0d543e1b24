// Package notify доставляет уведомления держателям счетов в фоне через пул воркеров.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultWorkers       uint = 4
	defaultSendTimeout        = 30 * time.Second
	defaultSendAttempts  uint = 3
	defaultRetryInterval      = 2 * time.Second
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrStopped   = errors.New("notification dispatcher is stopped")
)

// Message письмо для отправки. Attachment - путь к временному файлу вложения, пустая строка если вложения нет.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment string
}

// Sender синхронно доставляет одно сообщение.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher принимает уведомления без блокировки вызывающего и доставляет их воркерами через Sender.
type Dispatcher struct {
	sender        Sender
	queue         chan Message
	l             *logrus.Entry
	workers       uint
	sendTimeout   time.Duration
	sendAttempts  uint
	retryInterval time.Duration

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher создает диспетчер с очередью на queueSize сообщений.
func NewDispatcher(sender Sender, queueSize uint, l *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		queue:  make(chan Message, queueSize),
		l: l.WithFields(logrus.Fields{
			"component": "notify",
			"module":    "dispatcher",
		}),
		workers:       defaultWorkers,
		sendTimeout:   defaultSendTimeout,
		sendAttempts:  defaultSendAttempts,
		retryInterval: defaultRetryInterval,
	}
}

// SetWorkers устанавливает кол-во воркеров, отправляющих сообщения.
func (d *Dispatcher) SetWorkers(workers uint) *Dispatcher {
	if workers > 0 {
		d.workers = workers
	}
	return d
}

// SetSendTimeout устанавливает таймаут одной попытки отправки.
func (d *Dispatcher) SetSendTimeout(timeout time.Duration) *Dispatcher {
	d.sendTimeout = timeout
	return d
}

// SetRetry устанавливает кол-во попыток отправки и паузу между ними.
func (d *Dispatcher) SetRetry(attempts uint, interval time.Duration) *Dispatcher {
	if attempts > 0 {
		d.sendAttempts = attempts
	}
	d.retryInterval = interval
	return d
}

func (d *Dispatcher) Notify(address, subject, body string) error {
	return d.enqueue(Message{To: address, Subject: subject, Body: body})
}

// NotifyWithAttachment передает файл filePath диспетчеру. Файл удаляется после доставки или окончательной
// неудачи, а также если сообщение не удалось поставить в очередь.
func (d *Dispatcher) NotifyWithAttachment(address, subject, body, filePath string) error {
	msg := Message{To: address, Subject: subject, Body: body, Attachment: filePath}
	if err := d.enqueue(msg); err != nil {
		d.removeAttachment(msg)
		return err
	}
	return nil
}

// enqueue никогда не блокирует: при переполненной очереди возвращает ErrQueueFull.
func (d *Dispatcher) enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		return fmt.Errorf("enqueue message for %s: %w", msg.To, ErrQueueFull)
	}
}

// Run запускает воркеров и блокируется до отмены контекста. После отмены новые сообщения не принимаются,
// а уже поставленные в очередь дописываются до конца.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.l.WithField("workers", d.workers).Info("Starting")

	wg := new(sync.WaitGroup)
	wg.Add(int(d.workers)) // nolint:gosec
	for i := range d.workers {
		go d.worker(context.WithoutCancel(ctx), wg, i+1)
	}

	<-ctx.Done()
	d.l.Info("Got stop signal, draining queue...")

	d.mu.Lock()
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	wg.Wait()
	return nil
}

func (d *Dispatcher) worker(ctx context.Context, wg *sync.WaitGroup, workerID uint) {
	defer wg.Done()

	for msg := range d.queue {
		l := d.l.WithFields(logrus.Fields{"worker": workerID, "to": msg.To, "subject": msg.Subject})
		err := d.deliver(ctx, msg)
		d.removeAttachment(msg)
		if err != nil {
			l.WithError(err).Error("notification not delivered")
			continue
		}
		l.Debug("notification delivered")
	}
}

// removeAttachment удаляет файл вложения. Вложение может содержать персональные данные держателя счета.
func (d *Dispatcher) removeAttachment(msg Message) {
	if msg.Attachment == "" {
		return
	}
	if err := os.Remove(msg.Attachment); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.l.WithError(err).WithField("file", msg.Attachment).Warn("attachment was not removed")
	}
}

// deliver делает до sendAttempts попыток отправки.
func (d *Dispatcher) deliver(ctx context.Context, msg Message) error {
	var err error
	for attempt := uint(1); attempt <= d.sendAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err = d.sender.Send(sendCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < d.sendAttempts {
			time.Sleep(d.retryInterval)
		}
	}
	return fmt.Errorf("deliver after %d attempts: %w", d.sendAttempts, err)
}
