package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []Message
	failures int
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("relay unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

type DispatcherTestSuite struct {
	suite.Suite
	sender *fakeSender
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}

func (s *DispatcherTestSuite) SetupTest() {
	s.sender = new(fakeSender)
}

func (s *DispatcherTestSuite) newDispatcher(queueSize uint) *Dispatcher {
	l, _ := test.NewNullLogger()
	return NewDispatcher(s.sender, queueSize, l).SetWorkers(2).SetRetry(3, time.Millisecond)
}

func (s *DispatcherTestSuite) TestRun_DeliversQueuedAndStops() {
	d := s.newDispatcher(16)
	ctx, cancel := context.WithCancel(s.T().Context())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	emails := make(map[string]bool)
	for i := 0; i < 10; i++ {
		email := gofakeit.Email()
		emails[email] = true
		s.Require().NoError(d.Notify(email, "subject", "body"))
	}
	attachment := s.tempFile()
	s.Require().NoError(d.NotifyWithAttachment("statement@example.com", "statement", "body", attachment))

	cancel()
	s.Require().NoError(<-done)

	sent := s.sender.messages()
	s.Len(sent, len(emails)+1)
	for _, msg := range sent {
		if msg.Attachment != "" {
			s.Equal(attachment, msg.Attachment)
			continue
		}
		s.True(emails[msg.To])
	}
	s.NoFileExists(attachment)

	s.Require().ErrorIs(d.Notify("late@example.com", "subject", "body"), ErrStopped)
}

func (s *DispatcherTestSuite) tempFile() string {
	path := filepath.Join(s.T().TempDir(), gofakeit.UUID()+".csv")
	s.Require().NoError(os.WriteFile(path, []byte("date,type,amount\n"), 0o600))
	return path
}

func (s *DispatcherTestSuite) TestAttachmentRemovedAfterFailedDelivery() {
	s.sender.failures = 3
	d := s.newDispatcher(1)
	ctx, cancel := context.WithCancel(s.T().Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	attachment := s.tempFile()
	s.Require().NoError(d.NotifyWithAttachment("statement@example.com", "statement", "body", attachment))

	cancel()
	s.Require().NoError(<-done)
	s.Empty(s.sender.messages())
	s.NoFileExists(attachment)
}

func (s *DispatcherTestSuite) TestAttachmentRemovedWhenQueueFull() {
	d := s.newDispatcher(1)
	s.Require().NoError(d.Notify("a@example.com", "subject", "body"))

	attachment := s.tempFile()
	s.Require().ErrorIs(d.NotifyWithAttachment("b@example.com", "statement", "body", attachment), ErrQueueFull)
	s.NoFileExists(attachment)
}

func (s *DispatcherTestSuite) TestNotify_QueueFull() {
	d := s.newDispatcher(1)

	s.Require().NoError(d.Notify("a@example.com", "subject", "body"))
	s.Require().ErrorIs(d.Notify("b@example.com", "subject", "body"), ErrQueueFull)
}

func (s *DispatcherTestSuite) TestDeliver_Retries() {
	s.sender.failures = 2
	d := s.newDispatcher(1)

	s.Require().NoError(d.deliver(s.T().Context(), Message{To: "a@example.com"}))
	s.Len(s.sender.messages(), 1)

	s.sender.failures = 3
	s.Require().Error(d.deliver(s.T().Context(), Message{To: "b@example.com"}))
	s.Len(s.sender.messages(), 1)
}
