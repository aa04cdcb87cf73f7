package testkit

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/storefront-go/storefront/pkg/mail"
)

// Mailer is a testify-backed mail.Sender. It accepts every message unless
// the test programs another expectation:
//
//	m := testkit.NewMailer()
//	m.FailWith(errors.New("smtp down"))
type Mailer struct {
	mock.Mock

	mu   sync.Mutex
	sent []*mail.Message
}

var _ mail.Sender = (*Mailer)(nil)

func NewMailer() *Mailer {
	m := &Mailer{}
	m.On("Send", mock.Anything, mock.Anything).Return(nil)
	return m
}

// FailWith replaces the default expectation so every Send returns err.
func (m *Mailer) FailWith(err error) {
	m.ExpectedCalls = nil
	m.On("Send", mock.Anything, mock.Anything).Return(err)
}

func (m *Mailer) Send(ctx context.Context, msg *mail.Message) error {
	args := m.Called(ctx, msg)
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns the messages delivered so far.
func (m *Mailer) Sent() []*mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*mail.Message(nil), m.sent...)
}
