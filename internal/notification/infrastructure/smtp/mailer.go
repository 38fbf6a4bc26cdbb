package smtp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netsmtp "net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sony/gobreaker"

	"github.com/dmehra2102/storefront/internal/notification/application"
)

var (
	ErrUnavailable = errors.New("mail relay unavailable")
	ErrTimeout     = errors.New("mail relay timed out")
)

const defaultTimeout = 10 * time.Second

type Config struct {
	Addr     string
	Host     string
	Username string
	Password string
	From     string
	// Timeout bounds one send when the caller's context has no earlier deadline.
	Timeout  time.Duration
	PoolSize int
}

type sendFunc func(e *email.Email, timeout time.Duration) error

// Mailer sends through a pooled SMTP connection. A circuit breaker stops
// hammering a relay that keeps failing; while open, Send fails fast with
// ErrUnavailable.
type Mailer struct {
	log     *slog.Logger
	from    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	send    sendFunc
}

var _ application.Mailer = (*Mailer)(nil)

func NewMailer(log *slog.Logger, cfg Config) (*Mailer, error) {
	var auth netsmtp.Auth
	if cfg.Username != "" {
		auth = netsmtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	pool, err := email.NewPool(cfg.Addr, max(cfg.PoolSize, 1), auth)
	if err != nil {
		return nil, fmt.Errorf("smtp pool for %s: %w", cfg.Addr, err)
	}
	return newMailer(log, cfg.From, cfg.Timeout, pool.Send), nil
}

func newMailer(log *slog.Logger, from string, timeout time.Duration, send sendFunc) *Mailer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	m := &Mailer{log: log, from: from, timeout: timeout, send: send}
	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("mail circuit breaker state changed", "circuit", name, "from", from.String(), "to", to.String())
		},
	})
	return m
}

func (m *Mailer) Send(ctx context.Context, msg application.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := m.timeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)

	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.sendWithin(ctx, e, timeout)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// sendWithin stops waiting after timeout. The pool only bounds acquiring a
// connection, so a relay that stalls mid-conversation is cut off here; the
// abandoned send finishes or fails on its own.
func (m *Mailer) sendWithin(ctx context.Context, e *email.Email, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- m.send(e, timeout) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if errors.Is(err, email.ErrTimeout) {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) State() gobreaker.State {
	return m.breaker.State()
}
