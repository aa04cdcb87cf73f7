package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/storefront-go/storefront/config"
)

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	ssl      bool
	tls      *tls.Config
	from     string
	fromName string
	timeout  time.Duration
}

// NewSMTPSender builds a sender from the MAIL_* settings.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		ssl:      cfg.SSL,
		tls:      &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		from:     cfg.From,
		fromName: cfg.FromName,
		timeout:  cfg.Timeout,
	}
}

// Send dials, delivers and hangs up. The whole SMTP session is bound to ctx
// and the configured timeout: the connection carries the deadline and is
// closed as soon as ctx ends, so nothing is left writing in the background
// once Send has returned.
//
// A relay that accepted the final "." but whose reply was lost may still
// deliver; the caller sees an error for a message that went out.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Err(); err != nil {
		return err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sess, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("mail/smtp: dial: %w", ctxErr(ctx, err))
	}
	defer sess.close()
	stop := context.AfterFunc(ctx, func() { _ = sess.conn.Close() })
	defer stop()

	if err := gomail.Send(sess, s.compose(msg)); err != nil {
		return fmt.Errorf("mail/smtp: send: %w", ctxErr(ctx, err))
	}
	if err := sess.client.Quit(); err != nil {
		return fmt.Errorf("mail/smtp: quit: %w", ctxErr(ctx, err))
	}
	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (*session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	if s.ssl {
		conn = tls.Client(conn, s.tls)
	}

	// Greeting and handshakes block on the conn, so ctx must be able to cut them.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	sess := &session{conn: conn, client: client}

	if !s.ssl {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tls); err != nil {
				sess.close()
				return nil, err
			}
		}
	}
	if s.username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
				sess.close()
				return nil, err
			}
		}
	}
	return sess, nil
}

// ctxErr prefers the context error when the session was cut by ctx.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}

// session is one SMTP conversation; it satisfies gomail.Sender.
type session struct {
	conn   net.Conn
	client *smtp.Client
}

func (c *session) Send(from string, to []string, msg io.WriterTo) error {
	if err := c.client.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := c.client.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := c.client.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (c *session) close() { _ = c.client.Close() }

func (s *SMTPSender) compose(msg *Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", s.from, s.fromName)
	gm.SetHeader("To", msg.to...)
	if len(msg.bcc) > 0 {
		gm.SetHeader("Bcc", msg.bcc...)
	}
	gm.SetHeader("Subject", msg.subject)

	if msg.isHTML {
		gm.SetBody("text/html", msg.body)
	} else {
		gm.SetBody("text/plain", msg.body)
	}

	for _, a := range msg.attachments {
		content := a.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		gm.Attach(a.Name, settings...)
	}
	return gm
}
