// Package mail delivers transactional email for the storefront.
//
// Usage:
//
//	msg := mail.To("buyer@example.com").
//	    BCC("sales@example.com").
//	    Subject("Your receipt").
//	    Template(receiptBody, data).
//	    Attach("receipt.pdf", "application/pdf", pdf)
//
//	err := sender.Send(ctx, msg)
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// ErrNoRecipients is returned when a message has no To address.
var ErrNoRecipients = errors.New("mail: message has no recipients")

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// ─── Message ──────────────────────────────────────────────────────────────────

// Message is a fluent builder for an email.
type Message struct {
	to          []string
	bcc         []string
	subject     string
	body        string
	isHTML      bool
	attachments []Attachment
	err         error
}

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// To starts a message for the given recipients.
func To(addresses ...string) *Message {
	return &Message{to: compact(addresses), isHTML: true}
}

// BCC adds blind-copy recipients. Empty addresses are ignored.
func (m *Message) BCC(addresses ...string) *Message {
	m.bcc = append(m.bcc, compact(addresses)...)
	return m
}

func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// Body sets an HTML body.
func (m *Message) Body(html string) *Message {
	m.body = html
	m.isHTML = true
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(text string) *Message {
	m.body = text
	m.isHTML = false
	return m
}

// Template renders tmpl with data as the HTML body. A render error is kept
// and returned by Err, so the chain stays fluent.
func (m *Message) Template(tmpl *template.Template, data any) *Message {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		m.err = fmt.Errorf("mail: render %s: %w", tmpl.Name(), err)
		return m
	}
	m.body = buf.String()
	m.isHTML = true
	return m
}

// Attach adds an in-memory attachment.
func (m *Message) Attach(name, contentType string, content []byte) *Message {
	m.attachments = append(m.attachments, Attachment{Name: name, ContentType: contentType, Content: content})
	return m
}

// Err reports a deferred builder error, or ErrNoRecipients.
func (m *Message) Err() error {
	if m.err != nil {
		return m.err
	}
	if len(m.to) == 0 {
		return ErrNoRecipients
	}
	return nil
}

func (m *Message) Recipients() []string      { return append([]string(nil), m.to...) }
func (m *Message) BlindCopies() []string     { return append([]string(nil), m.bcc...) }
func (m *Message) SubjectLine() string       { return m.subject }
func (m *Message) Content() string           { return m.body }
func (m *Message) IsHTML() bool              { return m.isHTML }
func (m *Message) Attachments() []Attachment { return append([]Attachment(nil), m.attachments...) }

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
