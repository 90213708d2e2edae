// Package publish mirrors the build report onto a NATS subject.
package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/logfields"
	"git.home.luguber.info/inful/buildwatch/internal/notify"
	"git.home.luguber.info/inful/buildwatch/internal/report"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Source is a report that announces its changes.
type Source interface {
	report.Provider
	report.ChangeSource
}

// Message is the payload published for every report change.
type Message struct {
	SessionID string          `json:"session_id,omitempty"`
	Errors    int             `json:"errors"`
	Warnings  int             `json:"warnings"`
	Report    report.Snapshot `json:"report"`
}

// Publisher sends a snapshot of its source every time the source changes.
type Publisher struct {
	conn      Conn
	subject   string
	source    Source
	sessionID func() string
	sub       notify.Disposable
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("buildwatch"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, ferrors.MessagingError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	return conn, nil
}

// New starts publishing changes of source to subject. sessionID, when set,
// labels each message with the current session.
func New(conn Conn, subject string, source Source, sessionID func() string) *Publisher {
	p := &Publisher{conn: conn, subject: subject, source: source, sessionID: sessionID}
	p.sub = source.OnDidChange(func(*report.Item) {
		if err := p.PublishNow(); err != nil {
			slog.Warn("Failed to publish report", logfields.Subject(subject), logfields.Error(err))
		}
	})
	slog.Info("Publishing build reports", logfields.Subject(subject))
	return p
}

// PublishNow sends the current snapshot.
func (p *Publisher) PublishNow() error {
	msg := Message{Report: report.Take(p.source)}
	msg.Errors, msg.Warnings = msg.Report.Counts()
	if p.sessionID != nil {
		msg.SessionID = p.sessionID()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return ferrors.MessagingError("failed to publish report").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}
	slog.Debug("Published report", logfields.Subject(p.subject), logfields.Errors(msg.Errors), logfields.Warnings(msg.Warnings))
	return nil
}

// Close stops publishing and drains the connection.
func (p *Publisher) Close() error {
	p.sub.Dispose()
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
