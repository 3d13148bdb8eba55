package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/maastricht-university/chatrisk/model"
)

// SQLite reads a messaging export stored as
//
//	messages(conversation TEXT, sent_at REAL, speaker TEXT, body TEXT, from_me INTEGER)
//
// where sent_at is unix seconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the export read-only.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("open export db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping export db: %w", err)
	}
	return &SQLite{db: db}, nil
}

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

func (s *SQLite) Close() error { return s.db.Close() }

// Export loads every conversation. Rows with from_me set belong to target.
func (s *SQLite) Export(ctx context.Context, target string, log logrus.FieldLogger) (Export, error) {
	if target == "" {
		return Export{}, fmt.Errorf("sqlite export: target user is required")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation, sent_at, speaker, body, from_me
		FROM messages
		ORDER BY conversation ASC, sent_at ASC, rowid ASC
	`)
	if err != nil {
		return Export{}, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var order []string
	byConv := map[string][]model.Message{}
	for rows.Next() {
		var (
			conv    string
			sentAt  float64
			speaker sql.NullString
			body    sql.NullString
			fromMe  bool
		)
		if err := rows.Scan(&conv, &sentAt, &speaker, &body, &fromMe); err != nil {
			return Export{}, fmt.Errorf("scan message: %w", err)
		}
		if _, ok := byConv[conv]; !ok {
			order = append(order, conv)
		}
		who := speaker.String
		if fromMe {
			who = target
		}
		byConv[conv] = append(byConv[conv], model.Message{Time: fromUnix(sentAt), Speaker: who, Text: body.String})
	}
	if err := rows.Err(); err != nil {
		return Export{}, err
	}

	out := Export{TargetUser: target}
	for _, name := range order {
		c, err := conversation(name, byConv[name], log)
		if err != nil {
			return Export{}, err
		}
		out.Conversations = append(out.Conversations, c)
	}
	log.WithField("conversations", len(out.Conversations)).Debug("loaded sqlite export")
	return out, nil
}
