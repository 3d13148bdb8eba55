// Package source reads messaging exports into conversations.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/chatrisk/model"
)

// Export is everything the pipeline needs from a messaging export.
type Export struct {
	TargetUser    string
	Conversations []model.Conversation
}

// Format guesses the export format from the file extension.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	default:
		return "json"
	}
}

// Load opens path in the given format ("" guesses). A non-empty target
// overrides the user named in the export.
func Load(ctx context.Context, path, format, target string, log logrus.FieldLogger) (Export, error) {
	if format == "" {
		format = Format(path)
	}
	switch format {
	case "json":
		return LoadJSON(path, target, log)
	case "sqlite":
		s, err := OpenSQLite(path)
		if err != nil {
			return Export{}, err
		}
		defer s.Close()
		return s.Export(ctx, target, log)
	default:
		return Export{}, fmt.Errorf("unknown input format %q", format)
	}
}

// conversation builds a model.Conversation, skipping messages with empty
// bodies.
func conversation(participant string, raw []model.Message, log logrus.FieldLogger) (model.Conversation, error) {
	msgs := make([]model.Message, 0, len(raw))
	for _, r := range raw {
		m, err := model.NewMessage(r.Time, r.Speaker, r.Text)
		if err != nil {
			log.WithError(err).WithField("participant", participant).Debug("skipping message")
			continue
		}
		msgs = append(msgs, m)
	}
	return model.NewConversation(participant, msgs)
}
