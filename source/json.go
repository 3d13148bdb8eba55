package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/chatrisk/model"
)

type jsonExport struct {
	User          string             `json:"user"`
	Conversations []jsonConversation `json:"conversations"`
}

type jsonConversation struct {
	Participant string        `json:"participant"`
	Messages    []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Date         Timestamp `json:"date"`
	Body         string    `json:"body"`
	UserSpeaking bool      `json:"user_speaking"`
	Speaker      string    `json:"speaker,omitempty"`
}

// Timestamp accepts unix seconds (integer or fractional, as number or
// string) or an RFC 3339 string.
type Timestamp struct{ time.Time }

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return errors.New("timestamp: missing")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			t.Time = fromUnix(f)
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", b, err)
	}
	t.Time = fromUnix(f)
	return nil
}

func fromUnix(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

func LoadJSON(path, target string, log logrus.FieldLogger) (Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return Export{}, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()
	return ReadJSON(f, target, log)
}

// ReadJSON decodes an export. Messages with user_speaking set are attributed
// to the target user; others to the explicit speaker or the participant.
func ReadJSON(r io.Reader, target string, log logrus.FieldLogger) (Export, error) {
	var raw jsonExport
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Export{}, fmt.Errorf("decode export: %w", err)
	}
	if target == "" {
		target = raw.User
	}
	if target == "" {
		return Export{}, errors.New("export names no user and no target user was given")
	}

	out := Export{TargetUser: target}
	for i, c := range raw.Conversations {
		msgs := make([]model.Message, 0, len(c.Messages))
		for _, m := range c.Messages {
			speaker := m.Speaker
			switch {
			case m.UserSpeaking:
				speaker = target
			case speaker == "":
				speaker = c.Participant
			}
			msgs = append(msgs, model.Message{Time: m.Date.Time, Speaker: speaker, Text: m.Body})
		}
		conv, err := conversation(c.Participant, msgs, log)
		if err != nil {
			return Export{}, fmt.Errorf("conversation %d: %w", i, err)
		}
		out.Conversations = append(out.Conversations, conv)
	}
	return out, nil
}
