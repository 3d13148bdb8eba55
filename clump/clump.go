// Package clump groups a conversation's messages into fixed-length time
// windows and merges each window into text suitable for enrichment.
package clump

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/maastricht-university/chatrisk/model"
)

const DefaultWindow = 20 * time.Minute

// DefaultTerminators are the marks that end a message without needing ". ".
const DefaultTerminators = "!,.;?"

// Window is one closed span of a conversation. User holds the subset of All
// spoken by the target user.
type Window struct {
	End  time.Time
	All  []model.Message
	User []model.Message
}

type Clumper struct {
	window      time.Duration
	terminators string
}

// New returns a Clumper. Zero values fall back to the defaults.
func New(window time.Duration, terminators string) *Clumper {
	if window <= 0 {
		window = DefaultWindow
	}
	if terminators == "" {
		terminators = DefaultTerminators
	}
	return &Clumper{window: window, terminators: terminators}
}

func (c *Clumper) Window() time.Duration { return c.window }

// Windows folds time-sorted messages into consecutive windows. A window ends
// at its first message's time plus the window length; a message exactly on
// the end stays in the window.
func (c *Clumper) Windows(msgs []model.Message, target string) []Window {
	if len(msgs) == 0 {
		return nil
	}
	var out []Window
	cur := Window{End: msgs[0].Time.Add(c.window)}
	for _, m := range msgs {
		if m.Time.After(cur.End) {
			out = append(out, cur)
			cur = Window{End: m.Time.Add(c.window)}
		}
		cur.All = append(cur.All, m)
		if m.Speaker == target {
			cur.User = append(cur.User, m)
		}
	}
	return append(out, cur)
}

// Pairs clumps a conversation. Windows where the target never spoke are
// dropped.
func (c *Clumper) Pairs(conv model.Conversation, target string) ([]model.ClumpPair, error) {
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("clump %q: %w", conv.Participant, model.ErrEmptyConversation)
	}
	var out []model.ClumpPair
	for _, w := range c.Windows(conv.Messages, target) {
		if len(w.User) == 0 {
			continue
		}
		all, err := model.NewClump(w.All[0].Time, counterpart(w.All, target), c.Join(w.All))
		if err != nil {
			return nil, err
		}
		user, err := model.NewClump(w.User[0].Time, target, c.Join(w.User))
		if err != nil {
			return nil, err
		}
		out = append(out, model.ClumpPair{All: all, User: user})
	}
	return out, nil
}

// Join concatenates bodies, ending each with ". " unless it already ends in
// a terminator, in which case a single space follows.
func (c *Clumper) Join(msgs []model.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Text)
		if r, _ := utf8.DecodeLastRuneInString(m.Text); r != utf8.RuneError && strings.ContainsRune(c.terminators, r) {
			b.WriteString(" ")
		} else {
			b.WriteString(". ")
		}
	}
	return b.String()
}

// counterpart is the first speaker other than target, or target itself.
func counterpart(msgs []model.Message, target string) string {
	for _, m := range msgs {
		if m.Speaker != target {
			return m.Speaker
		}
	}
	return target
}
