package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_RejectsEmptyText(t *testing.T) {
	for _, body := range []string{"", "   ", "\t\n", "\u00a0"} {
		_, err := NewMessage(time.Unix(0, 0), "bob", body)
		require.ErrorIs(t, err, ErrEmptyText, "%q", body)
	}

	m, err := NewMessage(time.Unix(10, 0), "bob", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", m.Text)
	assert.Equal(t, "bye", m.WithText("bye").Text)
	assert.Equal(t, "hi", m.Text)
}

func TestNewConversation(t *testing.T) {
	_, err := NewConversation("bob", nil)
	require.ErrorIs(t, err, ErrEmptyConversation)

	base := time.Date(2017, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		{Time: base.Add(2 * time.Minute), Speaker: "bob", Text: "third"},
		{Time: base, Speaker: "bob", Text: "first"},
		{Time: base, Speaker: "me", Text: "second"},
	}
	c, err := NewConversation("bob", msgs)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, texts(c.Messages))
	assert.Equal(t, base, c.Start())
	// input slice untouched
	assert.Equal(t, "third", msgs[0].Text)
}

func TestNewClump_RejectsBlank(t *testing.T) {
	_, err := NewClump(time.Unix(0, 0), "bob", "  ")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestCheckOrdered(t *testing.T) {
	a := ScoredRecord{Time: time.Unix(100, 0)}
	b := ScoredRecord{Time: time.Unix(200, 0)}
	assert.NoError(t, CheckOrdered(nil))
	assert.NoError(t, CheckOrdered([]ScoredRecord{a, a, b}))
	assert.ErrorIs(t, CheckOrdered([]ScoredRecord{b, a}), ErrUnordered)
}

func texts(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}
