// Package model holds the typed records that flow through the pipeline.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrEmptyConversation = errors.New("empty conversation")
	ErrEmptyText         = errors.New("empty text")
	ErrUnordered         = errors.New("messages not ordered by time")
)

// Message is one chat line from the export. Immutable once built.
type Message struct {
	Time    time.Time `json:"time"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
}

func NewMessage(t time.Time, speaker, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, fmt.Errorf("message from %q at %s: %w", speaker, t.Format(time.RFC3339), ErrEmptyText)
	}
	return Message{Time: t, Speaker: speaker, Text: text}, nil
}

// WithText returns a copy carrying a rewritten body.
func (m Message) WithText(text string) Message {
	m.Text = text
	return m
}

// Conversation is a time-sorted, non-empty message sequence with one counterpart.
type Conversation struct {
	Participant string
	Messages    []Message
}

// NewConversation copies msgs and sorts them by time (stable, so equal
// timestamps keep export order).
func NewConversation(participant string, msgs []Message) (Conversation, error) {
	if len(msgs) == 0 {
		return Conversation{}, fmt.Errorf("conversation with %q: %w", participant, ErrEmptyConversation)
	}
	sorted := make([]Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	return Conversation{Participant: participant, Messages: sorted}, nil
}

// Start is the first message's time; it seeds the first window.
func (c Conversation) Start() time.Time { return c.Messages[0].Time }

// Clump is the merged text of a window's messages.
type Clump struct {
	Time    time.Time `json:"time"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
}

func NewClump(t time.Time, speaker, text string) (Clump, error) {
	if strings.TrimSpace(text) == "" {
		return Clump{}, fmt.Errorf("clump at %s: %w", t.Format(time.RFC3339), ErrEmptyText)
	}
	return Clump{Time: t, Speaker: speaker, Text: text}, nil
}

// ClumpPair is what one retained window contributes: every participant's
// text and the target user's text.
type ClumpPair struct {
	All  Clump
	User Clump
}

// Sentiment labels returned by the enrichment service.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

type Emotions struct {
	Sadness float64 `json:"sadness"`
	Fear    float64 `json:"fear"`
	Anger   float64 `json:"anger"`
	Joy     float64 `json:"joy"`
}

type Keyword struct {
	Term      string  `json:"term"`
	Relevance float64 `json:"relevance"`
}

// Annotation is the transient enrichment result for one text.
type Annotation struct {
	SentimentLabel string    `json:"sentiment_label"`
	SentimentScore float64   `json:"sentiment_score"`
	Emotions       Emotions  `json:"emotions"`
	Keywords       []Keyword `json:"keywords,omitempty"`
}

// ScoredRecord is the output unit, one per retained window.
type ScoredRecord struct {
	Time     time.Time `json:"time"`
	Speaker  string    `json:"speaker"`
	Score    float64   `json:"score"`
	Keywords []Keyword `json:"keywords"`
}

// CheckOrdered reports ErrUnordered if records are not ascending by time.
func CheckOrdered(recs []ScoredRecord) error {
	for i := 1; i < len(recs); i++ {
		if recs[i].Time.Before(recs[i-1].Time) {
			return fmt.Errorf("record %d at %s precedes record %d: %w",
				i, recs[i].Time.Format(time.RFC3339), i-1, ErrUnordered)
		}
	}
	return nil
}
