package orchestrator

import (
	"sort"

	"github.com/maastricht-university/chatrisk/model"
)

// normalize rewrites every message body. Bodies that normalize to nothing
// keep their original text so the message is not lost.
func (p *Pipeline) normalize(c model.Conversation) model.Conversation {
	msgs := make([]model.Message, len(c.Messages))
	for i, m := range c.Messages {
		if text := p.norm.Normalize(m.Text); text != "" {
			m = m.WithText(text)
		}
		msgs[i] = m
	}
	return model.Conversation{Participant: c.Participant, Messages: msgs}
}

// sortPairs orders pairs from all conversations by window start. Stable, so
// pairs at the same instant keep conversation order.
func sortPairs(pairs []model.ClumpPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].All.Time.Before(pairs[j].All.Time)
	})
}
