// ABOUTME: Pure aggregation of a message list into one row per conversation
// ABOUTME: Groups by unordered participant pair and keeps the newest message

package chat

import (
	"bytes"

	"github.com/google/uuid"
)

// pairKey identifies a conversation independent of message direction.
// The two identities are stored in a canonical order so that A->B and
// B->A map to the same key.
type pairKey struct {
	lo, hi uuid.UUID
}

func keyOf(m Message) pairKey {
	if bytes.Compare(m.Sender[:], m.Target[:]) <= 0 {
		return pairKey{lo: m.Sender, hi: m.Target}
	}
	return pairKey{lo: m.Target, hi: m.Sender}
}

// LatestPerConversation reduces msgs to exactly one message per distinct
// unordered {sender, target} pair: the one with the maximum timestamp.
// The input may be in any order. Results preserve the order in which each
// conversation first appears in msgs. When two messages of the same
// conversation carry an equal timestamp, the one at the later input
// position wins; for a fixed input this is deterministic.
func LatestPerConversation(msgs []Message) []Message {
	latest := make(map[pairKey]Message, len(msgs))
	order := make([]pairKey, 0, len(msgs))

	for _, m := range msgs {
		k := keyOf(m)
		cur, seen := latest[k]
		if !seen {
			order = append(order, k)
			latest[k] = m
			continue
		}
		if !m.Time.Before(cur.Time) {
			latest[k] = m
		}
	}

	out := make([]Message, 0, len(order))
	for _, k := range order {
		out = append(out, latest[k])
	}
	return out
}
