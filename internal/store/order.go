// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sort"

	"github.com/jeranaias/docsmith-tui/internal/model"
)

// =============================================================================
// ORDERING
// =============================================================================

// bestTimestamp resolves the ordering key for a message in epoch
// millis. Backend field probing (sentAt / createdAt / timestamp / date)
// happens at the API boundary, so by the time a message is here the
// chain has collapsed to SentAt, with the card timestamp as the last
// resort for synthetic turns. Entries with no timestamp at all key to 0
// and rely on sort stability for their relative order.
func bestTimestamp(m *model.Message) int64 {
	if !m.SentAt.IsZero() {
		return m.SentAt.UnixMilli()
	}
	if m.Card != nil && !m.Card.Timestamp.IsZero() {
		return m.Card.Timestamp.UnixMilli()
	}
	return 0
}

// sortMessages stable-sorts ascending by best available timestamp.
// Stability is load-bearing: some feeds provide only ordinal position,
// and items with identical or missing timestamps must retain their
// relative input order.
func sortMessages(msgs []*model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return bestTimestamp(msgs[i]) < bestTimestamp(msgs[j])
	})
}

// normalizePageOrder fixes up a server-returned page that may be sorted
// descending. Detection compares the first and last timestamped entries
// and reverses in place rather than re-sorting by a possibly-absent
// key, which would scramble rows the server intentionally ordered by
// insertion. A page with no timestamps at all is left untouched.
func normalizePageOrder(batch []*model.Message) {
	first, last := int64(0), int64(0)
	haveFirst := false
	for _, m := range batch {
		ts := bestTimestamp(m)
		if ts == 0 {
			continue
		}
		if !haveFirst {
			first = ts
			haveFirst = true
		}
		last = ts
	}
	if haveFirst && first > last {
		for i, j := 0, len(batch)-1; i < j; i, j = i+1, j-1 {
			batch[i], batch[j] = batch[j], batch[i]
		}
	}
}
