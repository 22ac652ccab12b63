// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the ordered, timestamp-consistent collection of
// chat turns and owns every merge and reconciliation rule.
//
// The store is mutated from three directions at once: the active chat
// stream appends to the open turn, the job poller injects and updates
// cards, and pagination prepends older pages. All mutation is
// serialized behind one mutex, and every mutation fires the registered
// OnMutated listeners so the scroll controller and render window react
// to "data changed" rather than to any UI framework detail.
package store
