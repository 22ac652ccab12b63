// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session enforces single-flight streaming per chat session and
// drives the stream lifecycle state machine.
//
// Exactly one stream may be active for a session at any time. The guard
// is checked synchronously before a stream opens; a second send while
// one is in flight is rejected, not queued. The package also keeps the
// session's activity clock, which the job poller consults to pause
// polling while the user is typing.
package session
