// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history loads older thread pages on demand as the viewport
// nears its top, advancing a monotonic cursor over the backend's
// paginated chat history.
package history
