// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the building blocks of the smartdocs chat screen.

  - EntryRenderer (entry.go) renders transcript entries. Answers go through
    glamour once finished; the streaming entry is wrapped as plain text with
    a cursor.
  - ConversationList (conversation_list.go) is the left pane, with relative
    timestamps.
  - ToastManager (toast.go) keeps non-blocking notifications that expire on
    their own.
  - ExpiryBanner (session_expiry.go) warns before the access token expires.

Components hold no network state. The chat model owns them and feeds them
from the transcript store and the gateway.
*/
package components
