// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the logged-in state: the persisted bearer token,
// its expiry, and logout.
//
// # Key Types
//
//   - Manager: Holds credentials and persists them to the token file
//   - ExpiryWarningMsg: Bubble Tea message shown before the token expires
//   - ExpiredMsg: Bubble Tea message sent once the token has expired
//
// # Usage
//
//	mgr := session.NewManager(session.Config{TokenFile: path, ServerURL: url})
//	if err := mgr.Load(); err != nil { ... }
//	if !mgr.IsLoggedIn() { ... prompt for login ... }
//
// The token file is written with 0600 permissions. Expiry is read from the
// token's exp claim without verifying the signature; tokens that are not
// JWTs never expire client-side and rely on the server's 401.
package session
