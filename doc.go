// Package authclient implements the client side of an authenticated session:
// it establishes, persists, refreshes, and tears down a user session against
// a remote identity backend and exposes the session lifecycle as observable
// state machines.
//
// Session lifecycle:
//   - SessionGateway orchestrates every network-backed session operation
//     (login, register, refresh, logout, profile fetch, forgot password,
//     email verification). Successful responses are written through to the
//     CredentialStore and ProfileCache before the caller sees them; failed
//     operations never partially commit local state.
//   - Logout is intentionally asymmetric: the remote invalidation call is
//     best-effort and local credentials are cleared no matter what, so a
//     signed-in device can always sign out while offline.
//
// Token handling:
//   - Some backend variants answer login with a bare JWT instead of a
//     structured profile. ExtractClaims decodes the token payload without
//     verifying its signature to synthesize the session identity. The claims
//     are untrusted and must not feed authorization decisions.
//
// State machines:
//   - SessionStateMachine tracks the UI-facing session state (initial,
//     loading, authenticated, failed, logged out). ShellStateMachine mirrors
//     it for the authenticated shell and treats a failed profile refresh as
//     an implicit session expiry, driving both machines to logged out.
//   - SessionFlow and ShellFlow drive the machines from gateway outcomes,
//     including the process-start restore of a previously stored session.
package authclient
