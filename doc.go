// Package airauth is the authentication core of an airline booking
// backend: password and social login, HS512 JWT session tokens with
// rotating refresh tokens, TOTP and backup-code MFA, and email-based
// account recovery, across three role-separated credential stores
// (USER, ADMIN, SUPERADMIN).
//
// The package is a library, not a service. Construct an [Engine] through
// [Builder], wiring credential stores, token stores, and an MFA secret
// store (MongoDB and in-memory implementations ship under store/), plus
// optional Redis rate limiting, a mail backend, social verifiers, and an
// audit sink. Engine methods are safe for concurrent use after Build.
//
// # Flow shape
//
// Every login path funnels through the same gate: credentials (or a
// provider token) are checked, then MFA state decides between issuing the
// access/refresh pair and returning an MFA challenge whose session token
// must come back through [Engine.VerifyMFA]. Superadmins are always
// challenged. Refresh tokens rotate: each redeem revokes the presented
// token and persists its replacement, so a replayed token dies with
// [ErrInvalidCredentials].
//
// # Error surface
//
// Callers branch on the sentinel errors in this package with [errors.Is].
// Anything secret-shaped collapses to [ErrInvalidCredentials]; recovery
// endpoints answer with a neutral message whether or not the account
// exists.
package airauth
