// Package accounts implements user account authentication: registration,
// credential verification, session token issuance, per-account lockout, and
// single-use password reset tokens delivered over email.
//
// Lockout:
//   - Accounts carry a failed-login counter and an optional lock expiry.
//     LockoutMachine centralizes the transition rules (increment, lock at
//     threshold, reset on success or after the lock window elapses) while the
//     Accounts repository provides the atomic counter updates.
//
// Tokens:
//   - Access and refresh tokens are stateless HS256 JWTs with independent
//     signing secrets and expiries. Validity is cryptographic; nothing is
//     persisted per session.
//   - Reset tokens are random 32-byte values. Only a SHA-256 digest is stored,
//     together with an expiry and a used marker, so a leaked database row can
//     never be replayed as a reset link.
package accounts
