// Package password hashes and verifies account passwords with Argon2id.
//
// # Output format
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsRehash] reports hashes produced with weaker parameters so the
// caller can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Enforce password strength. Only empty and oversized inputs are rejected.
//   - Store or retrieve passwords.
//   - Log plaintext passwords.
package password
