// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes are stored in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsUpgrade] reports hashes produced with weaker parameters so
// callers can re-hash after the next successful login. Plaintext passwords
// are never logged or persisted by this package.
package password
