// Package stores persists identity state in the shared key-value directory.
//
// Keys:
//
//	user:{username}            JSON user record
//	user_email:{email}         username, secondary index (lower-cased email)
//	user_name:{name}           username, secondary index (lower-cased display name)
//	email_verify:{token}       username, TTL bound, consumed once
//	pending_cleanup:{username} registration timestamp, TTL bound
//	refresh_revoked:{jti}      revocation marker, TTL = remaining token lifetime
//
// Uniqueness is enforced with conditional puts on the index keys; a failed
// creation rolls back whatever it reserved. This package makes no
// authorization decisions and never logs secrets.
package stores
