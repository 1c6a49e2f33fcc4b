// Package token issues and verifies the two JWT shapes of the system: access
// tokens carrying an encrypted data claim plus a plain role claim, and
// refresh tokens carrying only the encrypted data claim. Both are HS256
// signed with raw secrets; access verification additionally walks an ordered
// list of previous secrets to honor rotation grace periods.
package token
