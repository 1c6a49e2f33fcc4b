// Package password hashes and verifies user passwords with argon2id,
// producing PHC-formatted strings that embed the parameters and salt so
// hashes remain verifiable across configuration changes.
package password
