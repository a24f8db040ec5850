// Package password implements password strength evaluation, strong password
// generation, and argon2id hashing with PHC-formatted output.
//
// Evaluate and GenerateStrong are pure functions with no I/O beyond the
// system entropy source; Hasher is CPU-bound and safe for concurrent use.
package password
