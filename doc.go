// Package authcore implements an embeddable authentication and account
// security subsystem: password policy evaluation, argon2id credential
// storage, failed-login lockout, and a dual access/refresh JWT lifecycle.
//
// The entry point is [Service], constructed with [New] from a [Config]
// and a [RecordStore] (credential.RedisStore in production). The service
// exposes Register, Login, Refresh, Authenticate, ChangePassword, and the
// account administration operations, and reports in-process counters via
// [Service.MetricsSnapshot].
//
// Subpackages:
//
//   - password — policy rules, strength scoring, generation, argon2id hashing
//   - credential — record model, lockout transitions, Redis persistence
//   - token — HMAC-SHA-256 access/refresh token signing and verification
//   - metrics/export/otel — OpenTelemetry bindings for the counters
package authcore
