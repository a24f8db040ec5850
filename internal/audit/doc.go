// Package audit implements async delivery of account-security events.
//
// The [Dispatcher] buffers events and forwards them to a caller-supplied
// [Sink] off the login/refresh hot path. It owns buffering and delivery
// only; deciding which events to emit is the service layer's job. Sinks
// for channels, line-delimited JSON, and slog are provided.
package audit
