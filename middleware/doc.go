// Package middleware provides net/http glue for authcore.
//
// [Guard] wraps a handler so only requests carrying a valid bearer access
// token get through; the resolved account is available downstream via
// [AccountFromContext].
package middleware
