// Package retry implements the bounded retry-with-backoff executor shared by
// the fetch client and the notification dispatcher.
//
// The engine is a pure function over a Policy and an operation closure. It
// holds no state and is safe to use concurrently from independent call sites.
//
// # Classification
//
// Errors are split into retryable (network, timeout, rate limit, upstream 5xx)
// and terminal (auth, validation, decode, 4xx) classes. Packages that produce
// errors tag them with a Kind; the engine only inspects Retryable(). An error
// that carries no classification is assumed transient, matching the
// retry-by-default behavior of the delivery pipeline.
package retry
