package retry

import "net/http"

// Kind classifies a failure for retry purposes. The same taxonomy is used by
// the fetch client and every channel sender so the engine can apply one
// retry/terminal rule everywhere.
type Kind int

const (
	// KindNetwork covers connection errors: refused, reset, DNS, TLS.
	KindNetwork Kind = iota
	// KindTimeout covers per-call and dispatch-level deadline expiry.
	KindTimeout
	// KindRateLimited covers 429-style throttling responses.
	KindRateLimited
	// KindServer covers 5xx-equivalent upstream failures.
	KindServer
	// KindAuth covers 401/403-equivalent credential failures.
	KindAuth
	// KindRejected covers other 4xx-equivalent validation rejections.
	KindRejected
	// KindDecode covers malformed response payloads.
	KindDecode
	// KindConfig covers invalid configuration caught before any network call.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindAuth:
		return "auth"
	case KindRejected:
		return "rejected"
	case KindDecode:
		return "decode"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Retryable reports whether backoff-and-retry can help for this kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindRateLimited, KindServer:
		return true
	default:
		return false
	}
}

// KindForStatus maps an HTTP response status to a failure kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status >= 500:
		return KindServer
	default:
		return KindRejected
	}
}
