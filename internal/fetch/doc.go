// Package fetch retrieves market data from the upstream quote service.
//
// Fetch wraps one raw HTTP attempt in the shared retry engine. Transport
// failures and upstream 5xx/429 responses are retried under the configured
// policy; a response that decodes incorrectly is terminal, because retrying
// cannot fix a malformed payload. A fetch either yields a fully decoded
// payload or an error, never partial data.
package fetch
