// Package dispatch fans a rendered message out to every configured channel.
//
// Each channel is handled by its own goroutine: chunk the message to the
// channel's size limit, send the chunks in order through the retry engine,
// and report one Outcome. A failing or slow channel never blocks or aborts a
// sibling; the only whole-call failure is an empty channel list.
//
// # Deadlines
//
// Dispatch honors the context deadline. Channels still in flight when it
// expires are abandoned and reported as timed out; channels that already
// finished keep their outcomes.
package dispatch
