// Package channel implements the notification channel senders.
//
// A channel is one external delivery destination: a chat webhook (Slack or
// Discord style), a Telegram bot, an SMTP mailbox, or a generic JSON webhook.
// The set of variants is closed; adding one means adding a sender
// implementation here, not touching the dispatcher.
//
// # Contract
//
// Every sender performs exactly one delivery attempt per Send call and maps
// its transport's failures onto the shared retry.Kind taxonomy. Retrying is
// the dispatcher's job, which keeps senders trivially mockable. Senders hold
// no shared mutable state and are safe to use concurrently across channels.
package channel
