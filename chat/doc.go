// Package chat answers questions about a data source.
//
// Service.Ask follows the history-aware retrieval flow: a follow-up question
// is first rewritten into a standalone question, the retriever fetches the
// most similar chunks for it, and the chunks are stuffed into the system
// prompt of the answering call. Any failure yields RetryMessage instead of
// an error so callers can show it to the user directly.
//
// Sessions keeps per-conversation history for the web UI.
package chat
