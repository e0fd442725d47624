// Package deepseek translates subtitle text through an OpenAI-compatible
// chat-completions endpoint (DeepSeek by default).
//
// TranslateBatch splits its input into batches of BatchSize and sends one
// request per batch. The model must answer with a JSON array of the same
// length; fenced code blocks are tolerated and non-string elements are kept in
// their JSON text form. Each batch is attempted up to MaxAttempts times with a
// linear backoff when the request fails in transport or the answer is
// malformed. Missing credentials fail immediately.
package deepseek
