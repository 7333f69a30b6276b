// Package llm provides an OpenAI-compatible chat completion client used to
// classify news articles.
//
// # Providers
//
// The same request shape is sent to three providers:
//   - openai: Bearer auth against api.openai.com (or a compatible BaseURL)
//   - azure: api-key auth against {endpoint}/openai/deployments/{deployment}
//   - openrouter: Bearer auth plus HTTP-Referer/X-Title attribution headers
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send one system/primer/user request, receive raw text.
// Client.HealthCheck: verify API key and model availability.
// DecodeJSON: decode a JSON object from a model reply, tolerating code fences.
//
// # Retry Behaviour
//
// The client performs a single round trip per call. Retrying is the caller's
// concern (see internal/retry), so the backoff policy lives in one place.
package llm
