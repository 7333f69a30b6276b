// Package config loads, normalizes, and validates eventcoder configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT. The Config type centralizes the
// completion provider, retry budget, input column names, and per-task
// settings so every command sees the same sanitized values.
package config
