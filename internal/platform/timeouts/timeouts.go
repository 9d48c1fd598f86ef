// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Gateway caps a single outbound notification request to the chat gateway.
const Gateway = 10 * time.Second

// Translate caps a single abstract-translation completion request.
const Translate = 30 * time.Second

// Briefing caps a single briefing-generation completion request. Briefings
// feed far more context to the model than translations, so this is generous.
const Briefing = 120 * time.Second
