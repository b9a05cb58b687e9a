// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm provides a provider-agnostic interface for text
// completion against Large Language Model APIs, with streaming.
//
// The primary abstraction is [Provider], which supports both blocking
// completion and streaming responses. Provider implementations translate
// between the common types in this package and each vendor's wire format.
// Conversation agents only exchange plain text, so content is a single
// string per message rather than a list of typed blocks.
//
// All HTTP requests go through a caller-supplied [http.Client]. The
// provider adds the vendor's authentication header from the configured
// API key; TLS and connection reuse belong to the client.
//
// Streaming uses Server-Sent Events (SSE), parsed by [SSEScanner].
// The [EventStream] type wraps a streaming response, yielding
// [StreamEvent] values as they arrive while accumulating the complete
// [Response] internally.
//
// Current provider implementations:
//   - [Anthropic]: Claude models via the Messages API (/v1/messages)
//   - [OpenAI]: any OpenAI-compatible Chat Completions endpoint
//     (/v1/chat/completions), including local servers
package llm
