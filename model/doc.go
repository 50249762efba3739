// Package model defines the provider-agnostic abstractions for text generation
// with action calling.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Make the two response variants explicit: a final answer (Text) or an
//     action request (ActionCall)
//   - Facilitate deterministic tests (ScriptedModel)
//
// Providers (OpenAI, Anthropic) implement Model in sub-packages so the
// orchestrator remains decoupled from vendor SDKs.
package model
