// Package providers wires vision-capable model backends into review and joke
// clients.
//
// Supported kinds: Vertex AI Gemini (REST with application default
// credentials), OpenAI (Responses API), Anthropic (Messages API) and Ollama /
// LM Studio for local vision models. Every backend implements [Model] and
// receives the document pages as base64 JPEG attachments in page order.
//
// A [ReviewClient] turns a model response into a validated FormatReview and
// wraps every failure in *ReviewError. A [JokeClient] never fails; on error
// it logs a *JokeGenerationError and returns the fallback remark.
//
// [Build] constructs the immutable [Registry] from provider entries with an
// exhaustive switch over [Kind]; unknown or incomplete entries are skipped.
// All backends share a retry helper that backs off on rate limiting only.
package providers
