// Package agent holds the agent records served by the HTTP API, the static
// model catalog, and the text-generation proxy that forwards prompts to a
// hosted LLM provider.
//
// Invariants:
// - The agent store lives for the lifetime of the process only.
// - A failed generation never changes stored state.
// - Providers are chosen by model name; there is no retry or failover.
//
// Usage:
//
//	store := agent.NewStore(logger)
//	gen := agent.NewGenerator(agent.GeneratorConfig{Profiles: profiles, Logger: logger})
//	text, err := gen.Generate(ctx, agent.GenerateRequest{Prompt: "hello"})
package agent
