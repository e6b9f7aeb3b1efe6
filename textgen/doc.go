// Package textgen is the text-generation layer behind the edit loop. It
// wraps the gollm library (github.com/teilomillet/gollm) behind a small
// provider-agnostic interface so the loop can be driven by any model
// backend, including fakes in tests.
//
// # Architecture
//
//   - Service: the one-method interface the edit loop consumes
//   - Client: provider routing and middleware around ProviderAdapter backends
//   - GollmAdapter: the gollm-backed ProviderAdapter
//   - Retry: generic retry with exponential backoff for provider errors
//
// # Quick Start
//
//	adapter, _ := textgen.NewGollmAdapter("anthropic", os.Getenv("ANTHROPIC_API_KEY"))
//	client := textgen.NewClient(textgen.WithProvider("anthropic", adapter))
//
//	res, err := client.Send(ctx, textgen.Request{
//	    Messages: []textgen.Message{textgen.UserMessage("Say hello")},
//	})
//	fmt.Println(res.Text)
//
// Errors follow a typed hierarchy rooted at ServiceError; IsRetryable
// classifies which of them are worth retrying.
package textgen
