// Package ai proxies the portal's assistant chat to the external prompt
// service and persists each conversation turn in the local store.
package ai

// ChatRequest is one user message to the assistant.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatReply is the assistant's answer to a single prompt.
type ChatReply struct {
	Reply      string   `json:"reply"`
	Confidence *float64 `json:"confidence,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Actions    []string `json:"actions,omitempty"`
}

// proxyRequest is the wire shape sent to the prompt service. The persona is
// prepended server-side so clients cannot strip the medical disclaimer.
type proxyRequest struct {
	Prompt string `json:"prompt"`
}

type proxyResponse struct {
	Reply      string   `json:"reply"`
	Confidence *float64 `json:"confidence,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Actions    []string `json:"actions,omitempty"`
}
