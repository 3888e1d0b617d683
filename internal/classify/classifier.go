package classify

import (
	"context"
	"log"
)

// Classifier is the facade the service layer talks to. It tries the
// generative provider when one is configured and falls back to the keyword
// matcher on any failure, so callers always get a result and never an error.
type Classifier struct {
	provider *Provider
}

// Sources recorded alongside a classification.
const (
	SourceStub     = "stub"
	SourceProvider = "provider"
)

// NewClassifier creates the facade. provider may be nil.
func NewClassifier(provider *Provider) *Classifier {
	return &Classifier{provider: provider}
}

// Run classifies grievance text. The second return value names the source
// that produced the result.
func (c *Classifier) Run(ctx context.Context, title, description string) (Result, string) {
	if c.provider.Configured() {
		result, err := c.provider.Classify(ctx, title, description)
		if err == nil {
			return result, SourceProvider
		}
		log.Printf("classify: provider error, falling back to keyword stub: %v", err)
	}
	return Classify(title, description), SourceStub
}

// ChatProvider exposes the provider for the chat endpoint; nil when the
// assistant is not configured.
func (c *Classifier) ChatProvider() *Provider {
	if c.provider.Configured() {
		return c.provider
	}
	return nil
}
