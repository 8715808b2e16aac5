package embed

import "time"

// HuggingFaceConfig configures the Hugging Face embedder
type HuggingFaceConfig struct {
	// BaseURL is the inference API root (default: DefaultHFBaseURL)
	BaseURL string

	// APIKey is sent as a bearer token
	APIKey string

	// Model is the feature-extraction model (default: DefaultHFModel)
	Model string

	// WaitForModel asks the service to hold the request while the model loads
	// instead of answering 503
	WaitForModel bool

	// Timeout bounds each request (0 = no timeout beyond the caller's context)
	Timeout time.Duration

	// HTTPClient overrides the default client (for testing)
	HTTPClient HTTPDoer
}

// DefaultHuggingFaceConfig returns the configuration used for indexing.
func DefaultHuggingFaceConfig() HuggingFaceConfig {
	return HuggingFaceConfig{
		BaseURL:      DefaultHFBaseURL,
		Model:        DefaultHFModel,
		WaitForModel: true,
	}
}

// featureExtractionRequest is the body of a feature-extraction call.
type featureExtractionRequest struct {
	Inputs  string                   `json:"inputs"`
	Options featureExtractionOptions `json:"options"`
}

type featureExtractionOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}
