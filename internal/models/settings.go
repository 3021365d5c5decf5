package models

// Settings are the caller-owned options for one provider handler.
type Settings struct {
	APIKey      string
	BaseURL     string
	ModelID     string
	Temperature *float64
	MaxTokens   int
}
