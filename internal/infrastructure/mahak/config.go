package mahak

import "errors"

// Config holds configuration for the Mahak RestApi integration
type Config struct {
	// BaseURL is the root of the Mahak RestApi deployment
	BaseURL string
	// APIKey authenticates the integration; sent on every request
	APIKey string
	// Username and Password identify the back-office operator account the
	// integration acts as
	Username string
	Password string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Errors for Mahak configuration
var (
	ErrConfigMissingBaseURL = errors.New("mahak: base URL is required")
	ErrConfigMissingAPIKey  = errors.New("mahak: API key is required")
)

// NewConfig creates a Mahak configuration with defaults
func NewConfig(baseURL, apiKey, username, password string) *Config {
	return &Config{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		Username:       username,
		Password:       password,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Mahak configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	return nil
}
