// Package config loads application configuration from environment variables
// into typed structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - The default `.env` in the working directory is loaded once, if present.
//   - The environment is parsed into any struct using `env` and `envDefault` tags.
//   - Each configuration type is parsed once per process and cached.
//   - Structs implementing Validator get their Validate method called before
//     the value is cached, so cross-field rules fail at startup.
//
// # Usage
//
//	type Config struct {
//		MaxConcurrentCalls int           `env:"DIALER_MAX_CONCURRENT_CALLS" envDefault:"5"`
//		CheckInterval      time.Duration `env:"DIALER_CHECK_INTERVAL" envDefault:"30s"`
//	}
//
//	func (c Config) Validate() error {
//		if c.MaxConcurrentCalls < 1 {
//			return errors.New("at least one concurrent call is required")
//		}
//		return nil
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// # Errors
//
// Load returns ErrNilPointer for a nil destination, ErrParsingConfig when
// env parsing fails and ErrInvalidConfig when Validate rejects the value.
package config
