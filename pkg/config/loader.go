package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by config structs that check cross-field
// constraints env tags cannot express. Validate runs once, after parsing.
type Validator interface {
	Validate() error
}

type configCache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
	errs   map[string]error
}

var (
	globalCache = &configCache{
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
		errs:   make(map[string]error),
	}

	defaultEnvLoaded sync.Once
)

// Load parses environment variables into the provided configuration struct.
// Each configuration type is parsed once per process; later calls for the
// same type return the cached copy, or the cached error if the first parse failed.
//
// The default .env file is loaded on first use when present. If the struct
// implements Validator its Validate method must pass before the value is cached.
//
// Example:
//
//	type DialerConfig struct {
//		MaxConcurrentCalls int           `env:"DIALER_MAX_CONCURRENT_CALLS" envDefault:"5"`
//		CheckInterval      time.Duration `env:"DIALER_CHECK_INTERVAL" envDefault:"30s"`
//	}
//
//	var cfg DialerConfig
//	if err := config.Load(&cfg); err != nil {
//		// Handle error
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// Ignore errors - the .env file might not exist and that's ok
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	typeName := getTypeName[T]()

	if ok := globalCache.get(typeName, v); ok {
		return nil
	}

	globalCache.mu.Lock()
	once, exists := globalCache.onces[typeName]
	if !exists {
		once = new(sync.Once)
		globalCache.onces[typeName] = once
	}
	globalCache.mu.Unlock()

	once.Do(func() {
		var parsed T
		err := parse(&parsed)

		globalCache.mu.Lock()
		defer globalCache.mu.Unlock()
		if err != nil {
			globalCache.errs[typeName] = err
			return
		}
		globalCache.values[typeName] = parsed
	})

	globalCache.mu.RLock()
	err := globalCache.errs[typeName]
	globalCache.mu.RUnlock()
	if err != nil {
		return err
	}

	if ok := globalCache.get(typeName, v); ok {
		return nil
	}
	return ErrConfigNotLoaded
}

// MustLoad works like Load but panics if configuration loading fails.
// Use it for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

func parse[T any](v *T) error {
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if validator, ok := any(v).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c *configCache) get(typeName string, dst any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.values[typeName]
	if !ok {
		return false
	}
	reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(cached))
	return true
}

func getTypeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
