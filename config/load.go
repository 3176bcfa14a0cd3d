package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/jinzhu/configor"

	"github.com/prilive-com/tgin/tg"
)

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Load reads the config file at path, substitutes every ${NAME}
// reference against the process environment, and parses the result into
// a TginConfig. Substitution follows the original Rust loader's
// regex-based pass (config/setup.rs): a referenced variable that isn't
// set fails the load rather than leaving the literal placeholder in
// place.
func Load(path string) (*TginConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", tg.ErrConfig, path, err)
	}

	substituted, err := substituteEnv(raw)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "tgin-config-*.json")
	if err != nil {
		return nil, fmt.Errorf("%w: stage config: %v", tg.ErrConfig, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(substituted); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: stage config: %v", tg.ErrConfig, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: stage config: %v", tg.ErrConfig, err)
	}

	var cfg TginConfig
	if err := configor.Load(&cfg, tmp.Name()); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", tg.ErrConfig, path, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", tg.ErrConfig, err)
	}

	return &cfg, nil
}

// substituteEnv replaces every ${NAME} occurrence with the named
// environment variable's value. An unset variable fails the load.
func substituteEnv(input []byte) ([]byte, error) {
	var firstErr error
	result := envVarPattern.ReplaceAllFunc(input, func(match []byte) []byte {
		if firstErr != nil {
			return match
		}
		name := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(name))
		if !ok {
			firstErr = fmt.Errorf("%w: environment variable %q is not set", tg.ErrConfig, name)
			return match
		}
		return []byte(val)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}
