// Package config loads the declarative configuration file (C10) and
// builds the route tree and update sources it describes. Loading
// (Load) and construction (Build) are kept separate so a caller can
// validate a parsed config without side effects before committing to
// building live sources.
package config
