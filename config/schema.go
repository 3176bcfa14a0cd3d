// Package config loads the declarative configuration file (spec.md §6)
// and builds the running route tree and update sources from it.
package config

import (
	"encoding/json"
	"fmt"
)

// TginConfig is the root of the configuration file, matching spec.md
// §6's grammar with JSON snake_case field names.
type TginConfig struct {
	DarkThreads int        `json:"dark_threads"`
	ServerPort  *int       `json:"server_port"`
	SSL         *SSLConfig `json:"ssl"`
	API         *APIConfig `json:"api"`
	Updates     []UpdateSpec
	Route       RouteSpec
}

// tginConfigWire mirrors TginConfig but with Updates/Route left as raw
// JSON so the tagged variants below can be decoded by hand.
type tginConfigWire struct {
	DarkThreads int             `json:"dark_threads"`
	ServerPort  *int            `json:"server_port"`
	SSL         *SSLConfig      `json:"ssl"`
	API         *APIConfig      `json:"api"`
	Updates     json.RawMessage `json:"updates"`
	Route       json.RawMessage `json:"route"`
}

// UnmarshalJSON decodes the root config, resolving the Updates/Route
// tagged unions via their own UnmarshalJSON methods.
func (c *TginConfig) UnmarshalJSON(data []byte) error {
	var wire tginConfigWire
	wire.DarkThreads = defaultDarkThreads
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	var rawUpdates []json.RawMessage
	if len(wire.Updates) > 0 {
		if err := json.Unmarshal(wire.Updates, &rawUpdates); err != nil {
			return fmt.Errorf("updates: %w", err)
		}
	}
	updates := make([]UpdateSpec, 0, len(rawUpdates))
	for i, raw := range rawUpdates {
		var spec UpdateSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return fmt.Errorf("updates[%d]: %w", i, err)
		}
		updates = append(updates, spec)
	}

	var route RouteSpec
	if len(wire.Route) > 0 {
		if err := json.Unmarshal(wire.Route, &route); err != nil {
			return fmt.Errorf("route: %w", err)
		}
	}

	c.DarkThreads = wire.DarkThreads
	c.ServerPort = wire.ServerPort
	c.SSL = wire.SSL
	c.API = wire.API
	c.Updates = updates
	c.Route = route
	return nil
}

const defaultDarkThreads = 4

// SSLConfig names the certificate and key paths for HTTPS.
type SSLConfig struct {
	Cert string `json:"cert"`
	Key  string `json:"key"`
}

// APIConfig enables the admin API under BasePath.
type APIConfig struct {
	BasePath string `json:"base_path"`
}

// UpdateSpec is the tagged union of update-source configurations
// (spec.md §6's `UpdateSpec`).
type UpdateSpec struct {
	Kind UpdateKind

	// LongPoll fields.
	Token               string
	URL                 string
	DefaultTimeoutSleep int
	ErrorTimeoutSleep   int

	// Webhook fields.
	Path         string
	Registration *RegistrationSpec
}

// UpdateKind tags UpdateSpec's variant.
type UpdateKind int

const (
	UpdateLongPoll UpdateKind = iota
	UpdateWebhook
)

// RegistrationSpec configures the webhook source's one-shot setWebhook
// call at startup.
type RegistrationSpec struct {
	PublicIP      string `json:"public_ip"`
	SetWebhookURL string `json:"set_webhook_url"`
	Token         string `json:"token"`
}

type updateSpecWire struct {
	Type                string            `json:"type"`
	Token               string            `json:"token"`
	URL                 string            `json:"url"`
	DefaultTimeoutSleep *int              `json:"default_timeout_sleep"`
	ErrorTimeoutSleep   *int              `json:"error_timeout_sleep"`
	Path                string            `json:"path"`
	Registration        *RegistrationSpec `json:"registration"`
}

const defaultUpdateSleepMS = 100

// UnmarshalJSON decodes one UpdateSpec variant, discriminated by "type".
func (u *UpdateSpec) UnmarshalJSON(data []byte) error {
	var wire updateSpecWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Type {
	case "longpoll":
		u.Kind = UpdateLongPoll
		u.Token = wire.Token
		u.URL = wire.URL
		u.DefaultTimeoutSleep = intOrDefault(wire.DefaultTimeoutSleep, defaultUpdateSleepMS)
		u.ErrorTimeoutSleep = intOrDefault(wire.ErrorTimeoutSleep, defaultUpdateSleepMS)
	case "webhook":
		u.Kind = UpdateWebhook
		u.Path = wire.Path
		u.Registration = wire.Registration
	default:
		return fmt.Errorf("unknown update type %q", wire.Type)
	}
	return nil
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// RouteSpec is the tagged, recursive union of route-tree configurations
// (spec.md §6's `RouteSpec`).
type RouteSpec struct {
	Kind RouteKind

	// LongPoll
	Path string

	// Webhook
	URL string

	// RoundRobin / All
	Routes []RouteSpec
}

// RouteKind tags RouteSpec's variant.
type RouteKind int

const (
	RouteLongPoll RouteKind = iota
	RouteWebhook
	RouteRoundRobin
	RouteAll
)

type routeSpecWire struct {
	Type   string          `json:"type"`
	Path   string          `json:"path"`
	URL    string          `json:"url"`
	Routes json.RawMessage `json:"routes"`
}

// UnmarshalJSON decodes one RouteSpec node, recursing into Routes for the
// two balancer variants.
func (r *RouteSpec) UnmarshalJSON(data []byte) error {
	var wire routeSpecWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Type {
	case "longpoll":
		r.Kind = RouteLongPoll
		r.Path = wire.Path
	case "webhook":
		r.Kind = RouteWebhook
		r.URL = wire.URL
	case "round_robin":
		r.Kind = RouteRoundRobin
		children, err := decodeRouteChildren(wire.Routes)
		if err != nil {
			return err
		}
		r.Routes = children
	case "all":
		r.Kind = RouteAll
		children, err := decodeRouteChildren(wire.Routes)
		if err != nil {
			return err
		}
		r.Routes = children
	default:
		return fmt.Errorf("unknown route type %q", wire.Type)
	}
	return nil
}

func decodeRouteChildren(raw json.RawMessage) ([]RouteSpec, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var children []RouteSpec
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}
	return children, nil
}
