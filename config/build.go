package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prilive-com/tgin/internal/validate"
	"github.com/prilive-com/tgin/registry"
	"github.com/prilive-com/tgin/route"
	"github.com/prilive-com/tgin/source"
	"github.com/prilive-com/tgin/tg"
)

// Built holds everything config.Build assembles from a TginConfig, ready
// to hand to engine.New.
type Built struct {
	Root          route.Route
	Sources       []source.UpdateSource
	Registry      *registry.Registry
	Port          *int
	TLS           *TLSSpec
	AdminBasePath string // empty when api was not configured
}

// TLSSpec mirrors SSLConfig in the shape engine.Config wants it.
type TLSSpec struct {
	CertFile string
	KeyFile  string
}

// Build constructs the route tree and update sources described by cfg,
// following the original Rust loader's two-pass structure
// (config/setup.rs's build_route then build_updates): the route tree is
// built first, then the sources. The sources do not read the tree; a
// webhook source's auto-registration URL is built from its own path.
func Build(cfg *TginConfig, logger *slog.Logger) (*Built, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New()

	root, err := buildRoute(cfg.Route, reg, logger)
	if err != nil {
		return nil, err
	}

	sources, err := buildSources(cfg.Updates, logger)
	if err != nil {
		return nil, err
	}

	built := &Built{
		Root:     root,
		Sources:  sources,
		Registry: reg,
		Port:     cfg.ServerPort,
	}
	if cfg.SSL != nil {
		built.TLS = &TLSSpec{CertFile: cfg.SSL.Cert, KeyFile: cfg.SSL.Key}
	}
	if cfg.API != nil {
		built.AdminBasePath = cfg.API.BasePath
	}
	return built, nil
}

// buildRoute recurses over a RouteSpec tree, mirroring build_route's
// shape: leaves construct directly, balancers build their children first
// then wrap them.
func buildRoute(spec RouteSpec, reg *registry.Registry, logger *slog.Logger) (route.Route, error) {
	switch spec.Kind {
	case RouteLongPoll:
		if spec.Path == "" {
			return nil, fmt.Errorf("route longpoll: path is required")
		}
		lp := route.NewLongPoll(spec.Path, logger)
		if err := reg.Register(spec.Path, lp); err != nil {
			return nil, fmt.Errorf("route longpoll: %w", err)
		}
		return lp, nil

	case RouteWebhook:
		if err := validate.URL(spec.URL); err != nil {
			return nil, fmt.Errorf("route webhook: %w", err)
		}
		return route.NewWebhook(spec.URL, logger), nil

	case RouteRoundRobin:
		children, err := buildRouteChildren(spec.Routes, reg, logger)
		if err != nil {
			return nil, err
		}
		return route.NewRoundRobin(reg, logger, children...), nil

	case RouteAll:
		children, err := buildRouteChildren(spec.Routes, reg, logger)
		if err != nil {
			return nil, err
		}
		return route.NewBroadcast(reg, logger, children...), nil

	default:
		return nil, fmt.Errorf("route: unknown kind %v", spec.Kind)
	}
}

func buildRouteChildren(specs []RouteSpec, reg *registry.Registry, logger *slog.Logger) ([]route.Route, error) {
	children := make([]route.Route, 0, len(specs))
	for i, s := range specs {
		child, err := buildRoute(s, reg, logger)
		if err != nil {
			return nil, fmt.Errorf("routes[%d]: %w", i, err)
		}
		children = append(children, child)
	}
	return children, nil
}

// buildSources builds the configured update sources, mirroring
// build_updates's shape. default_timeout_sleep/error_timeout_sleep are
// config-file milliseconds, converted to time.Duration here.
func buildSources(specs []UpdateSpec, logger *slog.Logger) ([]source.UpdateSource, error) {
	sources := make([]source.UpdateSource, 0, len(specs))
	for i, s := range specs {
		switch s.Kind {
		case UpdateLongPoll:
			if s.Token == "" {
				return nil, fmt.Errorf("updates[%d]: longpoll requires a token", i)
			}
			url := s.URL
			if url == "" {
				url = defaultLongPollURL(s.Token)
			} else if err := validate.URL(url); err != nil {
				return nil, fmt.Errorf("updates[%d]: %w", i, err)
			}
			src := source.NewLongPollSource(
				tg.SecretToken(s.Token),
				url,
				time.Duration(s.DefaultTimeoutSleep)*time.Millisecond,
				time.Duration(s.ErrorTimeoutSleep)*time.Millisecond,
				logger,
			)
			sources = append(sources, src)

		case UpdateWebhook:
			if s.Path == "" {
				return nil, fmt.Errorf("updates[%d]: webhook requires a path", i)
			}
			var reg *source.WebhookRegistration
			if s.Registration != nil {
				reg = &source.WebhookRegistration{
					SetWebhookURL: s.Registration.SetWebhookURL,
					PublicBaseURL: s.Registration.PublicIP,
					Token:         tg.SecretToken(s.Registration.Token),
				}
			}
			sources = append(sources, source.NewWebhookSource(s.Path, reg, logger))

		default:
			return nil, fmt.Errorf("updates[%d]: unknown kind %v", i, s.Kind)
		}
	}
	return sources, nil
}

// defaultLongPollURL mirrors LongPollUpdate::new's default in the
// original Rust loader (update/longpull.rs): absent an explicit url,
// the source polls the stock Telegram Bot API getUpdates endpoint for
// token.
func defaultLongPollURL(token string) string {
	return fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates", token)
}

// validateConfig checks the schema-level invariants Load enforces before
// Build ever runs: a nonsensical worker count, an out-of-range port, or an
// ssl/api block with empty required fields fails fast. The route tree is
// not checked here; an invalid or missing route fails later, in Build.
func validateConfig(cfg *TginConfig) error {
	if err := validate.Positive("dark_threads", cfg.DarkThreads); err != nil {
		return err
	}
	if cfg.ServerPort != nil {
		if err := validate.InRange("server_port", int(*cfg.ServerPort), 1, 65535); err != nil {
			return err
		}
	}
	if cfg.SSL != nil {
		if err := validate.Required("ssl.cert", cfg.SSL.Cert); err != nil {
			return err
		}
		if err := validate.Required("ssl.key", cfg.SSL.Key); err != nil {
			return err
		}
	}
	if cfg.API != nil {
		if err := validate.Required("api.base_path", cfg.API.BasePath); err != nil {
			return err
		}
	}
	return nil
}
