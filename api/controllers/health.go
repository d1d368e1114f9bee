package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/peersenco/storefront-backend/api/responses"
	"github.com/peersenco/storefront-backend/pkg/config"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	envHeader         = "X-Peersen-Env"
	readyCheckTimeout = 2 * time.Second
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently and reports 502 naming the
// ones that failed.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)

		results := make([]error, len(names))
		var g errgroup.Group
		for i, name := range names {
			dep := deps[name]
			if dep == nil {
				continue
			}
			g.Go(func() error {
				results[i] = dep.Ping(ctx)
				return nil
			})
		}
		_ = g.Wait()

		failed := map[string]string{}
		for i, name := range names {
			if results[i] != nil {
				failed[name] = results[i].Error()
			}
		}
		if len(failed) > 0 {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies not ready").WithDetails(failed)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
