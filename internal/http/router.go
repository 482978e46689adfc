package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires the handlers and middleware chain. Identity guards every
// endpoint except the co-processor callback, which authenticates through its
// attestation proof instead.
type RouterConfig struct {
	Preferences *PreferenceHandler
	Directory   *DirectoryHandler
	Optimizer   *OptimizerHandler
	Metrics     *MetricsHandler
	Reveals     *RevealHandler
	Identity    func(http.Handler) http.Handler
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Preferences != nil {
		mux.HandleFunc("/preferences", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Preferences.Submit(w, r)
		})
	}

	mux.HandleFunc("/employees/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/employees/")
		segments := strings.Split(rest, "/")
		if len(segments) < 2 || segments[0] == "" {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithEmployeeID(r.Context(), segments[0]))

		switch {
		case len(segments) == 2 && segments[1] == "preferences":
			if cfg.Preferences == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Preferences.History(w, r)
		case len(segments) == 3 && segments[1] == "preferences" && segments[2] == "latest":
			if cfg.Preferences == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Preferences.Latest(w, r)
		case len(segments) == 2 && segments[1] == "assignment":
			if cfg.Optimizer == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Optimizer.Assign(w, r)
		case len(segments) == 2 && segments[1] == "constraints":
			if cfg.Optimizer == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Optimizer.Constraints(w, r)
		case len(segments) == 2 && segments[1] == "reveal":
			if cfg.Reveals == nil {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodPost:
				cfg.Reveals.Request(w, r)
			case http.MethodGet:
				cfg.Reveals.Status(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		case len(segments) == 2 && segments[1] == "schedule":
			if cfg.Reveals == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Reveals.Schedule(w, r)
		case len(segments) == 3 && segments[1] == "metrics":
			if cfg.Metrics == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Metrics.Employee(w, r, segments[2])
		default:
			http.NotFound(w, r)
		}
	})

	mux.HandleFunc("/teams/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/teams/")
		segments := strings.Split(rest, "/")
		if len(segments) < 2 || segments[0] == "" {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithTeamID(r.Context(), segments[0]))

		switch {
		case len(segments) == 2 && segments[1] == "members":
			if cfg.Directory == nil {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Directory.Members(w, r)
			case http.MethodPost:
				cfg.Directory.AddMember(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		case len(segments) == 2 && segments[1] == "optimize":
			if cfg.Optimizer == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Optimizer.Optimize(w, r)
		case len(segments) == 2 && segments[1] == "events":
			if cfg.Optimizer == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Optimizer.TeamEvents(w, r)
		case len(segments) == 2 && segments[1] == "collaboration":
			if cfg.Optimizer == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Optimizer.Collaboration(w, r)
		case len(segments) == 3 && segments[1] == "metrics":
			if cfg.Metrics == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Metrics.Team(w, r, segments[2])
		default:
			http.NotFound(w, r)
		}
	})

	var protected http.Handler = mux
	if cfg.Identity != nil {
		protected = cfg.Identity(protected)
	}

	outer := http.NewServeMux()
	outer.Handle("/", protected)
	if cfg.Reveals != nil {
		outer.HandleFunc("/decryption-results", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Reveals.Resolve(w, r)
		})
	}

	var handler http.Handler = outer
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
