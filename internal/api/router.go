package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/AlexZinkM/wallet-relay/docs"
	"github.com/AlexZinkM/wallet-relay/internal/common"
	"github.com/AlexZinkM/wallet-relay/internal/handler"
	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
)

// Handlers groups everything the router serves
type Handlers struct {
	Bridge     http.Handler
	Approval   *handler.ApprovalHandler
	Connection *handler.ConnectionHandler
	Session    *handler.SessionHandler
	Account    *handler.AccountHandler
}

// SetupRouter sets up router with handlers. Only the approval UI served
// from approvalURL (or a client sending no Origin) may use the API routes.
func SetupRouter(log wlog.Logger, approvalURL string, h Handlers) (http.Handler, error) {
	if h.Bridge == nil || h.Approval == nil || h.Connection == nil || h.Session == nil || h.Account == nil {
		return nil, errors.New("all handlers are required")
	}
	uiOrigin := common.NormalizeOrigin(approvalURL)
	if uiOrigin == "" {
		return nil, fmt.Errorf("invalid approval URL %q", approvalURL)
	}
	log = wlog.CreateModuleLogger("api", log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(loopbackOnly)
	r.Use(requestLogger(log))

	// Swagger UI
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Content Bridge (websocket); pages of any origin connect here
	r.Handle("/bridge", h.Bridge)

	r.Group(func(r chi.Router) {
		r.Use(originOnly(uiOrigin))
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", h.Approval.List)
			r.Post("/result", h.Approval.Result)
			r.Get("/{id}", h.Approval.Get)
			r.Get("/{id}/qr", h.Approval.QRCode)
			r.Post("/{id}/dismiss", h.Approval.Dismiss)
		})

		r.Get("/connections", h.Connection.List)
		r.Delete("/connections", h.Connection.Delete)

		r.Route("/session", func(r chi.Router) {
			r.Post("/unlock", h.Session.Unlock)
			r.Post("/lock", h.Session.Lock)
			r.Get("/mnemonic", h.Session.GetMnemonic)
			r.Put("/mnemonic", h.Session.PutMnemonic)
		})

		r.Route("/account", func(r chi.Router) {
			r.Get("/", h.Account.Get)
			r.Patch("/", h.Account.Patch)
			r.Post("/{index}/names", h.Account.AddName)
		})
	})

	return r, nil
}

// loopbackOnly keeps the daemon reachable from this machine only. The Host
// check turns away pages that rebind their own name to 127.0.0.1.
func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !common.IsLoopbackRequest(r) || !common.IsLoopbackHost(r.Host) {
			common.WriteError(w, http.StatusForbidden, "forbidden", errors.New("loopback access only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// originOnly rejects browser requests from any origin but allowed.
// Requests without an Origin header come from non-browser clients.
func originOnly(allowed string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o := r.Header.Get("Origin"); o != "" && common.NormalizeOrigin(o) != allowed {
				common.WriteError(w, http.StatusForbidden, "forbidden", fmt.Errorf("origin %q may not use this API", o))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log wlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debugf("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
