package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"sensorcli/internal/config"
	apierrors "sensorcli/internal/errors"
	"sensorcli/internal/infrastructure"
)

// Handler upgrades HTTP requests and attaches the connection to the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	opts     ClientOptions
	logger   *slog.Logger
}

// NewHandler creates the upgrade handler. Origins not listed in
// allowedOrigins are rejected unless they match the request host; "*"
// allows any origin.
func NewHandler(hub *Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Handler{
		hub:    hub,
		opts:   ClientOptions{PingPeriod: cfg.PingPeriod, PongWait: cfg.PongWait},
		logger: logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     originChecker(allowedOrigins),
		Error:           writeUpgradeError,
	}
	return h
}

// writeUpgradeError answers a failed handshake with problem details, keeping
// the status chosen by the upgrader.
func writeUpgradeError(w http.ResponseWriter, r *http.Request, status int, reason error) {
	apiErr := apierrors.ErrWebSocketUpgrade.WithStatus(status).WithMessage(reason.Error())
	_ = render.Render(w, r, apierrors.ProblemFromAPIError(apiErr, r.URL.Path))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())

	if !h.hub.Running() {
		apiErr := apierrors.ErrServiceUnavailable.WithMessage("websocket hub unavailable")
		_ = render.Render(w, r, apierrors.ProblemFromAPIError(apiErr, r.URL.Path))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// writeUpgradeError already replied.
		h.logger.WarnContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}

	opts := h.opts
	opts.TraceID = infrastructure.GetTraceID(ctx)
	client := NewClient(h.hub, NewConnectionWrapper(conn), opts, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
