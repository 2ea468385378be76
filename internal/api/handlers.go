// File: internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/printer-snatcher/internal/printer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snatcher scrapes one printer. *printer.Snatcher implements it.
type Snatcher interface {
	Snatch(ctx context.Context, host string) (*printer.Record, error)
}

// Handlers serves the printer info endpoint.
type Handlers struct {
	log      *zap.Logger
	snatcher Snatcher
	info     Info
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(logger *zap.Logger, snatcher Snatcher, info Info) *Handlers {
	return &Handlers{
		log:      logger.Named("api_handlers"),
		snatcher: snatcher,
		info:     info,
	}
}

// RegisterRoutes mounts the endpoint on r.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleSnatch)
}

// HandleSnatch answers GET /?ip=w.x.y.z.
//
// Without an ip parameter it returns only the API info. An ip that is not a
// valid IPv4 address is a 400. Otherwise the printer is scraped and the
// outcome, success or not, is reported with a 200.
func (h *Handlers) HandleSnatch(w http.ResponseWriter, r *http.Request) {
	values, present := r.URL.Query()["ip"]
	if !present {
		h.respond(w, http.StatusOK, infoEnvelope(h.info))
		return
	}

	host, err := ParseIPv4(values[0])
	if err != nil {
		h.log.Debug("Rejected request.", zap.Error(err))
		h.respond(w, http.StatusBadRequest, InvalidAddressEnvelope(h.info))
		return
	}

	rec, err := h.snatcher.Snatch(r.Context(), host)
	if err != nil {
		msg := errorMessage(err)
		switch {
		case errors.Is(err, context.Canceled):
			h.log.Debug("Client went away during scrape.", zap.String("host", host))
		case msg == MsgInternalError:
			h.log.Error("Scrape failed unexpectedly.", zap.String("host", host), zap.Error(err))
		default:
			h.log.Info("Scrape failed.", zap.String("host", host), zap.String("reason", msg), zap.Error(err))
		}
	}
	h.respond(w, http.StatusOK, ResultEnvelope(h.info, rec, err))
}

// respond writes env as JSON with the given status code.
func (h *Handlers) respond(w http.ResponseWriter, statusCode int, env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
		http.Error(w, MsgInternalError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		h.log.Debug("Failed to write response", zap.Error(err))
	}
}
