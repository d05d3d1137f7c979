// Package api exposes the engine over a JSON HTTP interface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/gatealloc/core/allocation"
	"github.com/kilianp07/gatealloc/core/disruption"
	"github.com/kilianp07/gatealloc/core/engine"
	"github.com/kilianp07/gatealloc/core/logger"
	"github.com/kilianp07/gatealloc/core/model"
	"github.com/kilianp07/gatealloc/core/store"
	"github.com/kilianp07/gatealloc/pkg/export"
)

// Engine is the subset of engine.Engine served over HTTP.
type Engine interface {
	AddGate(g model.Gate) error
	Gates() []model.Gate
	SetGateAvailability(id string, available bool) error
	AllocateGate(f model.Flight, preferred []string) (allocation.Result, error)
	GetAssignments(terminal string) []model.GateAssignment
	HandleDisruption(ev model.DisruptionEvent) (disruption.Result, error)
	History() []model.DisruptionEvent
	Stats() engine.Stats
	Utilization(from, to time.Time) (allocation.UtilizationReport, error)
}

// AllocationRequest is the body of POST /api/allocations.
type AllocationRequest struct {
	Flight         model.Flight `json:"flight"`
	PreferredGates []string     `json:"preferred_gates"`
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	eng Engine
	log logger.Logger
}

// NewRouter returns the API routes. Requests under /api need
// "Authorization: Bearer <token>" when token is non-empty.
func NewRouter(eng Engine, token string, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	h := &handler{eng: eng, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(bearerAuth(token))

		r.Route("/gates", func(r chi.Router) {
			r.Post("/", h.addGate)
			r.Get("/", h.listGates)
			r.Put("/{id}/availability", h.setAvailability)
		})
		r.Post("/allocations", h.allocate)
		r.Get("/assignments", h.listAssignments)
		r.Route("/disruptions", func(r chi.Router) {
			r.Post("/", h.disrupt)
			r.Get("/", h.history)
		})
		r.Get("/stats", h.stats)
		r.Get("/stats/utilization", h.utilization)
	})
	return r
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugw("http request", map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			})
		})
	}
}

func (h *handler) addGate(w http.ResponseWriter, r *http.Request) {
	var g model.Gate
	if err := decode(w, r, &g); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.eng.AddGate(g); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *handler) listGates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.eng.Gates()))
}

func (h *handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Available == nil {
		writeError(w, http.StatusBadRequest, errors.New("available is required"))
		return
	}
	if err := h.eng.SetGateAvailability(chi.URLParam(r, "id"), *req.Available); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) allocate(w http.ResponseWriter, r *http.Request) {
	var req AllocationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := h.eng.AllocateGate(req.Flight, req.PreferredGates)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	live := h.eng.GetAssignments(r.URL.Query().Get("terminal"))
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, nonNil(live))
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="assignments.csv"`)
		if err := export.WriteCSV(w, live); err != nil {
			h.log.Errorf("write assignments csv: %v", err)
		}
	default:
		writeError(w, http.StatusBadRequest, errors.New("format must be json or csv"))
	}
}

func (h *handler) disrupt(w http.ResponseWriter, r *http.Request) {
	var ev model.DisruptionEvent
	if err := decode(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := h.eng.HandleDisruption(ev)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) history(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.eng.History()))
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Stats())
}

func (h *handler) utilization(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("from must be RFC3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("to must be RFC3339"))
		return
	}
	rep, err := h.eng.Utilization(from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := export.WriteUtilizationChart(w, rep); err != nil {
			h.log.Errorf("render utilization chart: %v", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrDuplicateGate):
		return http.StatusConflict
	case errors.Is(err, store.ErrUnknownGate):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidGate),
		errors.Is(err, model.ErrInvalidFlight),
		errors.Is(err, model.ErrInvalidDisruption),
		errors.Is(err, disruption.ErrUnknownType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
