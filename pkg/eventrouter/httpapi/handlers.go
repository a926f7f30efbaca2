package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
)

const (
	defaultHistoryLimit = 50
	manualSourceModule  = "api"
)

type pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type historyResponse struct {
	Events     any        `json:"events"`
	Pagination pagination `json:"pagination"`
}

type typesResponse struct {
	EventTypes []string                    `json:"eventTypes"`
	Total      int                         `json:"total"`
	Categories eventrouter.EventCategories `json:"categories"`
}

type moduleResponse struct {
	ModuleName string                  `json:"moduleName"`
	Stats      eventrouter.ModuleStats `json:"stats"`
	Timestamp  time.Time               `json:"timestamp"`
}

type emitRequest struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Options struct {
		WaitForAll bool `json:"waitForAll"`
	} `json:"options"`
}

type emitResponse struct {
	Event         string    `json:"event"`
	Emitted       bool      `json:"emitted"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlationId"`
}

type messageResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type queueResponse struct {
	Queue       eventrouter.QueueStats `json:"queue"`
	Performance struct {
		TotalEvents int64      `json:"totalEvents"`
		LastEventAt *time.Time `json:"lastEventAt"`
	} `json:"performance"`
	Timestamp time.Time `json:"timestamp"`
}

// intParam reads an integer query parameter. Negative values clamp to 0.
func intParam(req *http.Request, name string, def int) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return max(n, 0), nil
}

func (a *API) handleHistory(w http.ResponseWriter, req *http.Request) {
	limit, err := intParam(req, "limit", defaultHistoryLimit)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(req, "offset", 0)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records := a.router.History(limit, offset)
	resp := historyResponse{
		Events:     records,
		Pagination: pagination{Limit: limit, Offset: offset, Total: len(records)},
	}

	if req.URL.Query().Get("format") == "cloudevents" {
		events, err := eventrouter.CloudEvents(records)
		if err != nil {
			a.logger.Error("failed to convert history to cloudevents", slog.String("error", err.Error()))
			a.writeError(w, http.StatusInternalServerError, "Failed to encode events as CloudEvents")
			return
		}
		resp.Events = events
	}
	a.writeData(w, resp)
}

func (a *API) handleStats(w http.ResponseWriter, _ *http.Request) {
	a.writeData(w, a.router.Stats())
}

func (a *API) handleTypes(w http.ResponseWriter, _ *http.Request) {
	names, cats := a.router.EventTypes()
	a.writeData(w, typesResponse{EventTypes: names, Total: len(names), Categories: cats})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeData(w, a.router.Health())
}

func (a *API) handleModule(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "moduleName")
	stats, ok := a.router.ModuleStats(name)
	if !ok {
		a.writeError(w, http.StatusNotFound, fmt.Sprintf("Module '%s' not found", name))
		return
	}
	a.writeData(w, moduleResponse{ModuleName: name, Stats: stats, Timestamp: a.now().UTC()})
}

func (a *API) handleQueue(w http.ResponseWriter, _ *http.Request) {
	queue, perf := a.router.QueueStats()
	resp := queueResponse{Queue: queue, Timestamp: a.now().UTC()}
	resp.Performance.TotalEvents = perf.TotalEvents
	resp.Performance.LastEventAt = perf.LastEventAt
	a.writeData(w, resp)
}

func (a *API) handleFailures(w http.ResponseWriter, req *http.Request) {
	limit, err := intParam(req, "limit", 0)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.writeData(w, a.router.Failures(limit))
}

func (a *API) handleEmit(w http.ResponseWriter, req *http.Request) {
	var body emitRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		a.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.Event == "" {
		a.writeError(w, http.StatusBadRequest, "Event name is required")
		return
	}

	var payload any
	if len(body.Data) > 0 {
		if err := json.Unmarshal(body.Data, &payload); err != nil {
			a.writeError(w, http.StatusBadRequest, "Invalid event data")
			return
		}
	}

	now := a.now()
	correlationID := fmt.Sprintf("manual_%d", now.UnixMilli())
	_, emitted := a.router.Emit(req.Context(), body.Event, payload,
		eventrouter.WithSourceModule(manualSourceModule),
		eventrouter.WithCorrelationID(correlationID),
		eventrouter.WithWaitForAll(body.Options.WaitForAll),
	)

	a.writeData(w, emitResponse{
		Event:         body.Event,
		Emitted:       emitted,
		Timestamp:     now.UTC(),
		CorrelationID: correlationID,
	})
}

func (a *API) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	a.router.ClearHistory()
	a.writeData(w, messageResponse{Message: "Event history cleared", Timestamp: a.now().UTC()})
}

func (a *API) handleResetStats(w http.ResponseWriter, _ *http.Request) {
	a.router.ResetStats()
	a.writeData(w, messageResponse{Message: "Event statistics reset", Timestamp: a.now().UTC()})
}
