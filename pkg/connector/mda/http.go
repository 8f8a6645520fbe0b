package mda

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// maxPushBytes bounds a pushed body.
const maxPushBytes = 1 << 20

// Handler returns the HTTP push API.
func (c *Connector) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/attributes/{name}", c.handlePutValue).Methods(http.MethodPut)
	r.HandleFunc("/attributes/{name}", c.handleGetValue).Methods(http.MethodGet)
	r.HandleFunc("/notifications/{category}", c.handlePostEvent).Methods(http.MethodPost)
	return r
}

func pushStatus(err error) int {
	if errors.Is(err, connector.ErrClosed) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func (c *Connector) handlePutValue(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPushBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	if err := c.PushValue(mux.Vars(r)["name"], body); err != nil {
		http.Error(w, err.Error(), pushStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Connector) handleGetValue(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c.mu.RLock()
	v, ok := c.values[name]
	t, declared := c.declared[name]
	c.mu.RUnlock()
	if !ok {
		http.Error(w, "no value pushed for "+name, http.StatusNotFound)
		return
	}
	if !declared {
		t = types.TypeOf(v)
	}
	data, err := types.ToJSON(types.NewValue(v, t))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if last, err := c.timers.LastAccess(name); err == nil {
		w.Header().Set("Last-Modified", last.UTC().Format(http.TimeFormat))
	}
	_, _ = w.Write(data)
}

func (c *Connector) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPushBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	n, err := c.PushEvent(mux.Vars(r)["category"], body)
	if err != nil {
		http.Error(w, err.Error(), pushStatus(err))
		return
	}
	w.Header().Set("X-Delivered", strconv.Itoa(n))
	w.WriteHeader(http.StatusAccepted)
}
