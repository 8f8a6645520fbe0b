package rest

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/types"
	"github.com/snamp-platform/snamp-go/pkg/wire"
)

// ContentTypeCBOR selects CBOR value frames.
const ContentTypeCBOR = "application/cbor"

// NamespacesResponse lists attached resources.
type NamespacesResponse struct {
	Namespaces []string `json:"namespaces"`
}

// AttributeInfo describes one connected attribute.
type AttributeInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Access string `json:"access"`
	Unit   string `json:"unit,omitempty"`
}

// AttributesResponse lists the attributes of a resource.
type AttributesResponse struct {
	Namespace  string          `json:"namespace"`
	Attributes []AttributeInfo `json:"attributes"`
}

// EventInfo describes one enabled notification category.
type EventInfo struct {
	Category string `json:"category"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
}

// EventsResponse lists the notification categories of a resource.
type EventsResponse struct {
	Namespace string      `json:"namespace"`
	Events    []EventInfo `json:"events"`
}

func typeName(t types.Type) string {
	if t == nil {
		return types.Native.String()
	}
	return t.String()
}

func (s *Server) resource(name string) (*registry.Resource, error) {
	res, ok := s.registry.Resource(name)
	if !ok {
		return nil, fmt.Errorf("%w: resource %s", model.ErrNotFound, name)
	}
	return res, nil
}

// handleNamespaces handles GET /namespaces
func (s *Server) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, NamespacesResponse{Namespaces: s.registry.Namespaces()})
}

// handleAttributes handles GET /namespaces/{namespace}/attributes
func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	ns := mux.Vars(r)[varNamespace]
	res, err := s.resource(ns)
	if err != nil {
		s.writeStatusError(w, r, err, map[string]any{"namespace": ns})
		return
	}

	resp := AttributesResponse{Namespace: ns, Attributes: []AttributeInfo{}}
	for _, b := range res.Attributes.Bindings() {
		d := b.Descriptor()
		resp.Attributes = append(resp.Attributes, AttributeInfo{
			ID:     d.ID,
			Name:   d.Name,
			Type:   typeName(d.Type),
			Access: d.Access.String(),
			Unit:   d.Options.String(model.OptionUnit, ""),
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleEvents handles GET /namespaces/{namespace}/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ns := mux.Vars(r)[varNamespace]
	res, err := s.resource(ns)
	if err != nil {
		s.writeStatusError(w, r, err, map[string]any{"namespace": ns})
		return
	}

	resp := EventsResponse{Namespace: ns, Events: []EventInfo{}}
	for _, cat := range res.Notifications.Categories() {
		b, ok := res.Notifications.Binding(cat)
		if !ok {
			continue
		}
		d := b.Descriptor()
		resp.Events = append(resp.Events, EventInfo{
			Category: cat,
			Type:     d.Type(),
			Severity: d.Severity.String(),
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleGetAttribute handles GET /attribute/{namespace}/{id}
func (s *Server) handleGetAttribute(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ns, id := vars[varNamespace], vars[varID]
	details := map[string]any{"namespace": ns, "attribute": id}

	timeout, err := s.accessTimeout(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false, details)
		return
	}

	v, err := s.registry.Read(r.Context(), ns, id, timeout)
	if err != nil {
		s.writeStatusError(w, r, err, details)
		return
	}

	if accepts(r, ContentTypeCBOR) {
		msg, err := wire.NewValueMessage(ns, id, v)
		if err != nil {
			s.writeStatusError(w, r, err, details)
			return
		}
		data, err := wire.EncodeValue(msg)
		if err != nil {
			s.writeStatusError(w, r, err, details)
			return
		}
		s.writeBody(w, ContentTypeCBOR, typeName(v.Type), data)
		return
	}

	data, err := types.ToJSON(v)
	if err != nil {
		s.writeStatusError(w, r, err, details)
		return
	}
	s.writeBody(w, "application/json", typeName(v.Type), data)
}

func (s *Server) writeBody(w http.ResponseWriter, contentType, attrType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Attribute-Type", attrType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// handleSetAttribute handles PUT /attribute/{namespace}/{id}
func (s *Server) handleSetAttribute(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ns, id := vars[varNamespace], vars[varID]
	details := map[string]any{"namespace": ns, "attribute": id}

	timeout, err := s.accessTimeout(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false, details)
		return
	}

	res, err := s.resource(ns)
	if err != nil {
		s.writeStatusError(w, r, err, details)
		return
	}
	b, ok := res.Attributes.Binding(id)
	if !ok {
		s.writeStatusError(w, r, fmt.Errorf("%w: attribute %s/%s", model.ErrNotFound, ns, id), details)
		return
	}
	declared := b.Descriptor().Type
	if declared == nil {
		declared = types.Native
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
			fmt.Sprintf("failed to read body: %v", err), false, details)
		return
	}

	var value types.Value
	if contentType(r) == ContentTypeCBOR {
		msg, err := wire.DecodeValue(body)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false, details)
			return
		}
		value, err = msg.Decode(declared)
		if err != nil {
			s.writeStatusError(w, r, err, details)
			return
		}
	} else {
		value, err = types.FromJSON(body, declared)
		if err != nil {
			s.writeStatusError(w, r, err, details)
			return
		}
	}

	written, err := s.registry.Write(r.Context(), ns, id, timeout, value)
	if err != nil {
		s.writeStatusError(w, r, err, details)
		return
	}
	if !written {
		s.writeStatusError(w, r, fmt.Errorf("%w: write %s/%s after %v", model.ErrTimeout, ns, id, timeout), details)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func contentType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// accepts reports whether the Accept header names mediaType.
func accepts(r *http.Request, mediaType string) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, _ := strings.Cut(part, ";")
		if strings.EqualFold(strings.TrimSpace(mt), mediaType) {
			return true
		}
	}
	return false
}
