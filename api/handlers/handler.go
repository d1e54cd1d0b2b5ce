// Package handlers exposes the subway client over HTTP for front ends
// running out of process.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/subwaycore/subway-go/internal/models"
	"github.com/subwaycore/subway-go/internal/transit"
	"github.com/subwaycore/subway-go/pkg/subway"
)

// Handler handles HTTP requests
type Handler struct {
	client subway.Client
}

// NewHandler creates a new HTTP handler
func NewHandler(client subway.Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.handleIndex).Methods("GET")
	r.HandleFunc("/route/{from}/{to}", h.handleRoute).Methods("GET")
	r.HandleFunc("/travel-time/{from}/{to}", h.handleTravelTime).Methods("GET")
	r.HandleFunc("/arrivals/{station}", h.handleArrivals).Methods("GET")
	r.HandleFunc("/compare", h.handleCompare).Methods("POST")
	r.HandleFunc("/stations/by-location", h.handleByLocation).Methods("GET")
	r.HandleFunc("/stations/{id}", h.handleStation).Methods("GET")
	r.HandleFunc("/lines", h.handleLines).Methods("GET")
	r.HandleFunc("/lines/{line}/stations", h.handleLineStations).Methods("GET")
}

// Response wraps API responses
type Response struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error response. Code distinguishes the
// structural outcomes from plain input errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"title":  "subway-go",
		"readme": "Routing and live-arrival comparison for the NYC subway",
	}
	h.writeJSON(w, Response{Data: response})
}

func (h *Handler) handleRoute(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	route, err := h.client.FindRoute(r.Context(), vars["from"], vars["to"])
	if err != nil {
		h.writeClientError(w, err)
		return
	}
	h.writeJSON(w, Response{Data: route})
}

func (h *Handler) handleTravelTime(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	line := r.URL.Query().Get("line")
	if line == "" {
		h.writeError(w, "Missing line parameter", http.StatusBadRequest)
		return
	}

	minutes, err := h.client.TravelTimeOnLine(r.Context(), vars["from"], vars["to"], line)
	if err != nil {
		h.writeClientError(w, err)
		return
	}
	h.writeJSON(w, Response{Data: map[string]interface{}{
		"from":    vars["from"],
		"to":      vars["to"],
		"line":    line,
		"minutes": minutes,
	}})
}

func (h *Handler) handleArrivals(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var lines []string
	if raw := r.URL.Query().Get("lines"); raw != "" {
		lines = strings.Split(raw, ",")
	}

	arrivals, err := h.client.GetArrivals(r.Context(), vars["station"], lines)
	if err != nil {
		h.writeClientError(w, err)
		return
	}
	if arrivals == nil {
		arrivals = []models.Arrival{}
	}
	h.writeJSON(w, Response{Data: arrivals})
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.FromStationID == "" || req.ToStationID == "" || req.CurrentLine == "" {
		h.writeError(w, "from, to and current_line are required", http.StatusBadRequest)
		return
	}

	cmp, err := h.client.Compare(r.Context(), req)
	if err != nil {
		h.writeClientError(w, err)
		return
	}
	h.writeJSON(w, Response{Data: cmp})
}

func (h *Handler) handleByLocation(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		h.writeError(w, "Missing lat/lon parameter", http.StatusBadRequest)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		h.writeError(w, "Invalid lat parameter", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		h.writeError(w, "Invalid lon parameter", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, Response{Data: h.client.NearestStations(lat, lon, 5)})
}

func (h *Handler) handleStation(w http.ResponseWriter, r *http.Request) {
	station, err := h.client.Station(mux.Vars(r)["id"])
	if err != nil {
		h.writeClientError(w, err)
		return
	}
	h.writeJSON(w, Response{Data: station})
}

func (h *Handler) handleLines(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, Response{Data: h.client.Lines()})
}

func (h *Handler) handleLineStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.client.StationsOnLine(mux.Vars(r)["line"])
	if err != nil {
		h.writeClientError(w, err)
		return
	}
	h.writeJSON(w, Response{Data: stations})
}

// writeClientError maps engine errors to HTTP statuses: unknown inputs
// are 404, structurally impossible queries are 422, the rest is 500.
func (h *Handler) writeClientError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transit.ErrStationNotFound), errors.Is(err, transit.ErrLineNotFound):
		h.writeErrorCode(w, err.Error(), "not_found", http.StatusNotFound)
	case errors.Is(err, transit.ErrUnreachable):
		h.writeErrorCode(w, err.Error(), "unreachable", http.StatusUnprocessableEntity)
	case errors.Is(err, transit.ErrNoViableOption):
		h.writeErrorCode(w, err.Error(), "no_viable_option", http.StatusUnprocessableEntity)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.writeError(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, status int) {
	h.writeErrorCode(w, message, "", status)
}

func (h *Handler) writeErrorCode(w http.ResponseWriter, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}
