package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tunerwatch/internal/device"
	"github.com/nerrad567/tunerwatch/internal/tuner"
)

// ChannelDevices is the WebSocket channel that receives the device list after
// every device-listing request.
const ChannelDevices = "devices"

// maxScanListLimit bounds the limit query parameter of GET /devices/{id}/scans.
const maxScanListLimit = 200

// handleListDevices runs a discovery pass and returns the merged device list.
//
// Query parameters:
//   - refresh: "true" clears the discovery caches first
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "refresh must be true or false")
			return
		}
		refresh = parsed
	}

	devices := s.devices.Discover(r.Context(), refresh)
	s.hub.Broadcast(ChannelDevices, map[string]any{"devices": devices})

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns the capabilities of one device, plus its discovery
// record when it is in the current list.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := s.tuners.GetDeviceInfo(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := struct {
		ID     string           `json:"id"`
		Device *device.Device   `json:"device,omitempty"`
		Info   tuner.DeviceInfo `json:"info"`
	}{ID: id, Info: info}

	dev, err := s.devices.Device(id)
	switch {
	case err == nil:
		resp.Device = &dev
	case !errors.Is(err, device.ErrDeviceNotFound):
		s.logger.Warn("device lookup failed", "device", id, "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListScans lists stored channel scans of a device, newest first.
//
// Query parameters:
//   - limit: maximum entries (default 20, max 200)
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	if s.scans == nil {
		writeNotFound(w, "scan history is disabled")
		return
	}
	id := chi.URLParam(r, "id")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxScanListLimit {
			writeBadRequest(w, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	scans, err := s.scans.List(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing scan history failed", "device", id, "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": scans, "count": len(scans)})
}
