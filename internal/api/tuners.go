package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/tunerwatch/internal/scanhistory"
)

// setChannelRequest is the body of PUT .../channel.
type setChannelRequest struct {
	Channel int  `json:"channel"`
	ATSC3   bool `json:"atsc3"`
}

// setProgramRequest is the body of PUT .../program.
type setProgramRequest struct {
	Program *int `json:"program"`
}

// handleTunerStatus returns one status snapshot. A status that cannot be read
// is returned as null rather than an error so pollers can keep going.
func (s *Server) handleTunerStatus(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)
	st := s.tuners.GetTunerStatus(r.Context(), id, idx)
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"tuner":     idx,
		"status":    st,
	})
}

// handleTunerPrograms lists the programs of a locked tuner, retrying while the
// stream tables populate.
func (s *Server) handleTunerPrograms(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)
	programs := s.tuners.GetProgramsWithRetry(r.Context(), id, idx, s.programRetries)
	writeJSON(w, http.StatusOK, map[string]any{"programs": programs, "count": len(programs)})
}

// handleTunerPlp returns the PLP table of an ATSC 3.0 tuner.
func (s *Server) handleTunerPlp(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)
	writeJSON(w, http.StatusOK, map[string]any{"plp": s.tuners.GetPlpInfo(r.Context(), id, idx)})
}

// handleTunerL1 returns the physical layer detail of a tuner.
func (s *Server) handleTunerL1(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)
	writeJSON(w, http.StatusOK, map[string]any{"l1": s.tuners.GetL1Info(r.Context(), id, idx)})
}

// handleSetChannel tunes to an RF channel.
func (s *Server) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)

	var req setChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	if req.ATSC3 {
		err = s.tuners.SetAtsc3Channel(r.Context(), id, idx, req.Channel)
	} else {
		err = s.tuners.SetChannel(r.Context(), id, idx, req.Channel)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"channel": req.Channel, "atsc3": req.ATSC3})
}

// handleChannelUp moves the tuner one channel up.
func (s *Server) handleChannelUp(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)
	ch, err := s.tuners.IncrementChannel(r.Context(), id, idx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": ch})
}

// handleChannelDown moves the tuner one channel down.
func (s *Server) handleChannelDown(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)
	ch, err := s.tuners.DecrementChannel(r.Context(), id, idx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": ch})
}

// handleClearTuner releases the tuner.
func (s *Server) handleClearTuner(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)
	if err := s.tuners.ClearTuner(r.Context(), id, idx); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetProgram selects a program within the current stream.
func (s *Server) handleSetProgram(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)

	var req setProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Program == nil {
		writeBadRequest(w, "program is required")
		return
	}

	if err := s.tuners.SetProgram(r.Context(), id, idx, *req.Program); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"program": *req.Program})
}

// handleScan runs a full channel scan. The request blocks until the scan
// finishes, so the API write timeout must exceed the scan timeout.
// With scan history enabled the result is stored; a failed save is logged
// and does not fail the request.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	id, idx := tunerParams(r)

	s.logger.Info("channel scan requested", "device", id, "tuner", idx)
	results, err := s.tuners.ScanChannels(r.Context(), id, idx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	scannedAt := time.Now().UTC()
	resp := map[string]any{"channels": results, "count": len(results), "scanned_at": scannedAt}

	if s.scans != nil {
		rec, saveErr := s.scans.Save(r.Context(), id, idx, scannedAt, results)
		if saveErr != nil {
			s.logger.Warn("storing channel scan failed", "device", id, "tuner", idx, "error", saveErr)
		} else {
			resp["scan_id"] = rec.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLatestScan returns the newest stored scan of a tuner.
func (s *Server) handleLatestScan(w http.ResponseWriter, r *http.Request) {
	if s.scans == nil {
		writeNotFound(w, "scan history is disabled")
		return
	}
	id, idx := tunerParams(r)

	rec, err := s.scans.Latest(r.Context(), id, idx)
	if errors.Is(err, scanhistory.ErrNotFound) {
		writeNotFound(w, "no scan recorded for this tuner")
		return
	}
	if err != nil {
		s.logger.Error("reading scan history failed", "device", id, "tuner", idx, "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
