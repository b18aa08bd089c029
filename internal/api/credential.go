package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/netgate-io/netgate/internal/broker/directory"
	"github.com/netgate-io/netgate/internal/serializer"
)

func (s *Server) handleCredentialList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"devices": s.dir.All(),
	})
}

// handleCredentialGet returns the stored profile merged over the common
// defaults. An unknown device still answers with the defaults alone, flagged
// as a warning so callers can tell the difference.
func (s *Server) handleCredentialGet(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")

	profile, found := s.dir.LookupMerged(id)
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "warning",
			"message": "device not found, returning common credential",
			"device":  s.dir.Common(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"device": profile,
	})
}

// handleCredentialUpsert accepts either a single profile object or a list.
// A single profile without an IP is a validation error; inside a list such
// profiles are skipped so one bad entry does not abort a bulk import.
func (s *Server) handleCredentialUpsert(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profiles, batch, err := decodeProfiles(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if batch {
		err = s.dir.UpsertMany(profiles)
	} else {
		err = s.dir.Upsert(profiles[0])
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, directory.ErrNoIP) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"count":  len(profiles),
	})
}

func decodeProfiles(body []byte) ([]directory.Profile, bool, error) {
	var one directory.Profile
	if err := serializer.JSON.Unmarshal(body, &one); err == nil {
		return []directory.Profile{one}, false, nil
	}

	var many []directory.Profile
	if err := serializer.JSON.Unmarshal(body, &many); err == nil {
		return many, true, nil
	}

	return nil, false, errors.New("invalid credential payload")
}

func (s *Server) handleCredentialDelete(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")

	if err := s.dir.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleCredentialDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := s.dir.DeleteAll(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleCommonGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"common": s.dir.Common(),
	})
}

func (s *Server) handleCommonPut(w http.ResponseWriter, r *http.Request) {
	var fields directory.Profile
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := serializer.JSON.Unmarshal(body, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid credential payload")
		return
	}

	if err := s.dir.SetCommon(fields); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"common": s.dir.Common(),
	})
}

func (s *Server) handleDeviceSearch(w http.ResponseWriter, r *http.Request) {
	query := urlParam(r, "query")

	devices, err := s.dir.Query(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"count":   len(devices),
		"devices": devices,
	})
}
