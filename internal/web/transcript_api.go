package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sweetpotatoswee/aical/internal/transcript"
)

// handleTranscripts serves the transcript collection.
// Route: /api/transcripts
func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	if s.transcripts == nil {
		writeErrorJSON(w, http.StatusServiceUnavailable, "no_store", "transcript store not configured")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	list, err := s.transcripts.List()
	if err != nil {
		s.logger.Error("Failed to list transcripts", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if list == nil {
		list = []transcript.Metadata{}
	}
	writeJSONOK(w, map[string]interface{}{"transcripts": list})
}

// handleTranscriptDetail serves a single transcript.
// Route: /api/transcripts/{id}
func (s *Server) handleTranscriptDetail(w http.ResponseWriter, r *http.Request) {
	if s.transcripts == nil {
		writeErrorJSON(w, http.StatusServiceUnavailable, "no_store", "transcript store not configured")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, s.apiPrefix+"/api/transcripts/")
	if id == "" || strings.Contains(id, "/") || strings.Contains(id, "..") {
		http.Error(w, "Invalid transcript id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		meta, err := s.transcripts.GetMetadata(id)
		if err != nil {
			if errors.Is(err, transcript.ErrTranscriptNotFound) {
				writeErrorJSON(w, http.StatusNotFound, "not_found", "transcript not found")
				return
			}
			writeErrorJSON(w, http.StatusInternalServerError, "read_failed", err.Error())
			return
		}
		events, err := s.transcripts.ReadEvents(id)
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, "read_failed", err.Error())
			return
		}
		if events == nil {
			events = []transcript.Event{}
		}
		writeJSONOK(w, map[string]interface{}{"metadata": meta, "events": events})

	case http.MethodDelete:
		if err := s.transcripts.Delete(id); err != nil {
			if errors.Is(err, transcript.ErrTranscriptNotFound) {
				writeErrorJSON(w, http.StatusNotFound, "not_found", "transcript not found")
				return
			}
			writeErrorJSON(w, http.StatusInternalServerError, "delete_failed", err.Error())
			return
		}
		writeNoContent(w)

	default:
		methodNotAllowed(w)
	}
}
