package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mihailsb/docsync/internal/api"
	"github.com/mihailsb/docsync/internal/server/services"
)

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req api.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := s.documents.Create(r.Context(), userIDFrom(r.Context()), req.Document)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.VersionResponse{Version: doc.Version})
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Document.SyncID = chi.URLParam(r, "syncID")

	doc, err := s.documents.Update(r.Context(), userIDFrom(r.Context()), req.Document, req.ExpectedVersion)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.VersionResponse{Version: doc.Version})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	deletedBy := r.Header.Get("X-Device-ID")
	if deletedBy == "" {
		deletedBy = "remote"
	}

	err := s.documents.Delete(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "syncID"), deletedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "syncID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, services.ToResponse(doc))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := api.ListDocumentsResponse{Documents: make([]api.DocumentResponse, 0, len(docs))}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, services.ToResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	conn, err := websocketAccept(w, r)
	if err != nil {
		s.log.Warn(r.Context(), "websocket accept failed", "error", err)
		return
	}

	s.hub.register(userID, conn)
	defer s.hub.unregister(userID, conn)

	// The channel is server-push only; the read loop exists to notice the
	// peer going away.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}
