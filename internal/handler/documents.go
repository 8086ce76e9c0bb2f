package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/middleware"
	"github.com/sumii/sumii-core/internal/service"
)

const maxUploadMultipartMemory = 32 << 20 // 32MiB held in memory before spilling to disk

// DocumentHandler exposes the document pipeline (spec §4.6/§6) as REST:
// multipart upload, fetch-by-id, list-by-conversation, rename, and delete.
// Shaped after the teacher's internal/handler/documents.go envelope and
// ownership-check idiom.
type DocumentHandler struct {
	Docs *service.DocumentService
}

func NewDocumentHandler(docs *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Docs: docs}
}

// Upload handles POST /api/v1/documents (multipart/form-data: file,
// conversationId, ocrRequested).
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadMultipartMemory); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid multipart form"})
		return
	}

	conversationID := r.FormValue("conversationId")
	if !validateUUID(conversationID) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid conversationId"})
		return
	}
	ocrRequested := r.FormValue("ocrRequested") != "false"

	file, header, err := r.FormFile("file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "failed to read uploaded file"})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	doc, err := h.Docs.Upload(r.Context(), userID, conversationID, header.Filename, mimeType, data, ocrRequested)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, envelope{Success: true, Data: doc})
}

// Get handles GET /api/v1/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid document id"})
		return
	}

	doc, err := h.Docs.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if doc.UserID != userID {
		forbidden(w, "document belongs to another user")
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: doc})
}

// ListByConversation handles GET /api/v1/documents/conversation/{id}.
func (h *DocumentHandler) ListByConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	conversationID := chi.URLParam(r, "id")
	if !validateUUID(conversationID) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid conversation id"})
		return
	}

	docs, err := h.Docs.Repo.ListByConversation(r.Context(), conversationID)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	for _, d := range docs {
		if d.UserID != userID {
			forbidden(w, "document belongs to another user")
			return
		}
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: docs})
}

// UpdateDocumentRequest renames the on-file filename metadata.
type UpdateDocumentRequest struct {
	Filename string `json:"filename"`
}

// Update handles PATCH /api/v1/documents/{id}.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid document id"})
		return
	}

	doc, err := h.Docs.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if doc.UserID != userID {
		forbidden(w, "document belongs to another user")
		return
	}

	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
		return
	}
	if req.Filename == "" {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "filename is required"})
		return
	}

	if err := h.Docs.Repo.UpdateFilename(r.Context(), id, req.Filename); err != nil {
		writeAPIError(w, err)
		return
	}
	doc.Filename = req.Filename

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: doc})
}

// Delete handles DELETE /api/v1/documents/{id}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid document id"})
		return
	}

	doc, err := h.Docs.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if doc.UserID != userID {
		forbidden(w, "document belongs to another user")
		return
	}

	if err := h.Docs.Repo.Delete(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true})
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeAPIError maps a kind-tagged apierr.Error (spec §7) to its HTTP
// status; anything else is treated as an opaque internal error.
func writeAPIError(w http.ResponseWriter, err error) {
	status := apierr.HTTPStatus(apierr.KindOf(err))
	respondJSON(w, status, envelope{Success: false, Error: err.Error()})
}

// forbidden reports a row that exists but is owned by someone else. Spec §3
// distinguishes this from a row that is simply absent: cross-user access to
// a row that exists is "forbidden" (403), not "not found" (404).
func forbidden(w http.ResponseWriter, message string) {
	writeAPIError(w, apierr.New(apierr.KindAuthorization, message))
}
