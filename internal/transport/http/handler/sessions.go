package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/veriflow/orchestrator/internal/application/stats"
	"github.com/veriflow/orchestrator/internal/application/verification"
	"github.com/veriflow/orchestrator/internal/transport/http/middleware"
)

const maxMultipartMemory = 32 << 20

// SessionHandler handles the verification session endpoints.
type SessionHandler struct {
	svc   verification.Service
	stats *stats.Service
}

func NewSessionHandler(svc verification.Service, stats *stats.Service) *SessionHandler {
	return &SessionHandler{svc: svc, stats: stats}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	sess, err := h.svc.CreateSession(r.Context(), userID, middleware.RealIP(r), r.UserAgent())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	includeMedia := r.URL.Query().Get("include_media") == "true"
	sess, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), userID, includeMedia)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, next, err := h.svc.ListByUser(r.Context(), userID, int32(limit), r.URL.Query().Get("cursor"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedSessionsEnvelope{Data: sessions, NextCursor: next})
}

func (h *SessionHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	front, frontHeader, err := r.FormFile("front")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing front image")
		return
	}
	defer front.Close()

	in := verification.SubmitDocumentInput{
		DocumentType: r.FormValue("document_type"),
		Front: verification.ImageUpload{
			Reader:      front,
			Filename:    frontHeader.Filename,
			ContentType: frontHeader.Header.Get("Content-Type"),
			Size:        frontHeader.Size,
		},
	}
	if back, backHeader, err := r.FormFile("back"); err == nil {
		defer back.Close()
		in.Back = &verification.ImageUpload{
			Reader:      back,
			Filename:    backHeader.Filename,
			ContentType: backHeader.Header.Get("Content-Type"),
			Size:        backHeader.Size,
		}
	}

	sess, err := h.svc.SubmitDocument(r.Context(), chi.URLParam(r, "id"), userID, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) SubmitSelfie(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	selfie, header, err := r.FormFile("selfie")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing selfie image")
		return
	}
	defer selfie.Close()

	sess, err := h.svc.SubmitSelfie(r.Context(), chi.URLParam(r, "id"), userID, verification.ImageUpload{
		Reader:      selfie,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) RunDecision(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	sess, err := h.svc.RunDecision(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) RetryStage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	sess, err := h.svc.RetryStage(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.stats.Summary(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
