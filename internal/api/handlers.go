package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/unlockmate/internal/analyzer"
	"github.com/dharsanguruparan/unlockmate/internal/fulfill"
	"github.com/dharsanguruparan/unlockmate/internal/lifecycle"
	"github.com/dharsanguruparan/unlockmate/internal/model"
	"github.com/dharsanguruparan/unlockmate/internal/query"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.store.GetAll(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	statusFilter := r.URL.Query().Get("status")
	search := r.URL.Query().Get("search")
	if statusFilter != "" || search != "" {
		requests = query.Filter(requests, statusFilter, search)
	}
	if requests == nil {
		requests = []model.UnlockRequest{}
	}
	respondJSON(w, http.StatusOK, requests)
}

type createRequestBody struct {
	URL      string                  `json:"url"`
	Email    string                  `json:"email"`
	Metadata *model.DocumentMetadata `json:"metadata"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: invalid json body", model.ErrValidation))
		return
	}
	metadata := body.Metadata
	if metadata == nil {
		// The client usually posts the preview it already analyzed; when it
		// does not, analyze server-side and fall back rather than fail.
		metadata = analyzer.AnalyzeOrFallback(r.Context(), s.analyzer, body.URL)
	}
	req, err := s.controller.Create(r.Context(), body.URL, metadata, body.Email)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

type analyzeBody struct {
	URL string `json:"url"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: invalid json body", model.ErrValidation))
		return
	}
	normalized, err := lifecycle.NormalizeURL(body.URL)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, analyzer.AnalyzeOrFallback(r.Context(), s.analyzer, normalized))
}

func (s *Server) handleFulfill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024)
	if err := r.ParseMultipartForm(s.cfg.MaxFileSize); err != nil {
		respondError(w, fmt.Errorf("%w: expecting multipart form", model.ErrValidation))
		return
	}
	deliverable := fulfill.Deliverable{ExternalLink: r.FormValue("externalLink")}
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			respondError(w, fmt.Errorf("%w: read uploaded file", model.ErrValidation))
			return
		}
		deliverable.File = &fulfill.FileUpload{
			Name:        header.Filename,
			Content:     content,
			ContentType: header.Header.Get("Content-Type"),
		}
	}
	updated, err := s.fulfiller.Fulfill(r.Context(), id, deliverable)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

type payBody struct {
	UnlockType model.UnlockType `json:"unlockType"`
}

// paidRequest is the pay response: the updated request plus a signed link
// the client can follow immediately.
type paidRequest struct {
	model.UnlockRequest
	DownloadURL string `json:"downloadUrl,omitempty"`
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var body payBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: invalid json body", model.ErrValidation))
		return
	}
	updated, err := s.controller.ConfirmPayment(r.Context(), chi.URLParam(r, "id"), body.UnlockType)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, paidRequest{
		UnlockRequest: *updated,
		DownloadURL:   s.signedDownloadURL(updated.ID),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	updated, err := s.controller.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// handleDownload gates delivery: the link must carry a valid unexpired
// signature and the request must be paid.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	expires := r.URL.Query().Get("expires")
	sig := r.URL.Query().Get("sig")
	if !s.signer.Validate(id, expires, sig) || expired(expires) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "invalid or expired download link"})
		return
	}
	req, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if req.Status != model.StatusReady || req.UnlockedURL == nil {
		respondJSON(w, http.StatusConflict, map[string]string{"error": "request is not paid"})
		return
	}
	target := *req.UnlockedURL
	if s.presigner != nil {
		if key, ok := s.presigner.KeyFromURL(target); ok {
			presigned, err := s.presigner.PresignGet(r.Context(), key, s.cfg.SignedURLTTL)
			if err != nil {
				s.logger.Error("presign deliverable", slog.String("request", id), slog.String("error", err.Error()))
				respondError(w, err)
				return
			}
			target = presigned
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type loginBody struct {
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: invalid json body", model.ErrValidation))
		return
	}
	if !s.admin.Authenticate(body.Password) {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	token, err := s.sessions.Issue()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	requests, err := s.store.GetAll(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, query.Compute(requests, s.pricing))
}

func (s *Server) signedDownloadURL(id string) string {
	expiresAt := time.Now().Add(s.cfg.SignedURLTTL).Unix()
	sig := s.signer.Sign(id, expiresAt)
	return fmt.Sprintf("%s/api/requests/%s/download?expires=%d&sig=%s", s.cfg.PublicBaseURL, id, expiresAt, sig)
}

func expired(expires string) bool {
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return true
	}
	return time.Now().Unix() > unix
}
