package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/willtrail/willtrail/internal/server/auth"
	"github.com/willtrail/willtrail/internal/server/models"
	"github.com/willtrail/willtrail/internal/server/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user, token, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user.Public()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user, token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user.Public()})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		s.respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusOK, user.Public())
}

func (s *Server) handleDirectiveGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	d, err := s.directives.Get(r.Context(), userID)
	if err != nil {
		s.respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleDirectiveUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var upd models.DirectiveUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	d, err := s.directives.Update(r.Context(), userID, &upd)
	if err != nil {
		s.respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleIssueCardToken(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	ct, err := s.directives.IssueCardToken(r.Context(), userID)
	if err != nil {
		s.respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusOK, ct)
}

func (s *Server) handleEmergencyCard(w http.ResponseWriter, r *http.Request) {
	view, err := s.directives.ResolveCard(r.Context(), r.PathValue("token"))
	if err != nil {
		s.respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	// some slack over the document cap for the multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxDocumentSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondMessage(w, http.StatusBadRequest, fmt.Sprintf("file exceeds %d bytes", services.MaxDocumentSize))
			return
		}
		respondMessage(w, http.StatusBadRequest, "expecting multipart form with a file field")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "error reading file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}

	meta, err := s.documents.Upload(r.Context(), userID, raw,
		header.Filename, mimeType,
		r.FormValue("category"), r.FormValue("notes"), parseTags(r.FormValue("tags")))
	if err != nil {
		s.respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, meta)
}

func (s *Server) handleDocumentList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	metas, err := s.documents.List(r.Context(), userID, r.URL.Query().Get("category"))
	if err != nil {
		s.respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusOK, metas)
}

func (s *Server) handleDocumentDownload(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	dl, err := s.documents.Download(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.respondError(r, w, err)
		return
	}

	w.Header().Set("Content-Type", dl.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.OriginalName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Data)
}

func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := s.documents.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		s.respondError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseTags splits a comma-separated tags field, dropping blanks.
func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
