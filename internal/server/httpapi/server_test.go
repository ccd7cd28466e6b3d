package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/willtrail/willtrail/internal/common"
	"github.com/willtrail/willtrail/internal/logging"
	"github.com/willtrail/willtrail/internal/server/auth"
	"github.com/willtrail/willtrail/internal/server/card"
	"github.com/willtrail/willtrail/internal/server/config"
	"github.com/willtrail/willtrail/internal/server/models"
	"github.com/willtrail/willtrail/internal/server/services"
)

// -------- fakes --------

type fakeUsers struct {
	registerUser *models.User
	registerErr  error

	loginUser *models.User
	loginErr  error

	getUser *models.User
	getErr  error

	gotUserID string
}

func (f *fakeUsers) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	if f.registerErr != nil {
		return nil, "", f.registerErr
	}
	return f.registerUser, "tok-access", nil
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if f.loginErr != nil {
		return nil, "", f.loginErr
	}
	return f.loginUser, "tok-access", nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.gotUserID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getUser, nil
}

type fakeDirectives struct {
	directive *models.Directive
	dirErr    error

	cardToken *services.CardToken
	issueErr  error

	view       *card.View
	resolveErr error

	gotUserID string
	gotUpdate *models.DirectiveUpdate
	gotToken  string
}

func (f *fakeDirectives) Get(ctx context.Context, userID string) (*models.Directive, error) {
	f.gotUserID = userID
	return f.directive, f.dirErr
}

func (f *fakeDirectives) Update(ctx context.Context, userID string, upd *models.DirectiveUpdate) (*models.Directive, error) {
	f.gotUserID = userID
	f.gotUpdate = upd
	return f.directive, f.dirErr
}

func (f *fakeDirectives) IssueCardToken(ctx context.Context, userID string) (*services.CardToken, error) {
	f.gotUserID = userID
	return f.cardToken, f.issueErr
}

func (f *fakeDirectives) ResolveCard(ctx context.Context, token string) (*card.View, error) {
	f.gotToken = token
	return f.view, f.resolveErr
}

type fakeDocuments struct {
	meta     *models.DocumentMeta
	metas    []models.DocumentMeta
	download *services.Download
	err      error

	gotUserID   string
	gotName     string
	gotMime     string
	gotCategory string
	gotTags     []string
	gotRaw      []byte
	gotDocID    string
}

func (f *fakeDocuments) Upload(ctx context.Context, userID string, raw []byte, originalName, mimeType, category, notes string, tags []string) (*models.DocumentMeta, error) {
	f.gotUserID, f.gotRaw, f.gotName, f.gotMime, f.gotCategory, f.gotTags = userID, raw, originalName, mimeType, category, tags
	return f.meta, f.err
}

func (f *fakeDocuments) List(ctx context.Context, userID, category string) ([]models.DocumentMeta, error) {
	f.gotUserID, f.gotCategory = userID, category
	return f.metas, f.err
}

func (f *fakeDocuments) Download(ctx context.Context, userID, docID string) (*services.Download, error) {
	f.gotUserID, f.gotDocID = userID, docID
	return f.download, f.err
}

func (f *fakeDocuments) Delete(ctx context.Context, userID, docID string) error {
	f.gotUserID, f.gotDocID = userID, docID
	return f.err
}

// -------- helpers --------

const testSecret = "test-secret"

func newTestServer(t *testing.T, u *fakeUsers, d *fakeDirectives, docs *fakeDocuments) *Server {
	t.Helper()
	if u == nil {
		u = &fakeUsers{}
	}
	if d == nil {
		d = &fakeDirectives{}
	}
	if docs == nil {
		docs = &fakeDocuments{}
	}
	cfg := &config.Config{SecretKey: testSecret}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(cfg, logger, u, d, docs)
}

func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	return "Bearer " + token
}

func doJSON(t *testing.T, h http.Handler, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("body is not a json object: %v: %s", err, rec.Body.String())
	}
	return m
}

// -------- tests --------

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil, nil, nil).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRegister(t *testing.T) {
	u := &fakeUsers{registerUser: &models.User{ID: "u1", Name: "Jane", Email: "jane@example.com", Role: "user"}}
	h := newTestServer(t, u, nil, nil).Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": "Jane", "email": "jane@example.com", "password": "longenough"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["token"] != "tok-access" {
		t.Fatalf("missing token: %v", body)
	}
	user := body["user"].(map[string]any)
	if user["email"] != "jane@example.com" {
		t.Fatalf("unexpected user: %v", user)
	}
	if _, ok := user["passwordHash"]; ok {
		t.Fatalf("password hash leaked: %v", user)
	}
}

func TestRegister_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", common.ErrorValidation, http.StatusBadRequest},
		{"conflict", common.ErrorConflict, http.StatusConflict},
		{"internal", common.ErrorInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeUsers{registerErr: tt.err}, nil, nil).Routes()
			rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "",
				map[string]string{"name": "x", "email": "a@b.co", "password": "longenough"})
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if body := decodeBody(t, rec); body["message"] == "" {
				t.Fatalf("error body must carry a message: %v", body)
			}
		})
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	h := newTestServer(t, nil, nil, nil).Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad credentials", common.ErrorUnauthorized, http.StatusUnauthorized},
		{"deactivated", common.ErrorForbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeUsers{loginErr: tt.err}, nil, nil).Routes()
			rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "",
				map[string]string{"email": "a@b.co", "password": "x"})
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	h := newTestServer(t, nil, nil, nil).Routes()

	routes := []struct{ method, target string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/directive"},
		{http.MethodPut, "/api/directive"},
		{http.MethodPost, "/api/directive/card-token"},
		{http.MethodPost, "/api/documents"},
		{http.MethodGet, "/api/documents"},
		{http.MethodGet, "/api/documents/doc-1/download"},
		{http.MethodDelete, "/api/documents/doc-1"},
	}
	for _, rt := range routes {
		rec := doJSON(t, h, rt.method, rt.target, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status = %d, want 401", rt.method, rt.target, rec.Code)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/api/directive", "Bearer garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", rec.Code)
	}
}

func TestMe(t *testing.T) {
	u := &fakeUsers{getUser: &models.User{ID: "u1", Name: "Jane", Email: "jane@example.com"}}
	h := newTestServer(t, u, nil, nil).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/auth/me", bearerFor(t, "u1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if u.gotUserID != "u1" {
		t.Fatalf("handler resolved user %q", u.gotUserID)
	}
}

func TestDirectiveRoutes(t *testing.T) {
	d := &fakeDirectives{directive: &models.Directive{ID: "d1", PublicFields: models.DefaultPublicFields()}}
	h := newTestServer(t, nil, d, nil).Routes()
	bearer := bearerFor(t, "u1")

	rec := doJSON(t, h, http.MethodGet, "/api/directive", bearer, nil)
	if rec.Code != http.StatusOK || d.gotUserID != "u1" {
		t.Fatalf("get: status = %d, user %q", rec.Code, d.gotUserID)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/directive", bearer,
		map[string]any{"personalInfo": map[string]string{"fullName": "Jane Doe"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d", rec.Code)
	}
	if d.gotUpdate == nil || d.gotUpdate.PersonalInfo == nil || d.gotUpdate.PersonalInfo.FullName != "Jane Doe" {
		t.Fatalf("update payload not decoded: %+v", d.gotUpdate)
	}
	if d.gotUpdate.MedicalInfo != nil {
		t.Fatalf("absent sections must stay nil, got %+v", d.gotUpdate.MedicalInfo)
	}
}

func TestIssueCardToken(t *testing.T) {
	expiry := time.Now().Add(365 * 24 * time.Hour)
	d := &fakeDirectives{cardToken: &services.CardToken{
		Token:   "tok",
		CardURL: "http://localhost:5173/emergency-card/tok",
		Expiry:  expiry,
	}}
	h := newTestServer(t, nil, d, nil).Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/directive/card-token", bearerFor(t, "u1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["token"] != "tok" || body["cardUrl"] != "http://localhost:5173/emergency-card/tok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestEmergencyCard(t *testing.T) {
	d := &fakeDirectives{view: &card.View{Name: "Jane Doe", BloodType: "O+"}}
	h := newTestServer(t, nil, d, nil).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/emergency-card/tok", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if d.gotToken != "tok" {
		t.Fatalf("token = %q", d.gotToken)
	}
	body := decodeBody(t, rec)
	if body["name"] != "Jane Doe" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["allergies"]; ok {
		t.Fatalf("empty sections must not serialize: %v", body)
	}
}

func TestEmergencyCard_NotFound(t *testing.T) {
	d := &fakeDirectives{resolveErr: common.ErrorNotFound}
	h := newTestServer(t, nil, d, nil).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/emergency-card/expired", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["message"] != "not found" {
		t.Fatalf("expired and unknown tokens must look identical: %v", body)
	}
}

func TestDocumentUpload(t *testing.T) {
	docs := &fakeDocuments{meta: &models.DocumentMeta{ID: "doc-1", OriginalName: "labs.pdf"}}
	h := newTestServer(t, nil, nil, docs).Routes()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "labs.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte("%PDF-1.4")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.WriteField("category", "Test Results")
	_ = mw.WriteField("tags", "labs, 2026 ,")
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearerFor(t, "u1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if docs.gotUserID != "u1" || docs.gotName != "labs.pdf" || docs.gotCategory != "Test Results" {
		t.Fatalf("upload args: %+v", docs)
	}
	if len(docs.gotTags) != 2 || docs.gotTags[0] != "labs" || docs.gotTags[1] != "2026" {
		t.Fatalf("tags = %v", docs.gotTags)
	}
	if !bytes.Equal(docs.gotRaw, []byte("%PDF-1.4")) {
		t.Fatalf("file bytes not passed through")
	}
}

func TestDocumentUpload_NotMultipart(t *testing.T) {
	h := newTestServer(t, nil, nil, nil).Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/documents", bearerFor(t, "u1"),
		map[string]string{"file": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDocumentList(t *testing.T) {
	docs := &fakeDocuments{metas: []models.DocumentMeta{{ID: "doc-1"}, {ID: "doc-2"}}}
	h := newTestServer(t, nil, nil, docs).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/documents?category=Legal", bearerFor(t, "u1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if docs.gotCategory != "Legal" {
		t.Fatalf("category filter not passed: %q", docs.gotCategory)
	}
	var list []models.DocumentMeta
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 2 {
		t.Fatalf("unexpected list body: %v %s", err, rec.Body.String())
	}
}

func TestDocumentDownload(t *testing.T) {
	docs := &fakeDocuments{download: &services.Download{
		Data:         []byte("plain bytes"),
		MimeType:     "application/pdf",
		OriginalName: "labs.pdf",
	}}
	h := newTestServer(t, nil, nil, docs).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/documents/doc-1/download", bearerFor(t, "u1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if docs.gotDocID != "doc-1" {
		t.Fatalf("doc id = %q", docs.gotDocID)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "labs.pdf") {
		t.Fatalf("content disposition = %q", cd)
	}
	if rec.Body.String() != "plain bytes" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestDocumentDelete(t *testing.T) {
	docs := &fakeDocuments{}
	h := newTestServer(t, nil, nil, docs).Routes()

	rec := doJSON(t, h, http.MethodDelete, "/api/documents/doc-1", bearerFor(t, "u1"), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if docs.gotDocID != "doc-1" {
		t.Fatalf("doc id = %q", docs.gotDocID)
	}
}

func TestDocumentDownload_NotFound(t *testing.T) {
	docs := &fakeDocuments{err: common.ErrorNotFound}
	h := newTestServer(t, nil, nil, docs).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/documents/ghost/download", bearerFor(t, "u1"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
