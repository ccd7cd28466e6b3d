// Package httpapi exposes the REST surface: auth, directive, emergency card,
// and document endpoints. Handlers translate between HTTP and the service
// layer; business rules live in the services.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/willtrail/willtrail/internal/logging"
	"github.com/willtrail/willtrail/internal/server/auth"
	"github.com/willtrail/willtrail/internal/server/card"
	"github.com/willtrail/willtrail/internal/server/config"
	"github.com/willtrail/willtrail/internal/server/models"
	"github.com/willtrail/willtrail/internal/server/services"
)

// Version is stamped via -ldflags at build time.
var Version = "dev"

const shutdownTimeout = 5 * time.Second

// UserProvider is the slice of UserService the handlers need.
type UserProvider interface {
	Register(ctx context.Context, name, email, password string) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// DirectiveProvider is the slice of DirectiveService the handlers need.
type DirectiveProvider interface {
	Get(ctx context.Context, userID string) (*models.Directive, error)
	Update(ctx context.Context, userID string, upd *models.DirectiveUpdate) (*models.Directive, error)
	IssueCardToken(ctx context.Context, userID string) (*services.CardToken, error)
	ResolveCard(ctx context.Context, token string) (*card.View, error)
}

// DocumentProvider is the slice of DocumentService the handlers need.
type DocumentProvider interface {
	Upload(ctx context.Context, userID string, raw []byte, originalName, mimeType, category, notes string, tags []string) (*models.DocumentMeta, error)
	List(ctx context.Context, userID, category string) ([]models.DocumentMeta, error)
	Download(ctx context.Context, userID, docID string) (*services.Download, error)
	Delete(ctx context.Context, userID, docID string) error
}

type Server struct {
	cfg        *config.Config
	logger     logging.Logger
	users      UserProvider
	directives DirectiveProvider
	documents  DocumentProvider
	server     *http.Server
}

func NewServer(cfg *config.Config, logger logging.Logger, users UserProvider, directives DirectiveProvider, documents DocumentProvider) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger.With("module", "httpapi"),
		users:      users,
		directives: directives,
		documents:  documents,
	}
}

// Routes builds the full handler tree. Separate from Run so tests can drive
// it through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	authed := auth.Middleware([]byte(s.cfg.SecretKey))

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/emergency-card/{token}", s.handleEmergencyCard)

	mux.Handle("GET /api/auth/me", authed(http.HandlerFunc(s.handleMe)))
	mux.Handle("GET /api/directive", authed(http.HandlerFunc(s.handleDirectiveGet)))
	mux.Handle("PUT /api/directive", authed(http.HandlerFunc(s.handleDirectiveUpdate)))
	mux.Handle("POST /api/directive/card-token", authed(http.HandlerFunc(s.handleIssueCardToken)))
	mux.Handle("POST /api/documents", authed(http.HandlerFunc(s.handleDocumentUpload)))
	mux.Handle("GET /api/documents", authed(http.HandlerFunc(s.handleDocumentList)))
	mux.Handle("GET /api/documents/{id}/download", authed(http.HandlerFunc(s.handleDocumentDownload)))
	mux.Handle("DELETE /api/documents/{id}", authed(http.HandlerFunc(s.handleDocumentDelete)))

	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.cfg.EndpointAddr,
		Handler: s.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.cfg.EndpointAddr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
