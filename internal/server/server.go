// Package server provides the HTTP handlers for browsing an archive.
package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/meigma/srcview"
	"github.com/meigma/srcview/internal/logging"
	"github.com/meigma/srcview/internal/metrics"
)

// DefaultPubPrefix is the path under which archive paths are addressed
// directly, e.g. /pub/src/gui/menu.c.
const DefaultPubPrefix = "/pub/"

// Server serves listings and member extraction for one archive.
type Server struct {
	archive   *srcview.Archive
	render    srcview.RenderOptions
	pubPrefix string
	logger    *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPubPrefix sets the path prefix for path-style requests. It must
// start and end with a slash.
func WithPubPrefix(prefix string) Option {
	return func(s *Server) {
		s.pubPrefix = prefix
	}
}

// WithRenderOptions sets the listing page options. ScriptURL doubles as
// the path of query-style requests.
func WithRenderOptions(opts srcview.RenderOptions) Option {
	return func(s *Server) {
		s.render = opts
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server for a.
func New(a *srcview.Archive, opts ...Option) *Server {
	s := &Server{
		archive:   a,
		pubPrefix: DefaultPubPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.render.ScriptURL == "" {
		s.render.ScriptURL = srcview.DefaultScriptURL
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Handler returns the HTTP handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET "+s.pubPrefix+"{path...}", s.handlePub)
	mux.HandleFunc("GET "+s.render.ScriptURL, s.handleScript)
	return logging.Middleware(s.logger)(metrics.Middleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// handlePub serves {pub}{term}?by=KEY. Links in a listing without a by
// parameter are relative to the page.
func (s *Server) handlePub(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, r.PathValue("path"), r.URL.Query().Get("by"), true)
}

// handleScript serves {script}?by=KEY&get=TERM.
func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.serve(w, r, q.Get("get"), q.Get("by"), false)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, term, by string, relative bool) {
	if IsListing(term) {
		s.list(w, r, term, by, relative)
		return
	}
	s.extract(w, r, term)
}

// IsListing reports whether term names a directory listing: the archive
// root ("") or a path with a trailing slash.
func IsListing(term string) bool {
	return term == "" || strings.HasSuffix(term, "/")
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, term, by string, relative bool) {
	log := logging.WithContext(r.Context())
	key, ok := srcview.ParseSortKey(by)
	if !ok {
		log.Debug("unknown sort key", zap.String("by", by))
	}

	l := s.archive.List(r.Context(), term, key)
	opts := s.render
	// An explicit sort key, even "name", keeps links on the script.
	opts.RelativeLinks = relative && by == ""

	var buf bytes.Buffer
	if err := srcview.Render(&buf, l, opts); err != nil {
		log.Error("render listing", zap.String("term", l.Term), zap.Error(err))
		sendError(w, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request, member string) {
	log := logging.WithContext(r.Context())
	rc, err := s.archive.Open(r.Context(), member)
	if err != nil {
		switch {
		case errors.Is(err, srcview.ErrInvalidPath):
			metrics.RecordExtraction(metrics.ExtractInvalid, 0)
			sendError(w, http.StatusBadRequest)
		case errors.Is(err, srcview.ErrNotFound):
			metrics.RecordExtraction(metrics.ExtractNotFound, 0)
			sendError(w, http.StatusNotFound)
		default:
			log.Error("open member", zap.String("member", member), zap.Error(err))
			metrics.RecordExtraction(metrics.ExtractAborted, 0)
			sendError(w, http.StatusInternalServerError)
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", srcview.ContentType(member))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	n, err := io.Copy(w, rc)
	if err != nil {
		// Headers are gone; the client sees a short body.
		if !errors.Is(err, context.Canceled) {
			log.Warn("stream member", zap.String("member", member), zap.Int64("bytes", n), zap.Error(err))
		}
		metrics.RecordExtraction(metrics.ExtractAborted, n)
		return
	}
	metrics.RecordExtraction(metrics.ExtractOK, n)
}

func sendError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}
