package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped"
	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/notify"
)

const (
	uploadTimeLayout = "20060102_150405"
	fileHashLen      = 16

	// multipartMemory is the in-memory share of a multipart body; the rest spills to temp files.
	multipartMemory = 32 << 20
)

// Deps are the collaborators of a Server. Nil Mailer and Webhook disable those side effects.
type Deps struct {
	Store   Store
	Usage   Usage
	Mailer  *notify.Mailer
	Webhook *notify.Webhook
	Cache   *wrapped.CorpusCache
	Metrics *Metrics
	Log     logrus.FieldLogger
	Now     func() time.Time
}

// Server is the relay HTTP backend.
type Server struct {
	cfg     Config
	store   Store
	usage   Usage
	mailer  *notify.Mailer
	webhook *notify.Webhook
	cache   *wrapped.CorpusCache
	metrics *Metrics
	log     logrus.FieldLogger
	now     func() time.Time

	router chi.Router
}

func NewServer(cfg Config, deps Deps) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewServer: %w", err)
	}
	if deps.Store == nil {
		return nil, errors.New("NewServer: store is nil")
	}
	s := &Server{
		cfg:     cfg,
		store:   deps.Store,
		usage:   deps.Usage,
		mailer:  deps.Mailer,
		webhook: deps.Webhook,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		log:     deps.Log,
		now:     deps.Now,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.cache == nil {
		cache, err := wrapped.NewCorpusCache(cfg.CacheSize, wrapped.BuildOptions{}, wrapped.DefaultReportOptions())
		if err != nil {
			return nil, fmt.Errorf("NewServer: %w", err)
		}
		s.cache = cache
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Archive-Hash", "X-Request-Id"},
	}))

	r.Get("/", s.handleRoot)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/upload", s.handleUpload)
		api.Get("/stats", s.handleStats)
		api.Post("/report", s.handleReport)
		api.Get("/schema", s.handleSchema)
	})
	return r
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on cfg.Port until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ListenAndServe: shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
		}).Debug("request")
	})
}

// UploadResponse is the body of a successful POST /api/upload.
type UploadResponse struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	UploadID  string          `json:"upload_id"`
	FileHash  string          `json:"file_hash"`
	EmailSent bool            `json:"email_sent"`
	Data      json.RawMessage `json:"data"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	TotalUploads  int     `json:"total_uploads"`
	StorageUsedMB float64 `json:"storage_used_mb"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// StoredName is the storage file name of an archive uploaded at t with content hash fileHash.
func StoredName(t time.Time, fileHash string) string {
	return fmt.Sprintf("conversations_%s_%s.json", t.Format(uploadTimeLayout), fileHash)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "GPT Wrapped relay", "status": "running"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithField("request_id", middleware.GetReqID(r.Context()))

	data, status, err := s.readArchiveBody(w, r)
	if err != nil {
		if status == http.StatusRequestEntityTooLarge {
			s.metrics.uploads.WithLabelValues("too_large").Inc()
		} else {
			s.metrics.uploads.WithLabelValues("invalid").Inc()
		}
		writeJSON(w, status, detailResponse{Detail: err.Error()})
		return
	}
	if !json.Valid(data) {
		s.metrics.uploads.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: "Invalid JSON file"})
		return
	}

	now := s.now()
	fileHash := wrapped.HashArchive(data)[:fileHashLen]
	uploadTime := now.Format(uploadTimeLayout)
	name := StoredName(now, fileHash)
	uploadID := uuid.NewString()
	log = log.WithFields(logrus.Fields{"upload_id": uploadID, "file_hash": fileHash, "bytes": len(data)})

	if err := s.store.Put(r.Context(), name, data); err != nil {
		s.metrics.uploads.WithLabelValues("store_error").Inc()
		log.WithError(err).Error("store upload")
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "Upload failed"})
		return
	}
	s.metrics.uploads.WithLabelValues("stored").Inc()
	s.metrics.uploadBytes.Observe(float64(len(data)))

	emailSent, err := s.mailer.Forward(r.Context(), notify.Forwarded{
		Filename:   name,
		SHA256:     fileHash,
		UploadTime: uploadTime,
		ByteSize:   int64(len(data)),
		Data:       data,
	})
	switch {
	case err != nil:
		s.metrics.forwards.WithLabelValues("failed").Inc()
		log.WithError(err).Warn("forward upload to admin")
	case emailSent:
		s.metrics.forwards.WithLabelValues("sent").Inc()
	default:
		s.metrics.forwards.WithLabelValues("disabled").Inc()
	}

	s.webhook.NotifyAsync(notify.Upload{ByteSize: int64(len(data)), Timestamp: now})

	log.WithField("email_sent", emailSent).Info("upload stored")
	writeJSON(w, http.StatusOK, UploadResponse{
		Status:    "success",
		Message:   "File received and forwarded to admin",
		UploadID:  uploadID,
		FileHash:  fileHash,
		EmailSent: emailSent,
		Data:      data,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		writeJSON(w, http.StatusOK, StatsResponse{})
		return
	}
	files, size, err := s.usage.Usage()
	if err != nil {
		s.log.WithError(err).Error("storage usage")
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "Stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		TotalUploads:  files,
		StorageUsedMB: math.Round(float64(size)/(1024*1024)*100) / 100,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithField("request_id", middleware.GetReqID(r.Context()))

	q, err := queryFromRequest(r)
	if err != nil {
		s.metrics.reports.WithLabelValues("bad_query").Inc()
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: err.Error()})
		return
	}

	data, status, err := s.readArchiveBody(w, r)
	if err != nil {
		s.metrics.reports.WithLabelValues("malformed").Inc()
		writeJSON(w, status, detailResponse{Detail: err.Error()})
		return
	}

	hash, _, err := s.cache.Load(r.Context(), data)
	var report wrapped.Report
	if err == nil {
		w.Header().Set("X-Archive-Hash", hash)
		report, err = s.cache.Report(hash, q)
	}
	switch {
	case err == nil:
	case errors.Is(err, wrapped.ErrMalformedArchive):
		s.metrics.reports.WithLabelValues("malformed").Inc()
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: "Invalid JSON file"})
		return
	case errors.Is(err, wrapped.ErrEmptyCorpus):
		s.metrics.reports.WithLabelValues("empty_corpus").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "empty_corpus"})
		return
	case errors.Is(err, wrapped.ErrEmptyFilteredRange):
		s.metrics.reports.WithLabelValues("empty_range").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "empty_range"})
		return
	default:
		log.WithError(err).Error("build report")
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "Report failed"})
		return
	}
	s.metrics.reports.WithLabelValues("ok").Inc()
	log.WithFields(logrus.Fields{"archive_hash": hash, "messages": report.Counts.Messages}).Info("report built")

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, wrapped.RenderMarkdown(report))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := wrapped.ReportSchema()
	if err != nil {
		s.log.WithError(err).Error("report schema")
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "Schema unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// readArchiveBody returns the uploaded archive bytes from a multipart "file" field or, for any
// other content type, the raw body.
func (s *Server) readArchiveBody(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyErrorStatus(err), fmt.Errorf("invalid multipart body: %w", err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, http.StatusBadRequest, errors.New("missing file field")
		}
		defer f.Close()
		src = f
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, bodyErrorStatus(err), fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, http.StatusBadRequest, errors.New("empty file")
	}
	return data, http.StatusOK, nil
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func queryFromRequest(r *http.Request) (wrapped.Query, error) {
	v := r.URL.Query()
	q := wrapped.Query{
		From:        v.Get("from"),
		To:          v.Get("to"),
		Keyword:     v.Get("q"),
		TitleFilter: v.Get("title"),
	}
	if top := v.Get("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil {
			return wrapped.Query{}, fmt.Errorf("top: %w", err)
		}
		q.TopN = n
	}
	if err := q.Validate(); err != nil {
		return wrapped.Query{}, err
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
