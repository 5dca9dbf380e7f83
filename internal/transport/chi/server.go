package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/domain/search/request"
	"github.com/kailas-cloud/picdex/internal/domain/search/result"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
	"github.com/kailas-cloud/picdex/internal/imaging"
	logpkg "github.com/kailas-cloud/picdex/internal/logger"
	"github.com/kailas-cloud/picdex/internal/repository/blob"
	healthuc "github.com/kailas-cloud/picdex/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/picdex/internal/usecase/indexer"
	searchuc "github.com/kailas-cloud/picdex/internal/usecase/search"
)

// FilesPrefix is where locally stored originals are served.
const FilesPrefix = "/files"

const (
	formFieldImage   = "image"
	defaultMaxUpload = 20 << 20
	headerTokens     = "X-Embedding-Tokens"
	headerRandomSeed = "X-Random-Seed"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Search  *searchuc.Service
	Indexer *indexeruc.Service
	Health  *healthuc.Service
	// Blobs keeps uploaded originals and signs their URLs.
	Blobs blob.Store
	// Files serves the local blob directory; nil when originals live in S3.
	Files          http.Handler
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// Server is the HTTP API.
type Server struct {
	search        *searchuc.Service
	indexer       *indexeruc.Service
	health        *healthuc.Service
	blobs         blob.Store
	files         http.Handler
	maxUpload     int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(d Deps) *Server {
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Server{
		search:        d.Search,
		indexer:       d.Indexer,
		health:        d.Health,
		blobs:         d.Blobs,
		files:         d.Files,
		maxUpload:     maxUpload,
		logger:        d.Logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/search", func(r chi.Router) {
		r.Get("/text/{prompt}", s.SearchText)
		r.Post("/image", s.SearchImage)
		r.Post("/advanced", s.SearchAdvanced)
		r.Post("/combined", s.SearchCombined)
		r.Get("/random", s.SearchRandom)
	})
	r.Get("/images/scroll", s.Scroll)
	r.Post("/admin/upload", s.Upload)
	if s.files != nil {
		r.Handle(FilesPrefix+"/*", http.StripPrefix(FilesPrefix, s.files))
	}
}

// SearchText handles GET /search/text/{prompt}.
func (s *Server) SearchText(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paging, err := pagingFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	filters, err := filtersFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	exact, err := boolParam(q, paramExact)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	req, err := request.NewText(chi.URLParam(r, "prompt"), space.Space(q.Get(paramBasis)), exact, filters, paging)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Text(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, s.searchResponse(r.Context(), results, paging))
}

// SearchImage handles POST /search/image with a multipart "image" field.
func (s *Server) SearchImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paging, err := pagingFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	filters, err := filtersFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	raw, _, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	img, _, err := imaging.Decode(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidImage, "unsupported or corrupt image")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Image(ctx, img, filters, paging)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, s.searchResponse(r.Context(), results, paging))
}

// SearchAdvanced handles POST /search/advanced.
func (s *Server) SearchAdvanced(w http.ResponseWriter, r *http.Request) {
	var body AdvancedRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req, err := compositeFromBody(&body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Advanced(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, s.searchResponse(r.Context(), results, req.Paging()))
}

// SearchCombined handles POST /search/combined.
func (s *Server) SearchCombined(w http.ResponseWriter, r *http.Request) {
	var body CombinedRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	base, err := compositeFromBody(&body.AdvancedRequest)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	req, err := request.NewCombined(base, body.ExtraPrompt)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Combined(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, s.searchResponse(r.Context(), results, req.Paging()))
}

// SearchRandom handles GET /search/random. Without a seed one is drawn and
// echoed in X-Random-Seed so the page can be reproduced.
func (s *Server) SearchRandom(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paging, err := pagingFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	filters, err := filtersFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	seed := rand.Uint64() //nolint:gosec // not security sensitive
	if v := q.Get(paramSeed); v != "" {
		seed, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "seed must be a non-negative integer")
			return
		}
	}

	results, err := s.search.Random(r.Context(), seed, filters, paging)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set(headerRandomSeed, strconv.FormatUint(seed, 10))
	writeJSON(w, http.StatusOK, s.searchResponse(r.Context(), results, paging))
}

// Scroll handles GET /images/scroll.
func (s *Server) Scroll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count, err := intParam(q, paramCount)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	if count == 0 {
		count = request.DefaultCount
	}
	filters, err := filtersFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	page, err := s.search.Scroll(r.Context(), q.Get(paramCursor), count, filters)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := ScrollResponse{Items: make([]ItemResponse, len(page.Items)), HasMore: page.NextCursor != ""}
	for i, it := range page.Items {
		resp.Items[i] = s.itemResponse(r.Context(), it, nil)
	}
	if page.NextCursor != "" {
		c := page.NextCursor
		resp.NextCursor = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

// Upload handles POST /admin/upload: indexes one image and stores the original.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	overwrite, err := boolParam(q, paramOverwrite)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	skipOCR, err := boolParam(q, paramSkipOCR)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	raw, filename, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	src := indexeruc.Source{Raw: raw, Meta: item.Metadata{SourceURI: filename}}
	if filename != "" {
		src.Meta.Attributes = item.Attributes{item.AttrFilename: item.String(filename)}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	it, err := s.indexer.IndexOne(ctx, src, indexeruc.IndexOptions{
		SkipDuplicateCheck: overwrite,
		SkipOCR:            skipOCR,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.storeOriginal(ctx, it, raw); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, UploadResponse{Item: s.itemResponse(r.Context(), it, nil)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// storeOriginal keeps the uploaded bytes under the item's object name unless
// an identical object is already stored.
func (s *Server) storeOriginal(ctx context.Context, it item.Item, raw []byte) error {
	if s.blobs == nil {
		return nil
	}
	name := blob.ObjectName(it.ID(), it.Format())
	exists, err := s.blobs.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("check original %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if err := s.blobs.Put(ctx, name, raw, "image/"+it.Format()); err != nil {
		return fmt.Errorf("store original %s: %w", name, err)
	}
	return nil
}

// readUpload reads the multipart image field, bounded by the upload limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	f, header, err := r.FormFile(formFieldImage)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", fmt.Errorf("image exceeds %d bytes", s.maxUpload)
		}
		return nil, "", fmt.Errorf("multipart field %q is required", formFieldImage)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(raw) == 0 {
		return nil, "", errors.New("uploaded image is empty")
	}
	return raw, header.Filename, nil
}

func (s *Server) searchResponse(ctx context.Context, results []result.Result, paging request.Paging) SearchResponse {
	items := make([]ItemResponse, len(results))
	for i, r := range results {
		score := r.Score()
		items[i] = s.itemResponse(ctx, r.Item(), &score)
	}
	return SearchResponse{Items: items, Count: paging.Count(), Skip: paging.Skip()}
}

// itemResponse renders it. Items that are not on the local filesystem get
// their URL from the blob store, which presigns it for S3.
func (s *Server) itemResponse(ctx context.Context, it item.Item, score *float64) ItemResponse {
	resp := ItemResponse{
		ID:          it.ID(),
		Score:       score,
		URL:         it.SourceURI(),
		Format:      it.Format(),
		Width:       it.Width(),
		Height:      it.Height(),
		AspectRatio: it.AspectRatio(),
		CreatedAt:   it.CreatedAt(),
		Tags:        it.Tags(),
	}
	if text, ok := it.OCRText(); ok {
		resp.OCRText = &text
	}
	if attrs := it.Attributes(); len(attrs) > 0 {
		resp.Attributes = make(map[string]any, len(attrs))
		for k, v := range attrs {
			if n, ok := v.Number(); ok {
				resp.Attributes[k] = n
				continue
			}
			resp.Attributes[k] = v.Str()
		}
	}

	if !it.IsLocal() && s.blobs != nil {
		url, err := s.blobs.URL(ctx, blob.ObjectName(it.ID(), it.Format()))
		if err != nil {
			logpkg.FromContext(ctx, s.logger).Warn("Cannot resolve item URL", zap.String("id", it.ID()), zap.Error(err))
		} else {
			resp.URL = url
		}
	}
	return resp
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Calls() > 0 {
		w.Header().Set(headerTokens, strconv.Itoa(usage.TotalTokens()))
	}
}
