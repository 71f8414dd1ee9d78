package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/request"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/arxivsearch/internal/usecase/health"
)

// maxBodyBytes bounds request bodies; user_text is capped far below this.
const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// searcher runs the search pipelines (ISP).
type searcher interface {
	Similar(ctx context.Context, req request.Similarity) (result.Response, error)
	List(ctx context.Context, req request.Listing) (result.Response, error)
}

// providerLister exposes the registered provider specs.
type providerLister interface {
	Specs() []provider.Spec
}

// healthChecker aggregates component health.
type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Limits bounds and defaults the pagination and k parameters.
type Limits struct {
	DefaultK     int
	MaxK         int
	DefaultLimit int
	MaxLimit     int
}

func (l Limits) withDefaults() Limits {
	if l.DefaultK <= 0 {
		l.DefaultK = 15
	}
	if l.MaxK <= 0 {
		l.MaxK = 100
	}
	if l.DefaultLimit <= 0 {
		l.DefaultLimit = 20
	}
	if l.MaxLimit <= 0 {
		l.MaxLimit = 100
	}
	return l
}

// Server serves the papers API.
type Server struct {
	search        searcher
	providers     providerLister
	health        healthChecker
	limits        Limits
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search searcher,
	providers providerLister,
	health healthChecker,
	limits Limits,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:    search,
		providers: providers,
		health:    health,
		limits:    limits.withDefaults(),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		notFoundHandler,
		sentinelHandler(domain.ErrProvider, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrIndex, http.StatusServiceUnavailable, codeIndexUnavailable),
	}
	return s
}

// ListPapers handles GET /api/v1/papers.
func (s *Server) ListPapers(w http.ResponseWriter, r *http.Request) {
	params, err := bindListParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	limit := s.limits.DefaultLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit <= 0 || limit > s.limits.MaxLimit {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", s.limits.MaxLimit))
		return
	}
	skip := 0
	if params.Skip != nil {
		skip = *params.Skip
	}

	filters, err := filterInputs(params.Years, params.Categories, params.CategoriesOperator)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	req, err := request.NewListing(filters, skip, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.search.List(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseToDTO(resp))
}

// SearchByPaper handles POST /api/v1/papers/vector_search/by_paper.
func (s *Server) SearchByPaper(w http.ResponseWriter, r *http.Request) {
	var body PaperSimilarityRequest
	if !s.decode(w, r, &body) {
		return
	}

	p, filters, k, err := s.similarityInputs(body.similarityFields)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	req, err := request.NewByReference(body.PaperID, p, filters, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.similar(w, r, req)
}

// SearchByText handles POST /api/v1/papers/vector_search/by_text.
func (s *Server) SearchByText(w http.ResponseWriter, r *http.Request) {
	var body TextSimilarityRequest
	if !s.decode(w, r, &body) {
		return
	}

	p, filters, k, err := s.similarityInputs(body.similarityFields)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	req, err := request.NewByText(body.UserText, p, filters, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.similar(w, r, req)
}

func (s *Server) similar(w http.ResponseWriter, r *http.Request, req request.Similarity) {
	resp, err := s.search.Similar(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseToDTO(resp))
}

// ListProviders handles GET /api/v1/providers.
func (s *Server) ListProviders(w http.ResponseWriter, _ *http.Request) {
	specs := s.providers.Specs()
	items := make([]Provider, len(specs))
	for i, spec := range specs {
		items[i] = providerToDTO(spec)
	}
	writeJSON(w, http.StatusOK, ProviderListResponse{Providers: items})
}

// HealthCheck handles GET /health. A degraded embedding provider keeps 200
// because by-paper search does not need it.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads and validates a JSON body. It writes the error reply itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

func (s *Server) similarityInputs(f similarityFields) (provider.ID, request.FilterInputs, int, error) {
	p := provider.Default
	if f.Provider != "" {
		parsed, err := provider.ParseID(f.Provider)
		if err != nil {
			return "", request.FilterInputs{}, 0, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		p = parsed
	}

	k := s.limits.DefaultK
	if f.NumberOfResults != nil {
		k = *f.NumberOfResults
	}
	if k > s.limits.MaxK {
		return "", request.FilterInputs{}, 0,
			fmt.Errorf("%w: number_of_results must be between 1 and %d", domain.ErrValidation, s.limits.MaxK)
	}

	filters, err := filterInputs(f.Years, f.Categories, &f.CategoriesOperator)
	if err != nil {
		return "", request.FilterInputs{}, 0, err
	}
	return p, filters, k, nil
}

// listParams are the query parameters of GET /api/v1/papers.
type listParams struct {
	Years              []string
	Categories         []string
	CategoriesOperator *string
	Limit              *int
	Skip               *int
}

// bindListParams binds comma-separated form parameters the way generated handlers do.
func bindListParams(q url.Values) (listParams, error) {
	var p listParams
	binds := []struct {
		name string
		dst  any
	}{
		{"years", &p.Years},
		{"categories", &p.Categories},
		{"categories_operator", &p.CategoriesOperator},
		{"limit", &p.Limit},
		{"skip", &p.Skip},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", false, false, b.name, q, b.dst); err != nil {
			return listParams{}, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return p, nil
}

func filterInputs(years, categories []string, op *string) (request.FilterInputs, error) {
	in := request.FilterInputs{Years: trimAll(years), Categories: trimAll(categories)}
	if op != nil && strings.TrimSpace(*op) != "" {
		parsed, err := filter.ParseCategoriesOperator(*op)
		if err != nil {
			return request.FilterInputs{}, err //nolint:wrapcheck // already a validation error
		}
		in.Operator = parsed
	}
	return in, nil
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrProvider,
		domain.ErrIndex,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler echoes validation messages; they only describe client input.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	msg := err.Error()
	if i := strings.Index(msg, domain.ErrValidation.Error()); i > 0 {
		msg = msg[i:]
	}
	writeError(w, http.StatusBadRequest, codeValidationFailed, msg)
	return true
}

// notFoundHandler names the missing paper or vector.
func notFoundHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrNotFound) {
		return false
	}
	var nfe *domain.NotFoundError
	if errors.As(err, &nfe) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"code":     codeNotFound,
			"message":  nfe.Error(),
			"kind":     nfe.Kind,
			"paper_id": nfe.PaperID,
		})
		return true
	}
	writeError(w, http.StatusNotFound, codeNotFound, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
