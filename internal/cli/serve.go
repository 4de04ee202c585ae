package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/watermarker/pkg/errors"
	"github.com/matzehuels/watermarker/pkg/io"
	"github.com/matzehuels/watermarker/pkg/pipeline"
)

// requestIDHeader carries the per-request ID on every response.
const requestIDHeader = "X-Request-ID"

// shutdownTimeout bounds graceful shutdown after an interrupt.
const shutdownTimeout = 5 * time.Second

// serveCommand creates the serve command running the HTTP avatar service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve watermarked avatars over HTTP",
		Long: `Serve watermarked avatars over HTTP.

  GET /avatar?text=Hello&url=https://example.com/cat.jpg

Optional query parameters: wrap, width, height, radius, padding, font,
font_size and color. The response is a PNG. GET /healthz reports liveness.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(noCache, timeout)
			if err != nil {
				return err
			}
			defer runner.Close()
			runner.InMemory = true

			srv := &http.Server{
				Addr:              addr,
				Handler:           newServer(runner, loggerFromContext(cmd.Context())).routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			printInfo(cmd.OutOrStdout(), "Listening on %s", addr)
			return listenAndServe(cmd.Context(), srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "download timeout per request (0 for none)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the font lookup cache")

	return cmd
}

// listenAndServe runs srv until it fails or ctx is done, then shuts it down
// gracefully. It returns ctx.Err() after an interrupt.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// =============================================================================
// Server
// =============================================================================

type server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

func newServer(runner *pipeline.Runner, logger *log.Logger) *server {
	return &server{runner: runner, logger: logger}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/avatar", s.handleAvatar)
	return r
}

// requestID assigns every request an ID, taken from the X-Request-ID header
// when present, echoes it on the response and attaches a logger carrying it
// to the request context.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := withLogger(r.Context(), s.logger.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		loggerFromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleAvatar(w http.ResponseWriter, r *http.Request) {
	opts, err := optionsFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.runner.Render(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := io.WritePNG(result.Image, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", `inline; filename="`+result.Name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// optionsFromQuery builds pipeline options from query parameters. Absent
// parameters keep their defaults; malformed numbers are INVALID_INPUT.
func optionsFromQuery(q url.Values) (pipeline.Options, error) {
	opts := pipeline.NewOptions(q.Get("text"), q.Get("url"))

	if v := q.Get("font"); v != "" {
		opts.Font = v
	}
	if v := q.Get("color"); v != "" {
		opts.Color = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
	}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s must be an integer", p.name)
			}
			*p.dst = n
		}
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"radius", &opts.Radius},
		{"padding", &opts.Padding},
		{"font_size", &opts.FontSize},
	}
	for _, p := range floats {
		if v := q.Get(p.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s must be a number", p.name)
			}
			*p.dst = f
		}
	}

	if v := q.Get("wrap"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "wrap must be a boolean")
		}
		opts.WordWrap = b
	}

	return opts, nil
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error struct {
		Code      errors.Code `json:"code"`
		Message   string      `json:"message"`
		RequestID string      `json:"request_id,omitempty"`
	} `json:"error"`
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)

	logger := loggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("avatar failed", "code", code, "error", err)
	} else {
		logger.Debug("avatar rejected", "code", code, "error", err)
	}

	var body errorBody
	body.Error.Code = code
	body.Error.Message = errors.UserMessage(err)
	body.Error.RequestID = w.Header().Get(requestIDHeader)
	writeJSON(w, status, body)
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidURL,
		errors.ErrCodeInvalidGeometry, errors.ErrCodeInvalidColor:
		return http.StatusBadRequest
	case errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeDecode:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
