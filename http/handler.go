package http

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	astrocloud "github.com/jbcurtin/astro-cloud"
)

// FITSContentType is sent for .fits, .fit and .fts objects.
const FITSContentType = "application/fits"

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"gte=0"`
}

type HandlerConfig struct {
	// Verifier authenticates every request. Nil serves objects publicly.
	Verifier RequestVerifier
	CORS     CORSConfig
}

// Handler serves objects over GET and HEAD with byte range support.
type Handler struct {
	config  HandlerConfig
	storage astrocloud.ObjectStorage
}

// NewHandler creates a new Handler with the given configuration and storage.
func NewHandler(config *HandlerConfig, storage astrocloud.ObjectStorage) *Handler {
	return &Handler{
		config:  *config,
		storage: storage,
	}
}

// Router returns an http.Handler serving GET / as a JSON listing and
// GET or HEAD /<path> as object content.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.Verifier))
		r.Get("/", h.handleList)
		r.Get("/*", h.handleGet)
		r.Head("/*", h.handleGet)
	})

	return r
}

type listResponse struct {
	Objects []astrocloud.ObjectInfo `json:"objects"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	objects, err := h.storage.List(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, listResponse{Objects: objects})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	objectPath := astrocloud.ObjectPathFromURL(r.URL.Path)

	if !astrocloud.IsValidObjectPath(objectPath) {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	info, content, err := h.storage.Open(r.Context(), objectPath)
	if err != nil {
		if errors.Is(err, astrocloud.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Object not found")
		} else {
			HandleError(w, err)
		}
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", contentType(objectPath))
	if strings.EqualFold(r.Header.Get(astrocloud.HeaderRequestPayer), "requester") {
		w.Header().Set("x-amz-request-charged", "requester")
	}

	http.ServeContent(w, r, objectPath, info.ModTime, content)
}

func contentType(objectPath string) string {
	ext := strings.ToLower(path.Ext(objectPath))
	switch ext {
	case ".fits", ".fit", ".fts":
		return FITSContentType
	}

	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
