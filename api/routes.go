package api

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cortado/engine"
	"cortado/models"
	"cortado/orchestrator"
	"cortado/planner"
)

// defaultMaxUpload bounds a single uploaded source.
const defaultMaxUpload = 4 << 30

// defaultListLimit is the number of history rows returned by GET /jobs.
const defaultListLimit = 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Post("/jobs", startJobHandler(cfg))
	r.Get("/jobs", listJobsHandler(cfg))
	r.Get("/jobs/current", currentJobHandler(cfg))
	r.Get("/jobs/last", lastJobHandler(cfg))
	r.Get("/artifacts/{name}", artifactHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func startJobHandler(cfg ServerConfig) http.HandlerFunc {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	defaultSegment := cfg.DefaultSegmentLength
	if defaultSegment <= 0 {
		defaultSegment = planner.DefaultSegmentLength
	}

	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error(), "BAD_REQUEST")
			return
		}
		defer r.MultipartForm.RemoveAll()

		segment := defaultSegment
		if v := r.FormValue("segment_length"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "segment_length must be a positive integer", "BAD_REQUEST")
				return
			}
			segment = n
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "file is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, file); err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read upload", "BAD_REQUEST")
			return
		}

		source, err := models.NewVideoSource(filepath.Base(header.Filename), buf.Bytes())
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
			return
		}

		stream, err := cfg.Jobs.StartJob(r.Context(), source, segment)
		if err != nil {
			writeStartError(w, err)
			return
		}

		first, ok := <-stream
		if !ok {
			WriteError(w, http.StatusInternalServerError, "job ended without a state", "INTERNAL_ERROR")
			return
		}
		go orchestrator.Wait(stream)

		WriteJSON(w, http.StatusAccepted, StartJobResponse{
			JobID:     first.JobID,
			StatusURL: "/jobs/current",
		})
	}
}

func writeStartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrBusy):
		WriteError(w, http.StatusConflict, err.Error(), "BUSY")
	case errors.Is(err, planner.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, engine.ErrEngineLoad):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "ENGINE_UNAVAILABLE")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func currentJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, JobStateToResponse(cfg.Jobs.Current()))
	}
}

func lastJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, JobStateToResponse(cfg.Jobs.Last()))
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		if cfg.History == nil {
			WriteJSON(w, http.StatusOK, JobsResponse{Jobs: nil})
			return
		}

		jobs, err := cfg.History.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, JobsResponse{Jobs: jobs})
	}
}

// artifactHandler serves a clip of the most recent finished job by its
// clip filename or its download name.
func artifactHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		last := cfg.Jobs.Last()

		if last.Phase != models.PhaseDone {
			WriteError(w, http.StatusNotFound, "no finished job", "NOT_FOUND")
			return
		}

		for _, a := range last.Artifacts {
			if a.SourceFilename != name && a.DownloadName != name {
				continue
			}
			contentType := mime.TypeByExtension(filepath.Ext(a.SourceFilename))
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.DownloadName}))
			w.Header().Set("Content-Length", strconv.Itoa(len(a.Payload)))
			w.WriteHeader(http.StatusOK)
			w.Write(a.Payload)
			return
		}

		WriteError(w, http.StatusNotFound, "artifact not found: "+name, "NOT_FOUND")
	}
}
