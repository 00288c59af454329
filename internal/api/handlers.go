package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ocrcache/internal/fileutil"
	"ocrcache/internal/jobs"
	"ocrcache/internal/logging"
	"ocrcache/internal/recognition"
	"ocrcache/internal/resultcache"
)

const (
	defaultJobLimit = 50
	defaultStatDays = 7
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"cache":  "disabled",
		"jobs":   "disabled",
		"engine": s.defaults.Engine,
	}
	if s.deps.Cache.Enabled() {
		services["cache"] = "enabled"
	}
	if s.deps.Jobs != nil {
		services["jobs"] = "enabled"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(timestampFormat),
		Version:   s.deps.Version,
		Services:  services,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runner == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "recognition is not configured")
		return
	}
	settings, useCache, err := s.parseSettings(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tmpDir, err := os.MkdirTemp("", "ocrcache-upload-*")
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "cannot stage upload")
		return
	}
	defer os.RemoveAll(tmpDir)

	filename, path, status, err := s.receiveUpload(r, tmpDir)
	if err != nil {
		s.writeError(w, r, status, err.Error())
		return
	}

	requestID, _ := logging.RequestIDFromContext(r.Context())
	out, err := s.deps.Runner.Process(r.Context(), recognition.Request{
		Filename:  filename,
		Path:      path,
		Settings:  settings,
		UseCache:  useCache,
		RequestID: requestID,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, recognition.ErrUnsupportedInput), errors.Is(err, recognition.ErrUnknownEngine),
			errors.Is(err, recognition.ErrInvalidSettings):
			status = http.StatusBadRequest
		case errors.Is(err, recognition.ErrFileTooLarge):
			status = http.StatusRequestEntityTooLarge
		default:
			s.logger.Error("recognition failed",
				logging.String(logging.FieldEventType, "recognition_failed"),
				logging.String(logging.FieldCorrelationID, requestID),
				logging.Error(err))
		}
		s.writeError(w, r, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newOCRResponse(out))
}

// receiveUpload streams the "file" part to dir. The returned status is the
// HTTP code to use when err is non-nil.
func (s *Server) receiveUpload(r *http.Request, dir string) (string, string, int, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return "", "", http.StatusBadRequest, errors.New("expected multipart/form-data upload")
	}
	reader, err := r.MultipartReader()
	if err != nil {
		return "", "", http.StatusBadRequest, err
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return "", "", http.StatusBadRequest, errors.New("missing file field")
		}
		if err != nil {
			return "", "", http.StatusBadRequest, err
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		name := fileutil.SanitizeFilename(part.FileName())
		path := filepath.Join(dir, name)
		_, err = fileutil.CopyToFileLimited(path, part, s.maxUpload)
		_ = part.Close()
		if errors.Is(err, fileutil.ErrTooLarge) {
			return "", "", http.StatusRequestEntityTooLarge, err
		}
		if err != nil {
			return "", "", http.StatusBadRequest, err
		}
		return part.FileName(), path, 0, nil
	}
}

// parseSettings applies query overrides to the configured defaults.
func (s *Server) parseSettings(r *http.Request) (recognition.Settings, bool, error) {
	q := r.URL.Query()
	settings := s.defaults
	useCache := true

	if v := strings.TrimSpace(q.Get("lang")); v != "" {
		settings.Language = v
	}
	if v := strings.TrimSpace(q.Get("engine")); v != "" {
		settings.Engine = v
	}
	bools := []struct {
		name string
		dst  *bool
	}{
		{"use_angle_cls", &settings.UseAngleCls},
		{"detect_tables", &settings.DetectTables},
		{"use_cache", &useCache},
	}
	for _, b := range bools {
		raw := q.Get(b.name)
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return settings, false, errors.New(b.name + " must be a boolean")
		}
		*b.dst = parsed
	}
	if raw := q.Get("table_conf_threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return settings, false, errors.New("table_conf_threshold must be a number")
		}
		settings.TableConfThreshold = v
	}
	if raw := q.Get("dpi"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return settings, false, errors.New("dpi must be an integer")
		}
		settings.DPI = v
	}
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return settings, false, err
	}
	return settings, useCache, nil
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Cache.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.deps.Cache.Clear()
	writeJSON(w, http.StatusOK, ClearResponse{Success: true, Message: "Cache cleared"})
}

func (s *Server) handleCacheEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.deps.Cache.List()
	if entries == nil {
		entries = []resultcache.EntryInfo{}
	}
	writeJSON(w, http.StatusOK, CacheEntriesResponse{Entries: entries})
}

func (s *Server) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.deps.Cache.Delete(key); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: key})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "job history is disabled")
		return
	}
	limit := defaultJobLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}
	list, err := s.deps.Jobs.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []jobs.Job{}
	}
	writeJSON(w, http.StatusOK, JobsResponse{Jobs: list})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "job history is disabled")
		return
	}
	job, err := s.deps.Jobs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "job history is disabled")
		return
	}
	days := defaultStatDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = v
	}
	stats, err := s.deps.Jobs.Statistics(r.Context(), days)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
