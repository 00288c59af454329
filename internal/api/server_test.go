package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ocrcache/internal/api"
	"ocrcache/internal/config"
	"ocrcache/internal/jobs"
	"ocrcache/internal/keylock"
	"ocrcache/internal/recognition"
	"ocrcache/internal/resultcache"
	"ocrcache/internal/testsupport"
)

type fixture struct {
	cfg     *config.Config
	cache   *resultcache.Cache
	handler http.Handler
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cache := testsupport.NewCache(t, cfg)
	var store *jobs.Store
	var recorder recognition.JobRecorder
	if cfg.Jobs.Enabled {
		store = testsupport.MustOpenJobs(t, cfg)
		recorder = store
	}
	runner := recognition.NewRunner(cache, keylock.New(keylock.Options{}, nil), recorder,
		recognition.RunnerOptions{MaxFileSize: cfg.MaxFileSizeBytes()}, nil)
	srv := api.NewServer(cfg, api.Dependencies{
		Cache:   cache,
		Runner:  runner,
		Jobs:    store,
		Version: "test",
	}, nil)
	return &fixture{cfg: cfg, cache: cache, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, testsupport.WithAPIToken("secret"))
	w := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[api.HealthResponse](t, w)
	if resp.Status != "healthy" || resp.Version != "test" {
		t.Fatalf("unexpected health %+v", resp)
	}
	if resp.Services["cache"] != "enabled" || resp.Services["jobs"] != "enabled" || resp.Services["engine"] != "text" {
		t.Fatalf("unexpected services %v", resp.Services)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request ID")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	if got := f.do(t, req).Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected echoed request ID, got %q", got)
	}
}

func TestProcessCachesAndRecordsJobs(t *testing.T) {
	f := newFixture(t)
	content := []byte("Invoice 7\nTotal 12.50\fSecond page\n")

	first := f.do(t, uploadRequest(t, "/ocr/process?lang=en", "invoice.txt", content))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	one := decode[api.OCRResponse](t, first)
	if !one.Success || one.Cached || one.TotalPages != 2 || one.TotalTextBlocks != 3 {
		t.Fatalf("unexpected first response %+v", one)
	}
	if one.Results[1].Number != 2 || one.Results[1].Text != "Second page" {
		t.Fatalf("unexpected pages %+v", one.Results)
	}

	second := decode[api.OCRResponse](t, f.do(t, uploadRequest(t, "/ocr/process?lang=en", "renamed.txt", content)))
	if !second.Cached || second.CacheKey != one.CacheKey {
		t.Fatalf("expected cache hit with same key, got %+v", second)
	}

	other := decode[api.OCRResponse](t, f.do(t, uploadRequest(t, "/ocr/process?lang=de", "invoice.txt", content)))
	if other.Cached || other.CacheKey == one.CacheKey {
		t.Fatalf("expected different settings to miss, got %+v", other)
	}

	stats := decode[resultcache.Stats](t, f.do(t, httptest.NewRequest(http.MethodGet, "/cache/stats", nil)))
	if !stats.Enabled || stats.Items != 2 || stats.MaxSize != 100 {
		t.Fatalf("unexpected cache stats %+v", stats)
	}

	list := decode[api.JobsResponse](t, f.do(t, httptest.NewRequest(http.MethodGet, "/jobs?limit=10", nil)))
	if len(list.Jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(list.Jobs))
	}

	job := decode[jobs.Job](t, f.do(t, httptest.NewRequest(http.MethodGet, "/jobs/"+second.JobID, nil)))
	if job.Status != jobs.StatusCompleted || !job.Cached || job.Filename != "renamed.txt" {
		t.Fatalf("unexpected job %+v", job)
	}

	jobStats := decode[jobs.Statistics](t, f.do(t, httptest.NewRequest(http.MethodGet, "/jobs/stats?days=1", nil)))
	if jobStats.TotalJobs != 3 || jobStats.CachedJobs != 1 || jobStats.SuccessfulJobs != 3 {
		t.Fatalf("unexpected job stats %+v", jobStats)
	}
}

func TestProcessBypassCache(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 2; i++ {
		resp := decode[api.OCRResponse](t, f.do(t, uploadRequest(t, "/ocr/process?use_cache=false", "a.txt", []byte("x"))))
		if resp.Cached {
			t.Fatal("expected bypass to compute")
		}
	}
	if stats := f.cache.Stats(); stats.Items != 0 {
		t.Fatalf("expected empty cache, got %d", stats.Items)
	}
}

func TestProcessRejectsBadRequests(t *testing.T) {
	f := newFixture(t, testsupport.WithMaxFileSizeMB(1))
	tests := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{"bad bool", func() *http.Request {
			return uploadRequest(t, "/ocr/process?use_cache=maybe", "a.txt", []byte("x"))
		}, http.StatusBadRequest},
		{"threshold out of range", func() *http.Request {
			return uploadRequest(t, "/ocr/process?table_conf_threshold=2", "a.txt", []byte("x"))
		}, http.StatusBadRequest},
		{"threshold not a number", func() *http.Request {
			return uploadRequest(t, "/ocr/process?table_conf_threshold=NaN&use_cache=false", "a.txt", []byte("x"))
		}, http.StatusBadRequest},
		{"threshold infinite", func() *http.Request {
			return uploadRequest(t, "/ocr/process?table_conf_threshold=Inf", "a.txt", []byte("x"))
		}, http.StatusBadRequest},
		{"unsupported extension", func() *http.Request {
			return uploadRequest(t, "/ocr/process", "a.exe", []byte("x"))
		}, http.StatusBadRequest},
		{"unknown engine", func() *http.Request {
			return uploadRequest(t, "/ocr/process?engine=paddle", "a.txt", []byte("x"))
		}, http.StatusBadRequest},
		{"too large", func() *http.Request {
			return uploadRequest(t, "/ocr/process", "a.txt", bytes.Repeat([]byte("a"), 1024*1024+1))
		}, http.StatusRequestEntityTooLarge},
		{"not multipart", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/ocr/process", strings.NewReader("x"))
			req.Header.Set("Content-Type", "text/plain")
			return req
		}, http.StatusBadRequest},
		{"missing file", func() *http.Request {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			_ = mw.WriteField("other", "value")
			_ = mw.Close()
			req := httptest.NewRequest(http.MethodPost, "/ocr/process", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			return req
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.req())
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if resp := decode[api.ErrorResponse](t, w); resp.Error == "" || resp.RequestID == "" {
				t.Fatalf("expected error body with request ID, got %+v", resp)
			}
		})
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, testsupport.WithAPIToken("secret"))

	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/cache/stats", nil)); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if w := f.do(t, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	req = uploadRequest(t, "/ocr/process", "a.txt", []byte("x"))
	req.Header.Set("Authorization", "Bearer secret")
	if w := f.do(t, req); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.RateLimitPerSecond = 0.001
	cfg.API.RateLimitBurst = 1
	cache := testsupport.NewCache(t, cfg)
	runner := recognition.NewRunner(cache, nil, nil, recognition.RunnerOptions{}, nil)
	handler := api.NewServer(cfg, api.Dependencies{Cache: cache, Runner: runner}, nil).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, uploadRequest(t, "/ocr/process", "a.txt", []byte("x")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", w.Code)
	}
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, uploadRequest(t, "/ocr/process", "a.txt", []byte("x")))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cache/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected stats to bypass the limiter, got %d", w.Code)
	}
}

func TestCacheEntryManagement(t *testing.T) {
	f := newFixture(t)
	resp := decode[api.OCRResponse](t, f.do(t, uploadRequest(t, "/ocr/process", "a.txt", []byte("alpha"))))
	f.do(t, uploadRequest(t, "/ocr/process", "b.txt", []byte("beta")))

	entries := decode[api.CacheEntriesResponse](t, f.do(t, httptest.NewRequest(http.MethodGet, "/cache/entries", nil)))
	if len(entries.Entries) != 2 || entries.Entries[1].Key != resp.CacheKey {
		t.Fatalf("unexpected entries %+v", entries.Entries)
	}
	if entries.Entries[1].Metadata["filename"] != "a.txt" {
		t.Fatalf("expected filename metadata, got %v", entries.Entries[1].Metadata)
	}

	if w := f.do(t, httptest.NewRequest(http.MethodDelete, "/cache/entries/not-a-key", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed key, got %d", w.Code)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodDelete, "/cache/entries/0000000000000000", nil)); w.Code != http.StatusOK {
		t.Fatalf("expected absent key delete to succeed, got %d", w.Code)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodDelete, "/cache/entries/"+resp.CacheKey, nil)); w.Code != http.StatusOK {
		t.Fatalf("expected delete to succeed, got %d", w.Code)
	}
	if stats := f.cache.Stats(); stats.Items != 1 {
		t.Fatalf("expected 1 item after delete, got %d", stats.Items)
	}

	clear := decode[api.ClearResponse](t, f.do(t, httptest.NewRequest(http.MethodPost, "/cache/clear", nil)))
	if !clear.Success {
		t.Fatalf("unexpected clear response %+v", clear)
	}
	if stats := f.cache.Stats(); stats.Items != 0 {
		t.Fatalf("expected empty cache after clear, got %d", stats.Items)
	}
}

func TestDisabledServices(t *testing.T) {
	f := newFixture(t, testsupport.WithCacheDisabled(), testsupport.WithJobsDisabled())

	stats := decode[resultcache.Stats](t, f.do(t, httptest.NewRequest(http.MethodGet, "/cache/stats", nil)))
	if stats.Enabled {
		t.Fatal("expected disabled cache stats")
	}
	for _, path := range []string{"/jobs", "/jobs/abc", "/jobs/stats"} {
		if w := f.do(t, httptest.NewRequest(http.MethodGet, path, nil)); w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", path, w.Code)
		}
	}
	resp := decode[api.OCRResponse](t, f.do(t, uploadRequest(t, "/ocr/process", "a.txt", []byte("x"))))
	if !resp.Success || resp.JobID != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestUnknownJob(t *testing.T) {
	f := newFixture(t)
	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/jobs/missing", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/jobs/stats?days=zero", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
