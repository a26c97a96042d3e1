package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gpanazio/brickreview-sub001/internal/db"
	"github.com/Gpanazio/brickreview-sub001/internal/dispatch"
	"github.com/Gpanazio/brickreview-sub001/internal/domain"
)

type fakeVideoStore struct {
	videos map[int64]*domain.VideoAsset
	nextID int64
}

func newFakeVideoStore(videos ...*domain.VideoAsset) *fakeVideoStore {
	s := &fakeVideoStore{videos: make(map[int64]*domain.VideoAsset), nextID: 100}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *fakeVideoStore) Create(_ context.Context, video *domain.VideoAsset) error {
	s.nextID++
	video.ID = s.nextID
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) GetByID(_ context.Context, id int64) (*domain.VideoAsset, error) {
	v, ok := s.videos[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return v, nil
}

func (s *fakeVideoStore) ListByProject(_ context.Context, projectID int64, _ int) ([]*domain.VideoAsset, error) {
	var out []*domain.VideoAsset
	for _, v := range s.videos {
		if v.ProjectID == projectID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeFailureStore struct {
	failures map[int64][]*domain.ProcessingFailure
}

func (s *fakeFailureStore) ListByVideo(_ context.Context, videoID int64) ([]*domain.ProcessingFailure, error) {
	return s.failures[videoID], nil
}

type fakeObjectStore struct {
	objects   map[string]bool
	headErr   error
	healthErr error
}

func (s *fakeObjectStore) PublicURL(key string) string { return "https://cdn.test/" + key }

func (s *fakeObjectStore) Exists(_ context.Context, key string) (bool, error) {
	if s.headErr != nil {
		return false, s.headErr
	}
	return s.objects[key], nil
}

func (s *fakeObjectStore) Health(context.Context) error {
	return s.healthErr
}

type fakePinger struct{ err error }

func (p *fakePinger) Health(context.Context) error { return p.err }

type fakeRunner struct {
	calls atomic.Int64
}

func (r *fakeRunner) Run(context.Context, int64) error {
	r.calls.Add(1)
	return nil
}

func newTestRouter(videos *fakeVideoStore, failures *fakeFailureStore, runner *fakeRunner) http.Handler {
	logger := zap.NewNop()
	dispatcher := dispatch.New(nil, runner, false, logger, nil)
	h := NewHandler(videos, failures, dispatcher, &fakeObjectStore{}, &fakePinger{}, logger)
	return NewRouter(h, logger)
}

func TestRegisterVideo(t *testing.T) {
	videos := newFakeVideoStore()
	runner := &fakeRunner{}
	router := newTestRouter(videos, &fakeFailureStore{}, runner)

	body := `{"projectId": 7, "filename": "review cut.mp4"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/videos", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp RegisterVideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Queued)
	assert.Equal(t, int64(7), resp.Video.ProjectID)
	assert.Equal(t, domain.StatusUploaded, resp.Video.Status)
	assert.True(t, strings.HasPrefix(resp.Video.SourceKey, "videos/7/"))
	assert.True(t, strings.HasPrefix(resp.Video.SourceURL, "https://cdn.test/videos/7/"))

	// Record persisted.
	_, err := videos.GetByID(context.Background(), resp.Video.ID)
	assert.NoError(t, err)
}

func TestRegisterVideoValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing project", body: `{"filename": "a.mp4"}`},
		{name: "missing filename", body: `{"projectId": 7}`},
		{name: "garbage body", body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(newFakeVideoStore(), &fakeFailureStore{}, &fakeRunner{})
			req := httptest.NewRequest(http.MethodPost, "/v1/videos", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterVideoWithExplicitSourceKey(t *testing.T) {
	logger := zap.NewNop()
	dispatcher := dispatch.New(nil, &fakeRunner{}, false, logger, nil)
	store := &fakeObjectStore{objects: map[string]bool{"uploads/7/raw.mov": true}}
	videos := newFakeVideoStore()
	h := NewHandler(videos, &fakeFailureStore{}, dispatcher, store, &fakePinger{}, logger)
	router := NewRouter(h, logger)

	body := `{"projectId": 7, "filename": "raw.mov", "sourceKey": "uploads/7/raw.mov"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/videos", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp RegisterVideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "uploads/7/raw.mov", resp.Video.SourceKey)

	// A key with no object behind it is rejected before a record exists.
	body = `{"projectId": 7, "filename": "raw.mov", "sourceKey": "uploads/7/gone.mov"}`
	req = httptest.NewRequest(http.MethodPost, "/v1/videos", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, videos.videos, 1)

	// A storage failure during the check is not treated as a missing object.
	store.headErr = errors.New("head blew up")
	req = httptest.NewRequest(http.MethodPost, "/v1/videos", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetVideo(t *testing.T) {
	video := &domain.VideoAsset{ID: 5, ProjectID: 7, Filename: "a.mp4", Status: domain.StatusReady}
	router := newTestRouter(newFakeVideoStore(video), &fakeFailureStore{}, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.VideoAsset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(5), got.ID)
	assert.Equal(t, domain.StatusReady, got.Status)
}

func TestGetVideoNotFound(t *testing.T) {
	router := newTestRouter(newFakeVideoStore(), &fakeFailureStore{}, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/videos/abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessVideo(t *testing.T) {
	video := &domain.VideoAsset{
		ID: 5, ProjectID: 7, Filename: "a.mp4",
		SourceKey: "videos/7/src.mp4", Status: domain.StatusFailed,
	}
	runner := &fakeRunner{}
	router := newTestRouter(newFakeVideoStore(video), &fakeFailureStore{}, runner)

	req := httptest.NewRequest(http.MethodPost, "/v1/videos/5/process", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestProcessVideoConflictWhileProcessing(t *testing.T) {
	video := &domain.VideoAsset{
		ID: 5, ProjectID: 7, Filename: "a.mp4",
		SourceKey: "videos/7/src.mp4", Status: domain.StatusProcessing,
	}
	runner := &fakeRunner{}
	router := newTestRouter(newFakeVideoStore(video), &fakeFailureStore{}, runner)

	req := httptest.NewRequest(http.MethodPost, "/v1/videos/5/process", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int64(0), runner.calls.Load())
}

func TestListFailures(t *testing.T) {
	video := &domain.VideoAsset{ID: 5, ProjectID: 7, Filename: "a.mp4", Status: domain.StatusFailed}
	failures := &fakeFailureStore{failures: map[int64][]*domain.ProcessingFailure{
		5: {{VideoID: 5, Stage: domain.StageUpload, Message: "upload blew up"}},
	}}
	router := newTestRouter(newFakeVideoStore(video), failures, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/5/failures", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []*FailureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, domain.StageUpload, got[0].Stage)
	assert.Equal(t, "upload blew up", got[0].Message)
}

func TestListVideosRequiresProject(t *testing.T) {
	router := newTestRouter(newFakeVideoStore(), &fakeFailureStore{}, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/v1/videos?projectId=7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/videos", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	logger := zap.NewNop()
	dispatcher := dispatch.New(nil, &fakeRunner{}, false, logger, nil)

	h := NewHandler(newFakeVideoStore(), &fakeFailureStore{}, dispatcher, &fakeObjectStore{}, &fakePinger{}, logger)
	router := NewRouter(h, logger)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// An unreachable database flips both probes.
	h = NewHandler(newFakeVideoStore(), &fakeFailureStore{}, dispatcher, &fakeObjectStore{}, &fakePinger{err: errors.New("down")}, logger)
	router = NewRouter(h, logger)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
