package service_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyplanner_backend/internal/config"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
)

func newCanvasService(baseURL string) *service.CanvasService {
	return service.NewCanvasService(config.CanvasConfig{BaseURL: baseURL, Token: "test-token"})
}

func TestCanvas_NotConfigured(t *testing.T) {
	svc := service.NewCanvasService(config.CanvasConfig{})

	_, err := svc.GetUserCourses("")
	assert.True(t, errors.Is(err, util.ErrCanvasNotConfigured))

	_, err = svc.GetAssignment("1", "2")
	assert.True(t, errors.Is(err, util.ErrCanvasNotConfigured))

	err = svc.DownloadFile("https://canvas.example.com/files/1/download", "unused")
	assert.True(t, errors.Is(err, util.ErrCanvasNotConfigured))
}

func TestGetUserCourses_FollowsPagination(t *testing.T) {
	var requests []string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id": 3}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(
			`<%s/api/v1/users/self/courses?page=2&per_page=100>; rel="next", <%s/api/v1/users/self/courses?page=2&per_page=100>; rel="last"`,
			srv.URL, srv.URL))
		fmt.Fprint(w, `[{"id": 1}, {"id": 2}]`)
	}))
	defer srv.Close()

	courses, err := newCanvasService(srv.URL).GetUserCourses("")

	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.Equal(t, 1.0, courses[0]["id"])
	assert.Equal(t, 3.0, courses[2]["id"])

	require.Len(t, requests, 2)
	assert.Contains(t, requests[0], "/api/v1/users/self/courses")
	assert.Contains(t, requests[0], "per_page=100")
	assert.Contains(t, requests[1], "page=2")
}

func TestCanvas_RetriesTransientStatus(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[{"id": 1}]`)
	}))
	defer srv.Close()

	courses, err := newCanvasService(srv.URL).GetUserCourses("")

	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestCanvas_DoesNotRetryClientError(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "no such course", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newCanvasService(srv.URL).GetCourseAssignments("99")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "no such course")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestCanvas_ExhaustsRetries(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newCanvasService(srv.URL).GetUserCourses("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int32(4), atomic.LoadInt32(&attempts))
}

func TestGetAssignment_SingleObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/42/assignments/7", r.URL.Path)
		fmt.Fprint(w, `{"id": 7, "name": "Essay"}`)
	}))
	defer srv.Close()

	assignment, err := newCanvasService(srv.URL).GetAssignment("42", "7")

	require.NoError(t, err)
	assert.Equal(t, "Essay", assignment["name"])
}

func TestGetAssignmentSubmissions_Path(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/42/assignments/7/submissions", r.URL.Path)
		fmt.Fprint(w, `[{"id": 1}, {"id": 2}]`)
	}))
	defer srv.Close()

	subs, err := newCanvasService(srv.URL).GetAssignmentSubmissions("42", "7")

	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestGetCourseFiles_Path(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/42/files", r.URL.Path)
		fmt.Fprint(w, `[{"display_name": "syllabus.pdf"}]`)
	}))
	defer srv.Close()

	files, err := newCanvasService(srv.URL).GetCourseFiles("42")

	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "syllabus.pdf", files[0]["display_name"])
}

func TestCanvas_ObjectPayloadAppendedAsSingleItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 9}`)
	}))
	defer srv.Close()

	items, err := newCanvasService(srv.URL).GetCourseFiles("42")

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 9.0, items[0]["id"])
}

func TestCanvas_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>login page</html>`)
	}))
	defer srv.Close()

	_, err := newCanvasService(srv.URL).GetUserCourses("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-JSON")
}

func TestGetParsedAssignments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/42/assignments", r.URL.Path)
		fmt.Fprint(w, `[{"name": "Essay", "due_at": "2026-03-15T23:59:00Z", "description": "<p>Write it</p>", "course_name": "History"}]`)
	}))
	defer srv.Close()

	parsed, err := newCanvasService(srv.URL).GetParsedAssignments("42")

	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, model.ParsedAssignment{
		Course:      "History",
		Name:        "Essay",
		DueDate:     "Mar 15, 2026 11:59 PM",
		Description: "Write it",
	}, parsed[0])
}

func TestDownloadFile_WritesDestination(t *testing.T) {
	const payload = "%PDF-1.4 syllabus body"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "downloads", "syllabus.pdf")
	err := newCanvasService(srv.URL).DownloadFile(srv.URL+"/files/1/download", dest)

	require.NoError(t, err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestDownloadFile_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "file is gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing.pdf")
	err := newCanvasService(srv.URL).DownloadFile(srv.URL+"/files/1/download", dest)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}
