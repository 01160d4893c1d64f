package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"studyplanner_backend/internal/config"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/util"
)

const (
	canvasMaxAttempts     = 4
	canvasBackoffBase     = 300 * time.Millisecond
	canvasPerPage         = "100"
	canvasReqTimeout      = 30 * time.Second
	canvasDownloadTimeout = 60 * time.Second
	canvasUserAgent       = "StudyPlanner/1.0"
)

// canvasRetryStatus lists the transient statuses worth another attempt,
// including rate limiting.
var canvasRetryStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// CanvasService wraps the Canvas LMS REST API: authenticated GETs with
// retry/backoff and RFC5988 Link-header pagination.
type CanvasService struct {
	config config.CanvasConfig
	client *http.Client
}

func NewCanvasService(cfg config.CanvasConfig) *CanvasService {
	return &CanvasService{
		config: cfg,
		client: &http.Client{Timeout: canvasReqTimeout},
	}
}

// GetUserCourses lists courses for a user; "self" (the default) means the
// token owner.
func (s *CanvasService) GetUserCourses(userID string) ([]map[string]interface{}, error) {
	if userID == "" {
		userID = "self"
	}
	return s.getPaginated(fmt.Sprintf("/api/v1/users/%s/courses", url.PathEscape(userID)), nil)
}

// GetCourseAssignments lists all assignments for a course, following
// pagination.
func (s *CanvasService) GetCourseAssignments(courseID string) ([]map[string]interface{}, error) {
	return s.getPaginated(fmt.Sprintf("/api/v1/courses/%s/assignments", url.PathEscape(courseID)), nil)
}

// GetAssignment fetches a single assignment. No pagination applies.
func (s *CanvasService) GetAssignment(courseID, assignmentID string) (map[string]interface{}, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("/api/v1/courses/%s/assignments/%s", url.PathEscape(courseID), url.PathEscape(assignmentID))
	body, _, err := s.get(s.url(endpoint))
	if err != nil {
		return nil, err
	}
	var assignment map[string]interface{}
	if err := json.Unmarshal(body, &assignment); err != nil {
		return nil, fmt.Errorf("canvas returned non-JSON response: %w", err)
	}
	return assignment, nil
}

// GetCourseFiles lists course-level files, following pagination.
func (s *CanvasService) GetCourseFiles(courseID string) ([]map[string]interface{}, error) {
	return s.getPaginated(fmt.Sprintf("/api/v1/courses/%s/files", url.PathEscape(courseID)), nil)
}

// GetAssignmentSubmissions lists submissions for one assignment; these can
// run long, pagination matters here.
func (s *CanvasService) GetAssignmentSubmissions(courseID, assignmentID string) ([]map[string]interface{}, error) {
	endpoint := fmt.Sprintf("/api/v1/courses/%s/assignments/%s/submissions", url.PathEscape(courseID), url.PathEscape(assignmentID))
	return s.getPaginated(endpoint, nil)
}

// GetParsedAssignments fetches a course's assignments and standardizes each
// into the compact parsed form.
func (s *CanvasService) GetParsedAssignments(courseID string) ([]model.ParsedAssignment, error) {
	raw, err := s.GetCourseAssignments(courseID)
	if err != nil {
		return nil, err
	}
	parsed := make([]model.ParsedAssignment, len(raw))
	for i, a := range raw {
		parsed[i] = ParseCanvasAssignment(a)
	}
	return parsed, nil
}

// DownloadFile streams a Canvas file URL to destPath, creating parent
// directories as needed. Canvas file links redirect to pre-signed storage
// URLs; net/http drops the Authorization header once a redirect leaves the
// original host.
func (s *CanvasService) DownloadFile(fileURL, destPath string) error {
	if err := s.configured(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Token)
	req.Header.Set("User-Agent", canvasUserAgent)

	client := &http.Client{Timeout: canvasDownloadTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("canvas API error (status %d): %s", resp.StatusCode, string(detail))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(destPath)
		return err
	}
	return out.Close()
}

func (s *CanvasService) configured() error {
	if s.config.BaseURL == "" || s.config.Token == "" {
		return util.ErrCanvasNotConfigured
	}
	return nil
}

func (s *CanvasService) url(endpoint string) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// getPaginated follows Link rel="next" headers and concatenates page
// results. Each next URL carries its own query string, so parameters are
// only attached to the first request.
func (s *CanvasService) getPaginated(endpoint string, query url.Values) ([]map[string]interface{}, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if query == nil {
		query = url.Values{}
	}
	if query.Get("per_page") == "" {
		query.Set("per_page", canvasPerPage)
	}
	pageURL := s.url(endpoint) + "?" + query.Encode()

	var results []map[string]interface{}
	for pageURL != "" {
		body, header, err := s.get(pageURL)
		if err != nil {
			return nil, err
		}
		var items []map[string]interface{}
		if err := json.Unmarshal(body, &items); err != nil {
			var single map[string]interface{}
			if err := json.Unmarshal(body, &single); err != nil {
				return nil, fmt.Errorf("canvas returned non-JSON response: %w", err)
			}
			items = []map[string]interface{}{single}
		}
		results = append(results, items...)
		pageURL = nextLink(header.Get("Link"))
	}
	return results, nil
}

// get issues one authenticated GET with retries on transient statuses and
// network errors, backing off 300/600/1200ms between attempts.
func (s *CanvasService) get(rawURL string) ([]byte, http.Header, error) {
	var lastErr error
	for attempt := 1; attempt <= canvasMaxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(canvasBackoffBase << (attempt - 2))
		}

		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", canvasUserAgent)

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if canvasRetryStatus[resp.StatusCode] {
			lastErr = fmt.Errorf("canvas API error (status %d): %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, nil, fmt.Errorf("canvas API error (status %d): %s", resp.StatusCode, string(body))
		}
		return body, resp.Header, nil
	}
	return nil, nil, lastErr
}

// nextLink extracts the rel="next" target from an RFC5988 Link header,
// "" when there is no further page.
func nextLink(header string) string {
	if header == "" {
		return ""
	}
	for _, part := range strings.Split(header, ",") {
		if !strings.Contains(part, ";") {
			continue
		}
		seg := strings.SplitN(part, ";", 2)
		target := strings.TrimSpace(strings.Trim(strings.TrimSpace(seg[0]), "<>"))
		rel := strings.TrimSpace(seg[1])
		rel = strings.Trim(rel[strings.LastIndex(rel, "=")+1:], `"`)
		if rel == "next" {
			return target
		}
	}
	return ""
}
