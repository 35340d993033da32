package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every call to a registry.
const DefaultTimeout = 5 * time.Second

// CourseRegistry answers whether a course exists (MS1).
type CourseRegistry interface {
	CourseExists(ctx context.Context, cursoID string) (bool, error)
}

// EnrollmentRegistry answers whether a student is enrolled in a course (MS2).
type EnrollmentRegistry interface {
	IsEnrolled(ctx context.Context, estudianteID, cursoID string) (bool, error)
}

type CourseClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCourseClient(baseURL string, timeout time.Duration) *CourseClient {
	return &CourseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

// CourseExists calls GET {base}/cursos/{cursoId}. Only a 200 means the
// course exists; any other status means it does not. Transport failures are
// returned as errors.
func (c *CourseClient) CourseExists(ctx context.Context, cursoID string) (bool, error) {
	endpoint := c.baseURL + "/cursos/" + url.PathEscape(cursoID)
	resp, err := get(ctx, c.httpClient, endpoint)
	if err != nil {
		return false, fmt.Errorf("course registry: %w", err)
	}
	defer drain(resp)
	return resp.StatusCode == http.StatusOK, nil
}

type EnrollmentClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewEnrollmentClient(baseURL string, timeout time.Duration) *EnrollmentClient {
	return &EnrollmentClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

type enrollmentResponse struct {
	Matriculado bool `json:"matriculado"`
}

// IsEnrolled calls GET {base}/matriculas/verificar. A student is enrolled
// only on a 200 whose body carries matriculado=true.
func (c *EnrollmentClient) IsEnrolled(ctx context.Context, estudianteID, cursoID string) (bool, error) {
	q := url.Values{}
	q.Set("estudianteId", estudianteID)
	q.Set("cursoId", cursoID)
	endpoint := c.baseURL + "/matriculas/verificar?" + q.Encode()

	resp, err := get(ctx, c.httpClient, endpoint)
	if err != nil {
		return false, fmt.Errorf("enrollment registry: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	var body enrollmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("enrollment registry: decode response: %w", err)
	}
	return body.Matriculado, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func get(ctx context.Context, client *http.Client, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return client.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
