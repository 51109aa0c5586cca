// Package timetableapi talks to the timetable service over its JSON/HTTP API.
package timetableapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/timetable"
)

// DefaultExportFilename is used when the service does not name the exported file.
const DefaultExportFilename = "exported_timetables.pdf"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ timetable.Service = (*Client)(nil)

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// NewHTTPClient returns the http.Client used against the service. A zero `conf.Timeout` means none.
func NewHTTPClient(conf core.ServiceConfig) *http.Client {
	return &http.Client{Timeout: conf.Timeout}
}

type (
	errorBody struct {
		Error string `json:"error"`
	}

	messageBody struct {
		Message string `json:"message"`
	}

	exportRequest struct {
		IDs    []int  `json:"ids"`
		Format string `json:"format"`
	}
)

// notFound is a 404 from the service: it matches timetable.ErrNotFound and still carries the server's message.
type notFound struct {
	remote *core.RemoteError
}

func (e *notFound) Error() string        { return e.remote.Error() }
func (e *notFound) Cause() error         { return e.remote }
func (e *notFound) Unwrap() error        { return e.remote }
func (e *notFound) Is(target error) bool { return target == timetable.ErrNotFound }

func (c *Client) do(ctx context.Context, method, path string, in interface{}) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, errors.New("timetable service base URL not configured")
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&eb)
	rerr := &core.RemoteError{Status: resp.StatusCode, Message: eb.Error}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &notFound{remote: rerr}
	}
	return nil, rerr
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.sendJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out interface{}) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	return nil
}

func (c *Client) Batches(ctx context.Context) ([]metadata.Batch, error) {
	var out []metadata.Batch
	if err := c.getJSON(ctx, "/api/get_batches", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Courses(ctx context.Context) ([]metadata.Course, error) {
	var out []metadata.Course
	if err := c.getJSON(ctx, "/api/get_courses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Faculty(ctx context.Context) ([]metadata.Faculty, error) {
	var out []metadata.Faculty
	if err := c.getJSON(ctx, "/api/get_faculty", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Students(ctx context.Context) ([]metadata.Student, error) {
	var out []metadata.Student
	if err := c.getJSON(ctx, "/api/get_students", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Semesters(ctx context.Context) ([]metadata.Semester, error) {
	var out []metadata.Semester
	if err := c.getJSON(ctx, "/api/get_semesters", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateStudent(ctx context.Context, ns metadata.NewStudent) (string, error) {
	var out messageBody
	if err := c.sendJSON(ctx, http.MethodPost, "/api/add_student", ns, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) CreateFaculty(ctx context.Context, nf metadata.NewFaculty) (string, error) {
	var out messageBody
	if err := c.sendJSON(ctx, http.MethodPost, "/api/add_faculty", nf, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) Generate(ctx context.Context) (timetable.Generated, error) {
	var out timetable.Generated
	if err := c.getJSON(ctx, "/api/generate_optimal_timetable", &out); err != nil {
		return timetable.Generated{}, err
	}
	return out, nil
}

func (c *Client) Save(ctx context.Context, ds schedule.Dataset) (string, error) {
	if ds == nil {
		ds = schedule.Dataset{}
	}
	var out messageBody
	if err := c.sendJSON(ctx, http.MethodPost, "/api/save_timetable", ds, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) ListSaved(ctx context.Context) ([]timetable.Summary, error) {
	var out []timetable.Summary
	if err := c.getJSON(ctx, "/api/get_saved_timetables", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int) (schedule.Dataset, error) {
	var out schedule.Dataset
	if err := c.getJSON(ctx, "/api/get_timetable/"+strconv.Itoa(id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Latest(ctx context.Context) (schedule.Dataset, error) {
	var out schedule.Dataset
	if err := c.getJSON(ctx, "/api/get_latest_saved_timetable", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Scoped(ctx context.Context, scope timetable.Scope, id string) (schedule.Dataset, error) {
	switch scope {
	case timetable.ScopeSemester, timetable.ScopeBatch, timetable.ScopeFaculty, timetable.ScopeStudent:
	default:
		return nil, errors.Errorf("unknown scope %q", scope)
	}
	var out schedule.Dataset
	if err := c.getJSON(ctx, "/api/get_"+string(scope)+"_timetable/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Export(ctx context.Context, ids []int) (timetable.Artifact, error) {
	resp, err := c.do(ctx, http.MethodPost, "/export", exportRequest{IDs: ids, Format: "pdf"})
	if err != nil {
		return timetable.Artifact{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return timetable.Artifact{}, errors.Wrap(err, "reading export")
	}
	art := timetable.Artifact{
		Filename:    DefaultExportFilename,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		art.Filename = params["filename"]
	}
	if art.ContentType == "" {
		art.ContentType = http.DetectContentType(data)
	}
	return art, nil
}
