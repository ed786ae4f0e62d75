package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"imageClassifier/api/artifact"
	"imageClassifier/api/inference"
	"imageClassifier/api/service"
)

const maxUpload = 10 * 1024 * 1024

type testServer struct {
	router      http.Handler
	artifacts   *artifact.Manager
	artifactDir string
	marker      string
}

// newTestServer wires the real service and artifact manager to a shell
// worker. The worker touches a marker file so tests can tell whether it ran.
func newTestServer(t *testing.T, workerBody string) *testServer {
	t.Helper()

	scriptDir := t.TempDir()
	marker := filepath.Join(scriptDir, "spawned")
	worker := filepath.Join(scriptDir, "worker.sh")
	script := fmt.Sprintf("#!/bin/sh\ntouch %q\n%s\n", marker, workerBody)
	if err := os.WriteFile(worker, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write worker: %v", err)
	}

	return newTestServerWithExecutable(t, worker, marker)
}

func newTestServerWithExecutable(t *testing.T, executable, marker string) *testServer {
	t.Helper()
	zl := zaptest.NewLogger(t)

	artifactDir := t.TempDir()
	manager, err := artifact.NewManager(artifactDir, zl)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	classifier := inference.NewProcessClassifier(executable, zl)
	svc := service.NewClassificationService(manager, classifier, nil, t.TempDir(), zl)
	handler := NewClassifyHandler(svc, zl, maxUpload)

	return &testServer{
		router:      NewRouter(handler, zl),
		artifacts:   manager,
		artifactDir: artifactDir,
		marker:      marker,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not JSON: %q", rec.Body.String())
	}
	return rec, body
}

func (s *testServer) workerRan() bool {
	_, err := os.Stat(s.marker)
	return err == nil
}

func (s *testServer) assertNoArtifactsLeft(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.artifactDir)
	if err != nil {
		t.Fatalf("Failed to read artifact dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no artifacts left, found %d", len(entries))
	}
	if stats := s.artifacts.Stats(); stats.Created != stats.Removed {
		t.Errorf("Artifacts created %d != removed %d", stats.Created, stats.Removed)
	}
}

func newUploadRequest(t *testing.T, field, contentType string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="upload.jpg"`, field))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("Failed to create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/classify", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

const catWorker = `printf '{"label":"cat","probability":0.97,"classId":3}'`

func TestClassify_Success(t *testing.T) {
	srv := newTestServer(t, catWorker)

	rec, body := srv.do(t, newUploadRequest(t, "image", "image/jpeg", jpegBytes))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %v", rec.Code, body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", ct)
	}
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("Expected X-Trace-ID header")
	}
	want := map[string]interface{}{"label": "cat", "probability": 0.97, "classId": float64(3)}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("Expected %v, got %v", want, body)
	}
	srv.assertNoArtifactsLeft(t)
}

func TestClassify_WorkerSeesArtifactContent(t *testing.T) {
	srv := newTestServer(t, `printf '{"label":"%s","probability":1,"classId":%s}' "$(basename "$1" | cut -c1-11)" "$(wc -c < "$1" | tr -d ' ')"`)

	rec, body := srv.do(t, newUploadRequest(t, "image", "image/jpeg", jpegBytes))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %v", rec.Code, body)
	}
	if body["label"] != "temp_image_" {
		t.Errorf("Expected artifact name prefix, got %v", body["label"])
	}
	if body["classId"] != float64(len(jpegBytes)) {
		t.Errorf("Expected worker to read %d bytes, got %v", len(jpegBytes), body["classId"])
	}
	srv.assertNoArtifactsLeft(t)
}

func TestClassify_MissingImage(t *testing.T) {
	srv := newTestServer(t, catWorker)

	rec, body := srv.do(t, newUploadRequest(t, "photo", "image/jpeg", jpegBytes))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}
	want := map[string]interface{}{"error": "No image file provided"}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("Expected %v, got %v", want, body)
	}
	if srv.workerRan() {
		t.Error("Worker must not be spawned without an image")
	}
	if stats := srv.artifacts.Stats(); stats.Created != 0 {
		t.Errorf("Expected no artifacts, got %+v", stats)
	}
}

func TestClassify_EmptyBody(t *testing.T) {
	srv := newTestServer(t, catWorker)

	req := httptest.NewRequest("POST", "/classify", nil)
	rec, body := srv.do(t, req)

	if rec.Code != http.StatusBadRequest || body["error"] != "No image file provided" {
		t.Errorf("Expected 400 No image file provided, got %d %v", rec.Code, body)
	}
	if srv.workerRan() {
		t.Error("Worker must not be spawned without an image")
	}
}

func TestClassify_TooLarge(t *testing.T) {
	srv := newTestServer(t, catWorker)

	rec, body := srv.do(t, newUploadRequest(t, "image", "image/jpeg", make([]byte, maxUpload+1)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected status 413, got %d: %v", rec.Code, body)
	}
	if body["error"] != "File too large" {
		t.Errorf("Unexpected body %v", body)
	}
	if srv.workerRan() {
		t.Error("Worker must not be spawned for oversize uploads")
	}
	if stats := srv.artifacts.Stats(); stats.Created != 0 {
		t.Errorf("Expected no artifacts, got %+v", stats)
	}
}

func TestClassify_UnsupportedMediaType(t *testing.T) {
	srv := newTestServer(t, catWorker)

	rec, body := srv.do(t, newUploadRequest(t, "image", "text/plain", []byte("hello")))

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("Expected status 415, got %d", rec.Code)
	}
	if body["error"] != "Only image files are allowed" {
		t.Errorf("Unexpected body %v", body)
	}
	if srv.workerRan() {
		t.Error("Worker must not be spawned for non-images")
	}
}

func TestClassify_WorkerFailure(t *testing.T) {
	srv := newTestServer(t, `printf 'ignored' ; printf 'model not found' >&2 ; exit 1`)

	rec, body := srv.do(t, newUploadRequest(t, "image", "image/png", jpegBytes))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rec.Code)
	}
	want := map[string]interface{}{"error": "Classification failed", "details": "model not found"}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("Expected %v, got %v", want, body)
	}
	srv.assertNoArtifactsLeft(t)
}

func TestClassify_WorkerFailureWithoutDiagnostics(t *testing.T) {
	srv := newTestServer(t, `exit 2`)

	rec, body := srv.do(t, newUploadRequest(t, "image", "image/png", jpegBytes))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rec.Code)
	}
	want := map[string]interface{}{"error": "Classification failed", "details": ""}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("Expected %v, got %v", want, body)
	}
}

func TestClassify_MalformedOutput(t *testing.T) {
	srv := newTestServer(t, `printf 'oops'`)

	rec, body := srv.do(t, newUploadRequest(t, "image", "image/jpeg", jpegBytes))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rec.Code)
	}
	want := map[string]interface{}{"error": "Failed to parse classification result", "details": "oops"}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("Expected %v, got %v", want, body)
	}
	srv.assertNoArtifactsLeft(t)
}

func TestClassify_LaunchFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-worker")
	srv := newTestServerWithExecutable(t, missing, filepath.Join(t.TempDir(), "marker"))

	rec, body := srv.do(t, newUploadRequest(t, "image", "image/jpeg", jpegBytes))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rec.Code)
	}
	if body["error"] != "Failed to start classifier" {
		t.Errorf("Unexpected body %v", body)
	}
	if stats := srv.artifacts.Stats(); stats.Created != 1 || stats.Removed != 1 {
		t.Errorf("Expected one artifact created and removed, got %+v", stats)
	}
	srv.assertNoArtifactsLeft(t)
}

func TestClassify_RepeatedRequestsAreIdentical(t *testing.T) {
	srv := newTestServer(t, catWorker)

	_, first := srv.do(t, newUploadRequest(t, "image", "image/jpeg", jpegBytes))
	_, second := srv.do(t, newUploadRequest(t, "image", "image/jpeg", jpegBytes))

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical responses, got %v and %v", first, second)
	}
	if stats := srv.artifacts.Stats(); stats.Created != 2 || stats.Removed != 2 {
		t.Errorf("Expected two artifacts created and removed, got %+v", stats)
	}
	srv.assertNoArtifactsLeft(t)
}

func TestClassify_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, catWorker)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest("GET", "/classify", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, catWorker)

	rec, body := srv.do(t, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !reflect.DeepEqual(body, map[string]interface{}{"status": "ok"}) {
		t.Errorf("Unexpected body %v", body)
	}
}
