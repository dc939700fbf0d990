package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/printworks/api/internal/auth"
	"github.com/printworks/api/internal/middleware"
	"github.com/printworks/api/internal/repository"
	"github.com/printworks/api/internal/service"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) (*fiber.App, string) {
	t.Helper()

	jobs := repository.NewMemoryJobRepository()
	stages := repository.NewMemoryStageRepository()
	tracker := service.NewCompletionTracker(jobs, stages, nil)
	svc := service.NewWorkflowService(jobs, stages, tracker, nil)
	h := NewProductionHandler(svc, validator.New())

	app := fiber.New()
	api := app.Group("/api", middleware.NewAuthMiddleware(testSecret).Authenticate())

	jobGroup := api.Group("/production/jobs")
	jobGroup.Post("/", h.CreateJob)
	jobGroup.Get("/:jobId", h.GetJob)
	jobGroup.Get("/:jobId/stages", h.ListStages)
	jobGroup.Get("/:jobId/queue", h.Queue)
	jobGroup.Post("/:jobId/start", h.StartProduction)

	stageGroup := api.Group("/production/stages")
	stageGroup.Post("/:stageId/start", h.StartStage)
	stageGroup.Post("/:stageId/complete", h.CompleteStage)
	stageGroup.Post("/:stageId/approve", h.ApproveStage)
	stageGroup.Post("/:stageId/reject", h.RejectStage)
	stageGroup.Post("/:stageId/hold", h.HoldStage)
	stageGroup.Post("/:stageId/resume", h.ResumeStage)

	token, err := auth.GenerateToken("op-1", "op@printworks.test", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return app, token
}

// doRequest performs an authenticated request and returns the response plus
// its raw body.
func doRequest(t *testing.T, app *fiber.App, token, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, raw
}

func decodeObject(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal object %q: %v", raw, err)
	}
	return out
}

func decodeArray(t *testing.T, raw []byte) []interface{} {
	t.Helper()
	var out []interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal array %q: %v", raw, err)
	}
	return out
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	errObj, ok := decodeObject(t, raw)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in %s", raw)
	}
	code, _ := errObj["code"].(string)
	return code
}

func stageField(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	stage, ok := decodeObject(t, raw)["stage"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected stage in transition response %s", raw)
	}
	return stage
}

func createJob(t *testing.T, app *fiber.App, token string) string {
	t.Helper()
	resp, raw := doRequest(t, app, token, "POST", "/api/production/jobs", fiber.Map{
		"jobNumber": "JOB-2001",
		"jobType":   "business_cards",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create job: expected 201, got %d (%s)", resp.StatusCode, raw)
	}
	id, _ := decodeObject(t, raw)["id"].(string)
	if id == "" {
		t.Fatal("create job: missing id")
	}
	return id
}

func startProduction(t *testing.T, app *fiber.App, token, jobID string) []interface{} {
	t.Helper()
	resp, raw := doRequest(t, app, token, "POST", "/api/production/jobs/"+jobID+"/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start production: expected 200, got %d (%s)", resp.StatusCode, raw)
	}
	stages, ok := decodeObject(t, raw)["stages"].([]interface{})
	if !ok {
		t.Fatal("start production: missing stages")
	}
	return stages
}

func stageID(t *testing.T, stage interface{}) string {
	t.Helper()
	obj, ok := stage.(map[string]interface{})
	if !ok {
		t.Fatalf("expected stage object, got %T", stage)
	}
	id, _ := obj["id"].(string)
	return id
}

func TestRoutesRequireAuth(t *testing.T) {
	app, _ := newTestApp(t)

	resp, raw := doRequest(t, app, "", "POST", "/api/production/jobs", fiber.Map{
		"jobNumber": "JOB-1",
		"jobType":   "flyers",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if code := errorCode(t, raw); code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED code, got %s", code)
	}
}

func TestCreateJob_ValidationError(t *testing.T) {
	app, token := newTestApp(t)

	resp, raw := doRequest(t, app, token, "POST", "/api/production/jobs", fiber.Map{
		"jobType": "business_cards",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if code := errorCode(t, raw); code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", code)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	app, token := newTestApp(t)

	resp, raw := doRequest(t, app, token, "GET", "/api/production/jobs/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if code := errorCode(t, raw); code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %s", code)
	}
}

func TestProductionFlowOverHTTP(t *testing.T) {
	app, token := newTestApp(t)

	jobID := createJob(t, app, token)
	stages := startProduction(t, app, token, jobID)
	if len(stages) != 7 {
		t.Fatalf("expected 7 stages, got %d", len(stages))
	}

	firstID := stageID(t, stages[0])

	resp, raw := doRequest(t, app, token, "POST", "/api/production/stages/"+firstID+"/start", fiber.Map{
		"notes": "picking up design work",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start stage: expected 200, got %d (%s)", resp.StatusCode, raw)
	}
	if status := stageField(t, raw)["stageStatus"]; status != "in_progress" {
		t.Errorf("expected in_progress, got %v", status)
	}

	resp, raw = doRequest(t, app, token, "POST", "/api/production/stages/"+firstID+"/complete", fiber.Map{
		"stageData": fiber.Map{"proof": "v1.pdf"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete stage: expected 200, got %d (%s)", resp.StatusCode, raw)
	}

	// Job aggregate reflects one of seven stages done
	resp, raw = doRequest(t, app, token, "GET", "/api/production/jobs/"+jobID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get job: expected 200, got %d", resp.StatusCode)
	}
	if pct := decodeObject(t, raw)["completionPercentage"].(float64); pct != 14 {
		t.Errorf("expected 14%%, got %v", pct)
	}

	// Successor is the approval gate and shows up in the queue view
	resp, raw = doRequest(t, app, token, "GET", "/api/production/jobs/"+jobID+"/queue", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("queue: expected 200, got %d", resp.StatusCode)
	}
	queue := decodeArray(t, raw)
	if len(queue) != 1 {
		t.Fatalf("expected 1 actionable stage, got %d", len(queue))
	}
	gated := queue[0].(map[string]interface{})
	if gated["stageStatus"] != "requires_approval" {
		t.Errorf("expected requires_approval in queue, got %v", gated["stageStatus"])
	}

	// Approving the gate moves the pipeline forward
	resp, raw = doRequest(t, app, token, "POST", "/api/production/stages/"+stageID(t, stages[1])+"/approve", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve stage: expected 200, got %d (%s)", resp.StatusCode, raw)
	}
	if approvedBy := stageField(t, raw)["approvedBy"]; approvedBy != "op-1" {
		t.Errorf("expected approvedBy op-1, got %v", approvedBy)
	}

	// Full stage listing stays ordered
	resp, raw = doRequest(t, app, token, "GET", "/api/production/jobs/"+jobID+"/stages", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list stages: expected 200, got %d", resp.StatusCode)
	}
	listed := decodeArray(t, raw)
	if len(listed) != 7 {
		t.Fatalf("expected 7 listed stages, got %d", len(listed))
	}
	for i, entry := range listed {
		order := entry.(map[string]interface{})["stageOrder"].(float64)
		if int(order) != i+1 {
			t.Errorf("position %d has stageOrder %v", i, order)
		}
	}
}

func TestStartStage_InvalidStateMapsTo409(t *testing.T) {
	app, token := newTestApp(t)

	jobID := createJob(t, app, token)
	stages := startProduction(t, app, token, jobID)
	firstID := stageID(t, stages[0])

	if resp, raw := doRequest(t, app, token, "POST", "/api/production/stages/"+firstID+"/start", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("first start failed: %d (%s)", resp.StatusCode, raw)
	}

	resp, raw := doRequest(t, app, token, "POST", "/api/production/stages/"+firstID+"/start", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if code := errorCode(t, raw); code != "INVALID_STATE" {
		t.Errorf("expected INVALID_STATE, got %s", code)
	}
}

func TestRejectStage_MissingReasonIs400(t *testing.T) {
	app, token := newTestApp(t)

	jobID := createJob(t, app, token)
	stages := startProduction(t, app, token, jobID)
	firstID := stageID(t, stages[0])

	if resp, raw := doRequest(t, app, token, "POST", "/api/production/stages/"+firstID+"/start", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("start failed: %d (%s)", resp.StatusCode, raw)
	}

	resp, raw := doRequest(t, app, token, "POST", "/api/production/stages/"+firstID+"/reject", fiber.Map{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", resp.StatusCode, raw)
	}
	if code := errorCode(t, raw); code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", code)
	}
}

func TestHoldAndResumeOverHTTP(t *testing.T) {
	app, token := newTestApp(t)

	jobID := createJob(t, app, token)
	stages := startProduction(t, app, token, jobID)
	firstID := stageID(t, stages[0])

	resp, raw := doRequest(t, app, token, "POST", "/api/production/stages/"+firstID+"/hold", fiber.Map{
		"reason": "press maintenance",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hold: expected 200, got %d (%s)", resp.StatusCode, raw)
	}
	if status := stageField(t, raw)["stageStatus"]; status != "on_hold" {
		t.Errorf("expected on_hold, got %v", status)
	}

	resp, raw = doRequest(t, app, token, "POST", "/api/production/stages/"+firstID+"/resume", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume: expected 200, got %d (%s)", resp.StatusCode, raw)
	}
	if status := stageField(t, raw)["stageStatus"]; status != "pending" {
		t.Errorf("expected pending after resume of never-started stage, got %v", status)
	}
}

func TestStageReadsForMissingJobAre404(t *testing.T) {
	app, token := newTestApp(t)

	for _, path := range []string{
		"/api/production/jobs/missing/stages",
		"/api/production/jobs/missing/queue",
	} {
		resp, _ := doRequest(t, app, token, "GET", path, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}
