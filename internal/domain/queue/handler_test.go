package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	t.Helper()
	h := NewHandler(newTestService(t))
	e := echo.New()
	return h, e
}

func TestHandler_AddStudent(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"student_name":"Alice","student_id":"ST-001","email":"alice@uni.test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/queue/add-student", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.AddStudent(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 for a fresh intake, got %d", rec.Code)
	}

	var result IntakeResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.IsDuplicate {
		t.Error("expected a fresh intake not to be a duplicate")
	}
	if result.Entry == nil || result.Entry.QueueNo != "Q001" {
		t.Errorf("expected entry Q001, got %+v", result.Entry)
	}
}

func TestHandler_AddStudent_DuplicateIs200(t *testing.T) {
	h, e := newTestHandler(t)

	h.svc.AddStudentToReception(context.Background(), intake("Alice", "alice@uni.test"))

	body := `{"student_name":"Alice","email":"alice@uni.test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/queue/add-student", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.AddStudent(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for a duplicate intake, got %d", rec.Code)
	}

	var result IntakeResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if !result.IsDuplicate {
		t.Error("expected is_duplicate to be set")
	}
	if result.Message == "" {
		t.Error("expected an explanatory message on the duplicate result")
	}
}

func TestHandler_MoveToDoctor_NotFound(t *testing.T) {
	h, e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("queueNo")
	c.SetParamValues("Q999")

	err := h.MoveToDoctor(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown queue number, got %v", err)
	}
}

func TestHandler_MoveToPharmacy(t *testing.T) {
	h, e := newTestHandler(t)

	result, _ := h.svc.AddStudentToReception(context.Background(), intake("Alice", "alice@uni.test"))
	h.svc.MoveToDoctor(context.Background(), result.Entry.QueueNo)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(string(rxPayload)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("queueNo")
	c.SetParamValues(result.Entry.QueueNo)

	if err := h.MoveToPharmacy(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entry Entry
	json.Unmarshal(rec.Body.Bytes(), &entry)
	if entry.Stage != StagePharmacy {
		t.Errorf("expected pharmacy stage, got %s", entry.Stage)
	}
	if len(entry.Prescription) == 0 {
		t.Error("expected the prescription payload to be attached")
	}
}

func TestHandler_GetStats(t *testing.T) {
	h, e := newTestHandler(t)

	h.svc.AddStudentToReception(context.Background(), intake("Alice", "alice@uni.test"))
	h.svc.AddStudentToReception(context.Background(), intake("Bob", "bob@uni.test"))

	req := httptest.NewRequest(http.MethodGet, "/api/queue/stats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetStats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var st Stats
	json.Unmarshal(rec.Body.Bytes(), &st)
	if st.Reception != 2 || st.Total != 2 {
		t.Errorf("expected 2 reception / 2 total, got %+v", st)
	}
}
