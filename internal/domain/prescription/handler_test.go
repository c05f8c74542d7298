package prescription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	t.Helper()
	h := NewHandler(newTestService(t))
	e := echo.New()
	return h, e
}

func TestHandler_CreatePrescription(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"patient_name":"Alice","doctor_name":"Dr. Silva","medicines":[{"medicine_id":"` +
		uuid.New().String() + `","medicine_name":"Paracetamol","quantity":4,"dosage":"500mg"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/prescriptions/queue", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreatePrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var p Prescription
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.QueueNumber != "P1000" {
		t.Errorf("expected P1000, got %s", p.QueueNumber)
	}
}

func TestHandler_CreatePrescription_NoLines(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"patient_name":"Alice"}`
	req := httptest.NewRequest(http.MethodPost, "/api/prescriptions/queue", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreatePrescription(c); err == nil {
		t.Error("expected error for a prescription without medicine lines")
	}
}

func TestHandler_UpdateStatus_Conflict(t *testing.T) {
	h, e := newTestHandler(t)

	p := testPrescription("Alice")
	id, _ := h.svc.Add(context.Background(), p)
	h.svc.Dispense(context.Background(), id)

	body := `{"status":"Preparing"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.UpdateStatus(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409 for a dispensed prescription, got %v", err)
	}
}

func TestHandler_GetSignature(t *testing.T) {
	h, e := newTestHandler(t)

	id, _ := h.svc.Add(context.Background(), testPrescription("Alice"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	if err := h.GetSignature(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	sig, _ := resp["signature"].(string)
	if len(sig) != 64 {
		t.Errorf("expected a sha256 hex signature, got %q", sig)
	}

	// Same prescription, same signature.
	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec2)
	c2.SetParamNames("id")
	c2.SetParamValues(id.String())
	h.GetSignature(c2)

	var resp2 map[string]any
	json.Unmarshal(rec2.Body.Bytes(), &resp2)
	if resp2["signature"] != sig {
		t.Error("expected the signature to be deterministic")
	}
}

func TestHandler_GetPrescription_NotFound(t *testing.T) {
	h, e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetPrescription(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
