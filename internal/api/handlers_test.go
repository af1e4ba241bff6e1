package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tripgenie/agent-server/internal/agent/alerts"
	"github.com/tripgenie/agent-server/internal/agent/model"
	errx "github.com/tripgenie/agent-server/internal/core/error"
)

type stubPlannerService struct {
	called     bool
	question   string
	replanReq  model.ReplanRequest
	userID     string
	tripID     string
	answer     string
	record     *model.ReplanRecord
	assessment *alerts.Assessment
	err        error
}

func (s *stubPlannerService) Query(_ context.Context, question string) (string, error) {
	s.called = true
	s.question = question
	return s.answer, s.err
}

func (s *stubPlannerService) Replan(_ context.Context, req model.ReplanRequest) (string, error) {
	s.called = true
	s.replanReq = req
	return s.answer, s.err
}

func (s *stubPlannerService) LoadReplan(_ context.Context, userID, tripID string) (*model.ReplanRecord, error) {
	s.called = true
	s.userID, s.tripID = userID, tripID
	return s.record, s.err
}

func (s *stubPlannerService) AssessAlert(_ context.Context, _ model.AlertCheckRequest) (*alerts.Assessment, error) {
	s.called = true
	return s.assessment, s.err
}

func newTestRouter(svc *stubPlannerService) http.Handler {
	return NewRouter(&Deps{ResponseHandler: NewResponseHandler(), PlannerSvc: svc}, zerolog.New(io.Discard))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestQueryHandlerSuccess(t *testing.T) {
	svc := &stubPlannerService{answer: "Visit the Louvre"}
	rr := do(t, newTestRouter(svc), http.MethodPost, "/query", `{"question":"Plan 3 days in Paris"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body)
	}
	if svc.question != "Plan 3 days in Paris" {
		t.Fatalf("service called with %q", svc.question)
	}
	var resp queryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil || resp.Answer != "Visit the Louvre" {
		t.Fatalf("unexpected body %+v, %v", resp, err)
	}
}

func TestQueryHandlerRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid JSON", body: "not-json"},
		{name: "empty question", body: `{"question":"  "}`},
		{name: "missing question", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubPlannerService{}
			rr := do(t, newTestRouter(svc), http.MethodPost, "/query", tt.body)

			if svc.called {
				t.Fatalf("service should not be called")
			}
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if got := decodeError(t, rr); got.Code != string(errx.KindValidation) {
				t.Fatalf("unexpected error body %+v", got)
			}
		})
	}
}

func TestQueryHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   errx.Kind
	}{
		{name: "provider", err: errx.Provider("openweather", errors.New("connection refused")), status: http.StatusBadGateway, kind: errx.KindProvider},
		{name: "provider timeout", err: errx.Provider("openweather", context.DeadlineExceeded), status: http.StatusGatewayTimeout, kind: errx.KindProvider},
		{name: "lookup", err: errx.Lookup("currency XYZ not in rate table"), status: http.StatusUnprocessableEntity, kind: errx.KindLookup},
		{name: "tool limit", err: errx.ToolLimit(5), status: http.StatusBadGateway, kind: errx.KindToolLimit},
		{name: "model", err: errx.ModelInvocation(errors.New("both down")), status: http.StatusBadGateway, kind: errx.KindModelInvocation},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, kind: errx.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubPlannerService{err: tt.err}
			rr := do(t, newTestRouter(svc), http.MethodPost, "/query", `{"question":"Plan Paris"}`)

			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			got := decodeError(t, rr)
			if got.Code != string(tt.kind) {
				t.Fatalf("expected code %s, got %+v", tt.kind, got)
			}
			if strings.Contains(got.Error, "connection refused") || strings.Contains(got.Error, "boom") {
				t.Fatalf("internal cause leaked to client: %q", got.Error)
			}
		})
	}
}

func TestReplanHandlerSuccess(t *testing.T) {
	svc := &stubPlannerService{answer: "Day 1: Musée d'Orsay"}
	body := `{"userId":"u1","tripId":"t1","destination":"Paris","startDate":"2024-06-10","endDate":"2024-06-12","guests":2,"budget":"mid","tripType":"leisure","aiResponse":"Day 1: Seine","alert":{"severity":"critical"}}`
	rr := do(t, newTestRouter(svc), http.MethodPost, "/replan", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body)
	}
	if svc.replanReq.Destination != "Paris" || svc.replanReq.Guests != 2 || svc.replanReq.Alert["severity"] != "critical" {
		t.Fatalf("unexpected request passed to service: %+v", svc.replanReq)
	}
	var resp replanResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil || resp.ReplannedItinerary != "Day 1: Musée d'Orsay" {
		t.Fatalf("unexpected body %+v, %v", resp, err)
	}
}

func TestReplanHandlerValidation(t *testing.T) {
	svc := &stubPlannerService{}
	rr := do(t, newTestRouter(svc), http.MethodPost, "/replan", `{"destination":"Paris","startDate":"2024-06-10","endDate":"2024-06-12","guests":0}`)

	if svc.called {
		t.Fatalf("service should not be called")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetReplanHandler(t *testing.T) {
	svc := &stubPlannerService{record: &model.ReplanRecord{UserID: "u1", TripID: "t1", ReplannedItinerary: "Day 1: Louvre"}}
	rr := do(t, newTestRouter(svc), http.MethodGet, "/replan/u1/t1", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if svc.userID != "u1" || svc.tripID != "t1" {
		t.Fatalf("unexpected path params %q/%q", svc.userID, svc.tripID)
	}
	var rec model.ReplanRecord
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil || rec.ReplannedItinerary != "Day 1: Louvre" {
		t.Fatalf("unexpected body %+v, %v", rec, err)
	}

	svc = &stubPlannerService{err: errx.NotFound("record not found")}
	rr = do(t, newTestRouter(svc), http.MethodGet, "/replan/u1/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAssessAlertHandler(t *testing.T) {
	svc := &stubPlannerService{assessment: &alerts.Assessment{
		Destination:  "Paris",
		Alert:        &alerts.WeatherAlert{Severity: alerts.SeverityCritical},
		ShouldNotify: true,
		ShouldReplan: true,
	}}
	rr := do(t, newTestRouter(svc), http.MethodPost, "/alerts/assess", `{"destination":"Paris","startDate":"2024-06-10"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got alerts.Assessment
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil || !got.ShouldReplan || got.Alert.Severity != alerts.SeverityCritical {
		t.Fatalf("unexpected body %+v, %v", got, err)
	}
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestRouter(&stubPlannerService{}), http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body)
	}
}
