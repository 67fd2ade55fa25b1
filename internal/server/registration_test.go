package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	capacitydomain "github.com/prelimth/examgate/internal/capacity/domain"
	"github.com/prelimth/examgate/internal/exam"
	examcodedomain "github.com/prelimth/examgate/internal/examcode/domain"
	registrationdomain "github.com/prelimth/examgate/internal/registration/domain"
)

type fakeRegistrationService struct {
	admitErr   error
	checkinErr error

	admitCalls int
	lastAdmit  registrationdomain.AdmitRequest
}

func (f *fakeRegistrationService) Admit(ctx context.Context, req registrationdomain.AdmitRequest) (registrationdomain.AdmitResponse, error) {
	f.admitCalls++
	f.lastAdmit = req
	_ = ctx
	if f.admitErr != nil {
		return registrationdomain.AdmitResponse{}, f.admitErr
	}
	return registrationdomain.AdmitResponse{
		Code:        "ADV-A1B2",
		PackageType: req.Package.Type(),
		SessionTime: req.SessionTime,
		ExamDate:    req.ExamDate,
	}, nil
}

func (f *fakeRegistrationService) GetStatus(ctx context.Context, sessionTime exam.SessionTime, examDate time.Time) (registrationdomain.SessionStatus, error) {
	_ = ctx
	return registrationdomain.SessionStatus{
		SessionTime:         sessionTime,
		ExamDate:            examDate,
		Status:              capacitydomain.StatusLimited,
		CanRegisterFree:     false,
		CanRegisterAdvanced: true,
	}, nil
}

func (f *fakeRegistrationService) CheckIn(ctx context.Context, code string) (registrationdomain.CheckinResult, error) {
	_ = ctx
	if f.checkinErr != nil {
		return registrationdomain.CheckinResult{}, f.checkinErr
	}
	return registrationdomain.CheckinResult{Code: code}, nil
}

func (f *fakeRegistrationService) SetSessionClosed(ctx context.Context, sessionTime exam.SessionTime, examDate time.Time, closed bool) (registrationdomain.SessionStatus, error) {
	_ = ctx
	status := capacitydomain.StatusAvailable
	if closed {
		status = capacitydomain.StatusClosed
	}
	return registrationdomain.SessionStatus{
		SessionTime: sessionTime,
		ExamDate:    examDate,
		Status:      status,
	}, nil
}

func (f *fakeRegistrationService) ListUserCodes(ctx context.Context, userID snowflake.ID) ([]*examcodedomain.ExamCode, error) {
	_ = ctx
	_ = userID
	return nil, nil
}

func newTestRouter(svc registrationdomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	srv := &Server{registrationSvc: svc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/registrations", srv.RegistrationRateLimit(), srv.CreateRegistration)
	router.GET("/v1/sessions/status", srv.GetSessionStatus)
	router.POST("/v1/codes/validate", srv.ValidateCode)
	router.POST("/v1/codes/checkin", srv.CheckinCode)
	router.POST("/v1/admin/sessions/close", srv.CloseSession)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateRegistrationReturns201(t *testing.T) {
	svc := &fakeRegistrationService{}
	router := newTestRouter(svc)

	resp := postJSON(router, "/v1/registrations",
		`{"user_id":"42","session_time":"MORNING","exam_date":"2026-03-14","package_type":"FREE","subject":"MATH"}`)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.admitCalls != 1 {
		t.Fatalf("expected one admit call, got %d", svc.admitCalls)
	}
	if svc.lastAdmit.Package.Type() != exam.PackageFree {
		t.Fatalf("expected FREE package, got %s", svc.lastAdmit.Package.Type())
	}
}

func TestCreateRegistrationRejectsFreeWithoutSubject(t *testing.T) {
	svc := &fakeRegistrationService{}
	router := newTestRouter(svc)

	resp := postJSON(router, "/v1/registrations",
		`{"user_id":"42","session_time":"MORNING","exam_date":"2026-03-14","package_type":"FREE"}`)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if svc.admitCalls != 0 {
		t.Fatal("expected admit not to be called")
	}
}

func TestCreateRegistrationRejectsAdvancedWithSubject(t *testing.T) {
	router := newTestRouter(&fakeRegistrationService{})

	resp := postJSON(router, "/v1/registrations",
		`{"user_id":"42","session_time":"MORNING","exam_date":"2026-03-14","package_type":"ADVANCED","subject":"MATH"}`)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCreateRegistrationCapacityExceededReturns409(t *testing.T) {
	router := newTestRouter(&fakeRegistrationService{admitErr: capacitydomain.ErrCapacityExceeded})

	resp := postJSON(router, "/v1/registrations",
		`{"user_id":"42","session_time":"AFTERNOON","exam_date":"2026-03-14","package_type":"ADVANCED"}`)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestCreateRegistrationExhaustionReturns503(t *testing.T) {
	router := newTestRouter(&fakeRegistrationService{admitErr: examcodedomain.ErrGenerationExhausted})

	resp := postJSON(router, "/v1/registrations",
		`{"user_id":"42","session_time":"MORNING","exam_date":"2026-03-14","package_type":"ADVANCED"}`)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
}

func TestGetSessionStatusExposesBooleansOnly(t *testing.T) {
	router := newTestRouter(&fakeRegistrationService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/status?session_time=MORNING&exam_date=2026-03-14", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	for _, forbidden := range []string{"total_count", "free_count", "advanced_count", "TotalCount"} {
		if _, ok := payload[forbidden]; ok {
			t.Fatalf("status payload leaks counter %q", forbidden)
		}
	}
	if payload["status"] != string(capacitydomain.StatusLimited) {
		t.Fatalf("unexpected status %v", payload["status"])
	}
}

func TestValidateCodeFormatOnly(t *testing.T) {
	router := newTestRouter(&fakeRegistrationService{})

	resp := postJSON(router, "/v1/codes/validate", `{"code":"FREE-A1B2-MATH"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["valid"] != true {
		t.Fatalf("expected valid=true, got %v", payload["valid"])
	}

	resp = postJSON(router, "/v1/codes/validate", `{"code":"free-a1b2-math"}`)
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["valid"] != false {
		t.Fatalf("expected valid=false, got %v", payload["valid"])
	}
}

func TestCheckinAlreadyUsedReturns409(t *testing.T) {
	router := newTestRouter(&fakeRegistrationService{checkinErr: examcodedomain.ErrCodeAlreadyUsed})

	resp := postJSON(router, "/v1/codes/checkin", `{"code":"ADV-A1B2"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestCloseSessionReturnsClosedStatus(t *testing.T) {
	router := newTestRouter(&fakeRegistrationService{})

	resp := postJSON(router, "/v1/admin/sessions/close",
		`{"session_time":"MORNING","exam_date":"2026-03-14"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["status"] != string(capacitydomain.StatusClosed) {
		t.Fatalf("expected CLOSED, got %v", payload["status"])
	}
}
