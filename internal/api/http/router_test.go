package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/api/http/handlers"
	"github.com/cityreport/incident-service/internal/auth"
	"github.com/cityreport/incident-service/internal/domain"
	"github.com/cityreport/incident-service/internal/events"
	"github.com/cityreport/incident-service/internal/observability"
	"github.com/cityreport/incident-service/internal/repository"
	"github.com/cityreport/incident-service/internal/service"
	storagemocks "github.com/cityreport/incident-service/internal/storage/mocks"
)

type testServer struct {
	app    *fiber.App
	repo   repository.IncidentRepository
	issuer *storagemocks.MockURLIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	lifecycle, err := domain.NewLifecycle(
		[]string{"PENDING", "REPORTED", "IN_PROGRESS", "RESOLVED", "CLOSED", "REJECTED", "CANCELLED"},
		[]string{"CLOSED", "REJECTED", "CANCELLED"},
		map[string]string{"UNDER_REVIEW": "REPORTED"},
	)
	require.NoError(t, err)
	policy, err := auth.NewPolicy()
	require.NoError(t, err)

	repo := repository.NewMemoryIncidentRepository()
	issuer := storagemocks.NewMockURLIssuer(gomock.NewController(t))
	incidents := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo: repo,
		Publisher:    events.NewInMemoryDispatcher(),
		URLIssuer:    issuer,
		Authorizer:   policy,
		Lifecycle:    lifecycle,
		Logger:       logger,
		Timeout:      time.Second,
	})
	attachments := service.NewAttachmentService(service.AttachmentDependencies{
		URLIssuer:     issuer,
		Authorizer:    policy,
		PublicBaseURL: "https://uploads.city.test",
		UploadTTL:     300 * time.Second,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("incident-service", "test", nil, metrics),
		Incidents:      handlers.NewIncidentsHandler(incidents),
		Attachments:    handlers.NewAttachmentsHandler(attachments),
		Dashboard:      handlers.NewDashboardHandler(incidents),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager("", time.Hour), "X-Jwt-Payload"),
		Policy:         policy,
	})
	return &testServer{app: app, repo: repo, issuer: issuer}
}

func claimsHeader(t *testing.T, claims map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(raw)
}

var (
	citizenClaims  = map[string]any{"sub": "citizen-1", "email": "c1@mail.test"}
	officialClaims = map[string]any{"sub": "official-1", "cognito:groups": []string{"cityAuth"}, "custom:region": "North"}
	adminClaims    = map[string]any{"sub": "admin-1", "cognito:groups": "Admin"}
)

func (s *testServer) do(t *testing.T, method, path string, claims map[string]any, body string, headers map[string]string) (int, nethttp.Header, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if claims != nil {
		req.Header.Set("X-Jwt-Payload", claimsHeader(t, claims))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, resp.Header, decoded
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestIncidentLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, _, body := s.do(t, fiber.MethodPost, "/incidents", citizenClaims,
		`{"title":"Pothole on 5th","description":"Deep pothole","severity":"high","region":"North","imageUrls":["https://img.test/p.jpg"]}`, nil)
	require.Equal(t, nethttp.StatusCreated, status, body)
	incidentID, _ := body["incidentId"].(string)
	require.NotEmpty(t, incidentID)
	assert.Equal(t, []any{"https://img.test/p.jpg"}, body["imageUrls"])

	status, _, body = s.do(t, fiber.MethodPut, "/incidents/"+incidentID+"/status", officialClaims,
		`{"status":"in-progress","comments":"crew assigned"}`, nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.Equal(t, "PENDING", body["previousStatus"])
	assert.Equal(t, "IN_PROGRESS", body["newStatus"])
	incident, _ := body["incident"].(map[string]any)
	assert.Equal(t, "official-1", incident["updatedBy"])

	status, _, body = s.do(t, fiber.MethodGet, "/incidents/mine", citizenClaims, "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, map[string]any{"IN_PROGRESS": float64(1)}, body["summary"])

	status, _, body = s.do(t, fiber.MethodGet, "/incidents/"+incidentID, officialClaims, "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, incidentID, body["incident"].(map[string]any)["incidentId"])
}

func TestListIsRoleScoped(t *testing.T) {
	s := newTestServer(t)
	for _, region := range []string{"North", "South"} {
		status, _, _ := s.do(t, fiber.MethodPost, "/incidents", citizenClaims,
			`{"title":"Broken light","description":"dark street","region":"`+region+`"}`, nil)
		require.Equal(t, nethttp.StatusCreated, status)
	}
	status, _, _ := s.do(t, fiber.MethodPost, "/incidents", map[string]any{"sub": "citizen-2"},
		`{"title":"Graffiti","description":"on the wall","region":"South"}`, nil)
	require.Equal(t, nethttp.StatusCreated, status)

	tests := []struct {
		name   string
		claims map[string]any
		count  int
	}{
		{"citizen", citizenClaims, 2},
		{"official", officialClaims, 1},
		{"admin", adminClaims, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, body := s.do(t, fiber.MethodGet, "/incidents?sortBy=priority", tt.claims, "", nil)
			require.Equal(t, nethttp.StatusOK, status)
			assert.EqualValues(t, tt.count, body["count"])
			assert.Len(t, body["incidents"], tt.count)
		})
	}

	status, _, body := s.do(t, fiber.MethodGet, "/incidents", map[string]any{"sub": "o-2", "cognito:groups": "CityOfficial"}, "", nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		claims map[string]any
		body   string
		status int
		code   string
	}{
		{"no identity", fiber.MethodGet, "/incidents", nil, "", nethttp.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed json", fiber.MethodPost, "/incidents", citizenClaims, `{"title":`, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing description", fiber.MethodPost, "/incidents", citizenClaims, `{"title":"x"}`, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"citizen cannot transition", fiber.MethodPut, "/incidents/abc/status", citizenClaims, `{"status":"RESOLVED"}`, nethttp.StatusForbidden, "FORBIDDEN"},
		{"unknown status", fiber.MethodPut, "/incidents/abc/status", adminClaims, `{"status":"ARCHIVED"}`, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing incident", fiber.MethodPut, "/incidents/abc/status", adminClaims, `{"status":"RESOLVED"}`, nethttp.StatusNotFound, "NOT_FOUND"},
		{"citizen dashboard", fiber.MethodGet, "/dashboard/statistics", citizenClaims, "", nethttp.StatusForbidden, "FORBIDDEN"},
		{"unknown route", fiber.MethodGet, "/nope", nil, "", nethttp.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, body := s.do(t, tt.method, tt.path, tt.claims, tt.body, nil)
			assert.Equal(t, tt.status, status, body)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}

	_, _, body := s.do(t, fiber.MethodPost, "/incidents", citizenClaims, `{"title":`, nil)
	assert.Equal(t, "invalid JSON", body["error"].(map[string]any)["message"])
}

func TestUploadURLs(t *testing.T) {
	s := newTestServer(t)
	s.issuer.EXPECT().
		IssueUploadURL(gomock.Any(), gomock.Any(), "image/jpeg", 300*time.Second).
		DoAndReturn(func(_ context.Context, key, _ string, _ time.Duration) (string, error) {
			return "https://signed.test/" + key, nil
		})

	status, _, body := s.do(t, fiber.MethodPost, "/attachments/upload-urls", citizenClaims,
		`{"files":[{"name":"photo.jpg","type":"image/jpeg"}]}`, nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.EqualValues(t, 300, body["expiresIn"])
	urls, _ := body["uploadUrls"].([]any)
	require.Len(t, urls, 1)
	first := urls[0].(map[string]any)
	assert.Equal(t, "photo.jpg", first["originalFilename"])
	key, _ := first["s3Key"].(string)
	assert.True(t, strings.HasPrefix(key, "temp-uploads/"))
	assert.Equal(t, "https://uploads.city.test/"+key, first["fileUrl"])

	status, _, body = s.do(t, fiber.MethodPost, "/attachments/upload-urls", citizenClaims,
		`{"files":[{"name":"virus.exe","type":"application/octet-stream"}]}`, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "Invalid file type. Allowed: .jpg, .jpeg, .png, .gif, .webp", body["error"].(map[string]any)["message"])
}

func TestDashboardStatistics(t *testing.T) {
	s := newTestServer(t)
	status, _, _ := s.do(t, fiber.MethodPost, "/incidents", citizenClaims,
		`{"title":"Leak","description":"water main","category":"utilities","region":"North","district":"Harbor"}`, nil)
	require.Equal(t, nethttp.StatusCreated, status)

	status, _, body := s.do(t, fiber.MethodGet, "/dashboard/statistics", adminClaims, "", nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["byCategory"].(map[string]any)["UTILITIES"])
	districts := body["districts"].([]any)
	require.Len(t, districts, 1)
	assert.Equal(t, "Harbor", districts[0].(map[string]any)["district"])
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	status, headers, _ := s.do(t, fiber.MethodOptions, "/incidents", nil, "", map[string]string{"Origin": "https://app.city.test"})
	assert.Equal(t, nethttp.StatusNoContent, status)
	assert.Equal(t, "https://app.city.test", headers.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, headers.Get("Access-Control-Allow-Headers"), "X-Jwt-Payload")

	status, headers, _ = s.do(t, fiber.MethodGet, "/health/live", nil, "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "*", headers.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, headers.Get("X-Request-ID"))

	_, headers, _ = s.do(t, fiber.MethodGet, "/incidents", nil, "", map[string]string{"Origin": "https://app.city.test"})
	assert.Equal(t, "https://app.city.test", headers.Get("Access-Control-Allow-Origin"), "error responses carry CORS headers")
}

func TestHealthMetrics(t *testing.T) {
	s := newTestServer(t)
	s.do(t, fiber.MethodGet, "/health/live", nil, "", nil)

	status, _, body := s.do(t, fiber.MethodGet, "/health/metrics", nil, "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.GreaterOrEqual(t, body["totalRequests"], float64(1))

	status, _, body = s.do(t, fiber.MethodGet, "/health/ready", nil, "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}
