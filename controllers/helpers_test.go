package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/config"
	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/repository"
	"github.com/neraa-rental/orders-api/services"
	"github.com/neraa-rental/orders-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db         *gorm.DB
	staff      *models.User
	otherStaff *models.User
	admin      *models.User
	images     *services.MockImageService
	renderer   *services.MockBillRenderer
}

// setupTestEnv wires every service against a fresh in-memory database
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	config.SetDB(db)

	orders := repository.NewOrderRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	images := services.NewMockImageService()
	renderer := services.NewMockBillRenderer()
	tokens := services.NewTokenService("test-secret", "neraa-orders-api", "neraa-orders", time.Hour)

	services.SetImageService(images)
	services.SetOrderService(services.NewOrderService(orders, images, services.NewMemoryOrderLocker(time.Second)))
	services.SetDashboardService(services.NewDashboardService(orders, staffRepo))
	services.SetReportService(services.NewReportService(orders, renderer, time.Second, nil))
	services.SetStaffService(services.NewStaffService(staffRepo, tokens, nil))

	return &testEnv{
		db:         db,
		staff:      testutil.CreateStaff(t, db, "asha", models.RoleStaff),
		otherStaff: testutil.CreateStaff(t, db, "ravi", models.RoleStaff),
		admin:      testutil.CreateStaff(t, db, "owner", models.RoleAdmin),
		images:     images,
		renderer:   renderer,
	}
}

// routerAs returns a router that authenticates every request as actor. A nil
// actor leaves requests unauthenticated.
func routerAs(actor *models.User, register func(r *gin.Engine)) *gin.Engine {
	router := gin.New()
	if actor != nil {
		router.Use(testutil.MockActorMiddleware(actor))
	}
	register(router)
	return router
}

type formFile struct {
	field    string
	name     string
	contents []byte
}

// multipartRequest builds a multipart request from form fields and files
func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(f.contents))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	response := decodeBody(t, w)
	errBody, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "expected an error envelope, got %s", w.Body.String())
	return errBody["code"].(string)
}

func orderForm(overrides map[string]string) map[string]string {
	fields := map[string]string{
		"customer_name":   "Meera",
		"phone":           "9800000001",
		"address":         "7 Lake View",
		"product_name":    "Bridal lehenga",
		"product_details": "Red, size M",
		"price":           "100",
		"quantity":        "2",
		"advance":         "50",
		"delivery_at":     "2024-03-10T10:00",
		"return_at":       "2024-03-12T18:00",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return fields
}

func httptestGet(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func httptestPost(target string) *http.Request {
	return httptest.NewRequest(http.MethodPost, target, nil)
}
