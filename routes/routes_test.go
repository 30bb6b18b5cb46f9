package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/upgradeforless/UpgradeForLess/controllers"
	"github.com/upgradeforless/UpgradeForLess/gateway"
	"github.com/upgradeforless/UpgradeForLess/services"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

func newTestRouter(env string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	gateways := gateway.NewRegistry(gateway.NewRazorpay("key", "secret", "whsec_test"))
	return SetupRouter(Dependencies{
		Env:             env,
		JWTSecret:       "jwt-secret",
		CORSAllowOrigin: "https://app.upgradeforless.in",
		Webhooks: controllers.NewWebhookController(gateways, services.NewReconciler(nil, nil),
			services.NopDeduper{}, services.NopNotifier{}, utils.VerifyModeEnforce),
		Payments: controllers.NewPaymentController(nil),
		Health:   controllers.NewHealthController(nil),
		Dev:      controllers.NewDevWebhookController(gateways),
	})
}

func request(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupRouter(t *testing.T) {
	router := newTestRouter(utils.EnvDevelopment)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{name: "health", method: http.MethodGet, path: "/health", code: http.StatusOK},
		{name: "webhook wrong method", method: http.MethodGet, path: "/webhooks/razorpay", code: http.StatusMethodNotAllowed},
		{name: "webhook preflight is not CORS", method: http.MethodOptions, path: "/webhooks/razorpay", code: http.StatusMethodNotAllowed},
		{name: "webhook unsigned", method: http.MethodPost, path: "/webhooks/razorpay", body: `{"event":"payment.captured"}`, code: http.StatusBadRequest},
		{name: "api preflight", method: http.MethodOptions, path: "/v1/payments", code: http.StatusNoContent},
		{name: "payments need a token", method: http.MethodGet, path: "/v1/payments", code: http.StatusUnauthorized},
		{name: "admin needs a token", method: http.MethodGet, path: "/v1/admin/payments/export", code: http.StatusUnauthorized},
		{name: "dev signer", method: http.MethodPost, path: "/v1/dev/webhooks/razorpay/sign", body: `{"event":"payment.captured"}`, code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestSetupRouter_CORSOnlyOnAPI(t *testing.T) {
	router := newTestRouter(utils.EnvDevelopment)

	w := request(router, http.MethodOptions, "/v1/payments/orders", "")
	assert.Equal(t, "https://app.upgradeforless.in", w.Header().Get("Access-Control-Allow-Origin"))

	w = request(router, http.MethodGet, "/health", "")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRouter_NoDevRoutesInProduction(t *testing.T) {
	router := newTestRouter(utils.EnvProduction)
	defer gin.SetMode(gin.TestMode)

	w := request(router, http.MethodPost, "/v1/dev/webhooks/razorpay/sign", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
