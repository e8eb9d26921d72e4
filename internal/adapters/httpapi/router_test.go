package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusflow/nexusflow-client/internal/adapters/gemini"
	"github.com/nexusflow/nexusflow-client/internal/adapters/httpapi"
	"github.com/nexusflow/nexusflow-client/internal/app/gateway"
	"github.com/nexusflow/nexusflow-client/internal/domain"
)

func newServer(t *testing.T, key string) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.RouterOptions{APIKey: key, Registry: reg, Log: zerolog.Nop()}))
	t.Cleanup(srv.Close)
	return srv, reg
}

func post(t *testing.T, url, key, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("x-goog-api-key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, "k")
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_APIKey(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, "secret")
	url := srv.URL + "/v1beta/models/m:generateContent"
	body := `{"contents":[{"parts":[{"text":"hi"}]}],"generationConfig":{"responseSchema":{"type":"ARRAY","items":{"type":"STRING"}}}}`

	resp, b := post(t, url, "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var ae gemini.APIError
	require.NoError(t, json.Unmarshal(b, &ae))
	assert.Equal(t, "UNAUTHENTICATED", ae.Error.Status)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, _ = post(t, url, "wrong", body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = post(t, url, "secret", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_GenerateContentValidation(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, "")
	url := srv.URL + "/v1beta/models/m:generateContent"
	cases := []struct {
		name string
		body string
		want string
	}{
		{"garbage", `{`, "invalid JSON"},
		{"no contents", `{"contents":[]}`, "contents"},
		{"no schema", `{"contents":[{"parts":[{"text":"hi"}]}]}`, "responseSchema"},
		{"odd schema", `{"contents":[{"parts":[{"text":"hi"}]}],"generationConfig":{"responseSchema":{"type":"OBJECT"}}}`, "unsupported"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, b := post(t, url, "any", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var ae gemini.APIError
			require.NoError(t, json.Unmarshal(b, &ae))
			assert.Equal(t, "INVALID_ARGUMENT", ae.Error.Status)
			assert.Contains(t, ae.Error.Message, tc.want)
		})
	}
}

// The gateway runs unchanged against the stand-in.
func TestRouter_ServesGateway(t *testing.T) {
	t.Parallel()
	srv, reg := newServer(t, "")
	ctx := context.Background()
	gw := gateway.New(gemini.NewClient(gemini.Options{
		BaseURL: srv.URL,
		APIKey:  "dev",
		Model:   "gemini-3-flash-preview",
		Timeout: 2 * time.Second,
	}), zerolog.Nop(), gateway.Options{Timeout: 2 * time.Second})

	rs := gw.SmartRoutes(ctx, "Home", "Airport", []domain.RoutePreference{domain.RoutePreferenceFast})
	require.Len(t, rs, 3)
	assert.Equal(t, domain.TransportModeWalking, rs[0].Mode)
	assert.Equal(t, domain.TransportModeCab, rs[1].Mode)
	assert.Contains(t, rs[1].Segments[0].Instruction, "Home to Airport")

	near := gw.NearbyMatches(ctx, "Airport", domain.TransportModeAuto)
	require.Len(t, near, 3)
	assert.Equal(t, "Airport", near[0].Destination)
	assert.Nil(t, near[0].ScheduledTime)

	sched := gw.ScheduledMatches(ctx, "Airport", "Tomorrow at 06:00 PM")
	require.Len(t, sched, 3)
	require.NotNil(t, sched[2].ScheduledTime)
	assert.Equal(t, "Tomorrow at 06:00 PM", *sched[2].ScheduledTime)

	places := gw.PlaceSuggestions(ctx, "Kora")
	assert.Equal(t, []string{"Kora Metro Station", "Kora Bus Terminal", "Kora Market", "Kora Tech Park", "Kora Junction"}, places)

	n, err := testutil.GatherAndCount(reg, "nexusflow_devmodel_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), `nexusflow_devmodel_requests_total{model="gemini-3-flash-preview",template="routes"} 1`)
}
