package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
)

type recordingObserver struct {
	calls []string
}

func (r *recordingObserver) ObserveUpstream(method, endpoint string, status int, _ time.Duration) {
	r.calls = append(r.calls, method+" "+endpoint)
}

func TestDescriptorQueryIsDeterministic(t *testing.T) {
	d := Descriptor{URL: "/api/recommendationrequest/post", Method: http.MethodPost, Params: map[string]any{
		"professorId":        int64(3),
		"details":            "grad school",
		"recommendationType": "PhDprogram",
		"missing":            nil,
	}}

	assert.Equal(t, "details=grad+school&professorId=3&recommendationType=PhDprogram", d.Query().Encode())
	assert.Equal(t, "POST /api/recommendationrequest/post?details=grad+school&professorId=3&recommendationType=PhDprogram", d.String())
}

func TestClientSendsParamsBodyAndToken(t *testing.T) {
	var gotMethod, gotQuery, gotAuth string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"id":17,"status":"COMPLETED"}`))
	}))
	defer server.Close()

	observer := &recordingObserver{}
	client := NewClient(server.URL+"/", time.Second, nil, WithObserver(observer))
	ctx := WithToken(context.Background(), "tok")

	raw, err := client.Do(ctx, Descriptor{
		URL:    "/api/recommendationrequest/professor",
		Method: http.MethodPut,
		Params: map[string]any{"id": int64(17)},
		Data:   map[string]string{"status": "COMPLETED"},
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"id":17,"status":"COMPLETED"}`, string(raw))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "id=17", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "COMPLETED", gotBody["status"])
	assert.Equal(t, []string{"PUT /api/recommendationrequest/professor"}, observer.calls)
}

func TestClientMapsNon2xxToUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"RecommendationRequest with id 9 not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, nil)
	_, err := client.Do(context.Background(), Descriptor{URL: "/api/recommendationrequest", Params: map[string]any{"id": 9}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Contains(t, err.Error(), "not found")
}

func TestClientMapsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, time.Second, nil)
	_, err := client.Do(context.Background(), Descriptor{URL: "/api/requesttypes/all", Method: http.MethodGet})

	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstreamUnavailable))
}
