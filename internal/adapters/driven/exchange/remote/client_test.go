package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// captured is one request seen by the test server.
type captured struct {
	Auth string
	Body []byte
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, chan captured) {
	t.Helper()
	seen := make(chan captured, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen <- captured{Auth: r.Header.Get("Authorization"), Body: body}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func sampleRecords() []domain.UnsyncedRecord {
	return []domain.UnsyncedRecord{
		{ID: "1", Type: "todo", State: domain.StateUpdated, Data: json.RawMessage(`{"title":"a"}`)},
		{ID: "2", Type: "todo", State: domain.StateDeleted, Data: json.RawMessage(`{}`)},
	}
}

func TestClient_RequestWireFormat(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"records":[]}`)
	client, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.Exchange(context.Background(), sampleRecords(), "ns", "c1")
	require.NoError(t, err)

	req := <-seen
	var pretty bytes.Buffer
	require.NoError(t, json.Indent(&pretty, req.Body, "", "  "))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "exchange_request", pretty.Bytes())
}

func TestClient_OmitsEmptyCursorAndSendsEmptyArray(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"records":[]}`)
	client, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.Exchange(context.Background(), nil, "", "")
	require.NoError(t, err)

	req := <-seen
	assert.JSONEq(t, `{"records":[],"namespace":""}`, string(req.Body))
}

func TestClient_DecodesResponse(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{
		"records": [
			{"id":"1","type":"todo","state":"updated","data":{"title":"a"}},
			{"id":"2","type":"todo","state":"deleted","data":{}}
		],
		"syncCursor": "c2"
	}`)
	client, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	res, err := client.Exchange(context.Background(), nil, "ns", "c1")
	require.NoError(t, err)

	assert.Equal(t, "c2", res.SyncCursor)
	require.Len(t, res.Records, 2)
	assert.Equal(t, domain.StateDeleted, res.Records[1].State)
	assert.JSONEq(t, `{"title":"a"}`, string(res.Records[0].Data))
}

func TestClient_BearerToken(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"records":[]}`)
	client, err := New(Config{URL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	_, err = client.Exchange(context.Background(), nil, "ns", "")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", (<-seen).Auth)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"records":[]}`)
	client, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.Exchange(context.Background(), nil, "ns", "")
	require.NoError(t, err)

	assert.Empty(t, (<-seen).Auth)
}

func TestClient_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadRequest, `{"error":"validation failed: record 0: id must not be empty"}`)
	client, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.Exchange(context.Background(), nil, "ns", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "validation failed: record 0: id must not be empty", err.Error())
}

func TestClient_ServerError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, `boom`)
	client, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.Exchange(context.Background(), nil, "ns", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500: boom")
	assert.NotErrorIs(t, err, domain.ErrValidation)
}

func TestClient_TooManyRequestsBacksOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.Exchange(context.Background(), nil, "ns", "")
	require.Error(t, err)
	assert.WithinDuration(t, time.Now().Add(120*time.Second), client.limiter.RetryAt(), 5*time.Second)

	// The next call waits for the backoff and gives up with the context.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Exchange(ctx, nil, "ns", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Exchange(ctx, nil, "ns", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(Config{URL: "ftp://example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRateLimiter_Spacing(t *testing.T) {
	limiter := NewRateLimiter(50, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRateLimiter_Unlimited(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
