package mediathek

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medow/pkg/models"
)

const testUserAgent = "Mozilla/5.0 Linux Medow/0.1"

const sampleResponse = `{
  "result": {
    "results": [
      {
        "channel": "ARD",
        "topic": "Tatort",
        "title": "Das Erbe",
        "description": "Kommissar ermittelt",
        "timestamp": 1700000000,
        "duration": 5400,
        "size": 1234567,
        "url_website": "https://example.org/tatort",
        "url_subtitle": "",
        "url_video": "https://cdn.example.org/sd.mp4",
        "url_video_low": "https://cdn.example.org/low.mp4",
        "url_video_hd": "https://cdn.example.org/hd.mp4",
        "filmlisteTimestamp": "1700000100",
        "id": "abc123"
      },
      {
        "channel": "ZDF",
        "topic": "heute",
        "title": "heute 19 Uhr",
        "timestamp": "1700003600",
        "duration": "",
        "size": "",
        "url_video": "",
        "url_video_hd": "",
        "id": "def456"
      }
    ],
    "queryInfo": {
      "filmlisteTimestamp": "1700000100",
      "searchEngineTime": "3.21",
      "resultCount": 2,
      "totalResults": 42
    }
  },
  "err": null
}`

func newFakeServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(testUserAgent, WithBaseURL(baseURL), WithTimeout(5*time.Second), WithRateLimit(0))
	require.NoError(t, err)
	return c
}

func TestNewRejectsInvalidUserAgent(t *testing.T) {
	for _, ua := range []string{"", "   ", "Medow\n/0.1", "bad\x00agent"} {
		_, err := New(ua)
		assert.ErrorIs(t, err, ErrInvalidUserAgent, "user agent %q", ua)
	}

	c, err := New(testUserAgent)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestQuerySendsRequestShape(t *testing.T) {
	var got map[string]interface{}
	var contentType, userAgent, path string

	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		userAgent = r.Header.Get("User-Agent")
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		io.WriteString(w, sampleResponse)
	})

	c := newTestClient(t, srv.URL+"/")
	_, err := c.Query([]Field{FieldTopic, FieldTitle}, "tatort").
		IncludeFuture(false).
		SortBy(SortByTimestamp).
		SortOrder(Descending).
		Size(15).
		Offset(30).
		Do(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/api/query", path)
	assert.Equal(t, "text/plain", contentType)
	assert.Equal(t, testUserAgent, userAgent)

	want := map[string]interface{}{
		"queries": []interface{}{
			map[string]interface{}{
				"fields": []interface{}{"topic", "title"},
				"query":  "tatort",
			},
		},
		"sortBy":    "timestamp",
		"sortOrder": "desc",
		"future":    false,
		"offset":    float64(30),
		"size":      float64(15),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryDurationFilters(t *testing.T) {
	var got map[string]interface{}
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, sampleResponse)
	})

	c := newTestClient(t, srv.URL)
	_, err := c.Query([]Field{FieldTitle}, "doku").
		DurationMin(10 * time.Minute).
		DurationMax(time.Hour).
		Do(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(600), got["duration_min"])
	assert.Equal(t, float64(3600), got["duration_max"])
}

func TestQueryDecodesResults(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleResponse)
	})

	c := newTestClient(t, srv.URL)
	result, err := c.Query([]Field{FieldTopic, FieldTitle}, "x").Do(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 42, result.Total)
	assert.Equal(t, 2, result.ResultCount)
	assert.Equal(t, "3.21", result.SearchEngineTime)
	require.Len(t, result.Results, 2)

	first := result.Results[0]
	assert.Equal(t, "Das Erbe", first.Title)
	assert.Equal(t, "Tatort", first.Topic)
	assert.Equal(t, int64(1700000000), first.Timestamp)
	require.NotNil(t, first.Duration)
	assert.Equal(t, 90*time.Minute, *first.Duration)
	require.NotNil(t, first.URLVideoHD)
	assert.Equal(t, "https://cdn.example.org/hd.mp4", *first.URLVideoHD)

	second := result.Results[1]
	assert.Equal(t, int64(1700003600), second.Timestamp)
	assert.Nil(t, second.Duration)
	assert.Nil(t, second.URLVideoHD, "empty HD url is treated as absent")
	assert.Nil(t, second.URLVideoLow)
	assert.Equal(t, int64(0), second.Size)
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"server error", http.StatusInternalServerError, "oops", ErrUpstreamError},
		{"malformed body", http.StatusOK, "{not json", ErrBadResponse},
		{"missing result", http.StatusOK, `{"result": null, "err": null}`, ErrBadResponse},
		{"rejected query", http.StatusOK, `{"result": null, "err": ["invalid query"]}`, ErrQueryRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			c := newTestClient(t, srv.URL)
			_, err := c.Query([]Field{FieldTitle}, "x").Do(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestQueryTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.Query([]Field{FieldTitle}, "x").Do(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestQueryHonoursCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		io.WriteString(w, sampleResponse)
	})
	defer close(release)

	c := newTestClient(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Query([]Field{FieldTitle}, "slow").Do(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIdenticalQueriesShareOneRoundTrip(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		io.WriteString(w, sampleResponse)
	})

	c := newTestClient(t, srv.URL)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*models.QueryResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Query([]Field{FieldTitle}, "same").Do(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i].Total)
	}

	// callers receive independent copies
	results[0].Results[0].Title = "mutated"
	assert.Equal(t, "Das Erbe", results[1].Results[0].Title)
}

func TestAbandonedQueryDoesNotBlockRetry(t *testing.T) {
	var calls atomic.Int32
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// hang until the client gives up on the request
			<-r.Context().Done()
			return
		}
		io.WriteString(w, sampleResponse)
	})

	c, err := New(testUserAgent, WithBaseURL(srv.URL), WithTimeout(0), WithRateLimit(0))
	require.NoError(t, err)

	first, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	_, err = c.Query([]Field{FieldTitle}, "tatort").Do(first)
	require.ErrorIs(t, err, context.Canceled)

	retry, cancelRetry := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelRetry()
	result, err := c.Query([]Field{FieldTitle}, "tatort").Do(retry)
	require.NoError(t, err)
	assert.Equal(t, 42, result.Total)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSharedQuerySurvivesOneWaiterLeaving(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		io.WriteString(w, sampleResponse)
	})
	c := newTestClient(t, srv.URL)

	stayed := make(chan error, 1)
	go func() {
		_, err := c.Query([]Field{FieldTitle}, "same").Do(context.Background())
		stayed <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Query([]Field{FieldTitle}, "same").Do(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.NoError(t, <-stayed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWithTimeoutLeavesCallerClientAlone(t *testing.T) {
	hc := &http.Client{Timeout: 5 * time.Second}
	c, err := New(testUserAgent, WithHTTPClient(hc), WithTimeout(time.Second))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, hc.Timeout)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}
