package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/referral-cli/internal/model"
	"github.com/sells-group/referral-cli/internal/pipeline"
	"github.com/sells-group/referral-cli/internal/scorer"
	"github.com/sells-group/referral-cli/internal/status"
)

func testServer(deps Deps) *httptest.Server {
	if deps.Status == nil {
		deps.Status = func(ctx context.Context) StatusResponse { return StatusResponse{} }
	}
	if deps.Refresh == nil {
		deps.Refresh = func(ctx context.Context) (*pipeline.Result, error) {
			return &pipeline.Result{BuiltAt: time.Now()}, nil
		}
	}
	if deps.Recommend == nil {
		deps.Recommend = func(ctx context.Context, req RecommendRequest) (*scorer.Result, error) {
			return &scorer.Result{Reason: scorer.ReasonOK}, nil
		}
	}
	return httptest.NewServer(New(deps, 0).Handler())
}

func TestHealthz(t *testing.T) {
	ts := testServer(Deps{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz_AnswersWhileLoadInFlight(t *testing.T) {
	release := make(chan struct{})
	ts := testServer(Deps{
		Refresh: func(ctx context.Context) (*pipeline.Result, error) {
			<-release
			return &pipeline.Result{BuiltAt: time.Now()}, nil
		},
	})
	defer ts.Close()

	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
		if err == nil {
			resp.Body.Close()
		}
	}()

	// The health endpoint must respond while the refresh is blocked.
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	close(release)
	<-refreshDone
}

func TestStatus(t *testing.T) {
	board := status.NewBoard()
	board.RecordFetch("referrals", "m1")

	ts := testServer(Deps{
		Status: func(ctx context.Context) StatusResponse {
			return StatusResponse{Sources: board.Snapshot()}
		},
	})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Sources.Sources, 1)
	assert.Equal(t, "referrals", body.Sources.Sources[0].Name)
}

func TestRecommend(t *testing.T) {
	var got RecommendRequest
	ts := testServer(Deps{
		Recommend: func(ctx context.Context, req RecommendRequest) (*scorer.Result, error) {
			got = req
			return &scorer.Result{
				Reason: scorer.ReasonOK,
				Candidates: []scorer.ScoredCandidate{
					{Provider: model.Provider{FullName: "Dr. Doe"}, Score: -0.2},
				},
			}, nil
		},
	})
	defer ts.Close()

	body := `{"latitude":30.2672,"longitude":-97.7431,"specialties":["chiropractic"],"limit":5}`
	resp, err := http.Post(ts.URL+"/api/recommend", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res scorer.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Dr. Doe", res.Candidates[0].Provider.FullName)

	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 30.2672, *got.Latitude, 1e-9)
	assert.Equal(t, 5, got.Limit)
}

func TestRecommend_BadJSON(t *testing.T) {
	ts := testServer(Deps{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/recommend", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecommend_HalfCoordinateRejected(t *testing.T) {
	ts := testServer(Deps{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/recommend", "application/json", strings.NewReader(`{"latitude":30.1}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefresh(t *testing.T) {
	ts := testServer(Deps{
		Refresh: func(ctx context.Context) (*pipeline.Result, error) {
			return &pipeline.Result{
				Providers:      make([]model.Provider, 3),
				InboundEvents:  7,
				OutboundEvents: 4,
				BuiltAt:        time.Now(),
			}, nil
		},
	})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 3, body["providers"])
	assert.EqualValues(t, 7, body["inbound_events"])
}

func TestRefresh_Error(t *testing.T) {
	ts := testServer(Deps{
		Refresh: func(ctx context.Context) (*pipeline.Result, error) {
			return nil, eris.New("source unreachable")
		},
	})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
