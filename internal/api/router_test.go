package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agroconnect/farm-scheduling/internal/notify"
	"github.com/agroconnect/farm-scheduling/internal/qr"
	redisclient "github.com/agroconnect/farm-scheduling/internal/redis"
	"github.com/agroconnect/farm-scheduling/internal/scheduling"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := zap.NewNop()
	svc := scheduling.NewService(
		scheduling.NewMemoryRepository(),
		redisclient.NewLocalLocker(),
		qr.NewService("https://app.example.com", ""),
		notify.NewLogNotifier(log),
		log)

	srv := httptest.NewServer(NewRouter(RouterConfig{
		Service: svc,
		Logger:  log,
		Env:     "test",
		Version: "test",
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestLivenessEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/health/live", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var live LivenessResponse
	require.NoError(t, json.Unmarshal(body, &live))
	assert.Equal(t, "ok", live.Status)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")

	// submit
	resp, body := doJSON(t, client, http.MethodPost, srv.URL+"/requests", CreateRequestRequest{
		FarmerID:       12,
		CenterID:       1,
		PreferredDate:  date,
		ContactPhone:   "+911234567890",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created RequestResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "pending", created.Status)

	// approve
	resp, body = doJSON(t, client, http.MethodPost,
		fmt.Sprintf("%s/requests/%d/approve", srv.URL, created.ID), ApproveRequestRequest{
			ApprovedDate:   date,
			StartTime:      "09:00",
			EndTime:        "10:00",
			FieldOfficerID: 3,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var approval struct {
		Request  RequestResponse  `json:"request"`
		Schedule ScheduleResponse `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(body, &approval))
	assert.Equal(t, "approved", approval.Request.Status)
	assert.Equal(t, "approved", approval.Schedule.Status)
	assert.NotNil(t, approval.Schedule.QRCodeData)

	// re-approving the same request conflicts
	resp, _ = doJSON(t, client, http.MethodPost,
		fmt.Sprintf("%s/requests/%d/approve", srv.URL, created.ID), ApproveRequestRequest{
			ApprovedDate:   date,
			StartTime:      "10:00",
			EndTime:        "11:00",
			FieldOfficerID: 3,
		})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// complete the schedule
	resp, body = doJSON(t, client, http.MethodPost,
		fmt.Sprintf("%s/schedules/%d/complete", srv.URL, approval.Schedule.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var completed ScheduleResponse
	require.NoError(t, json.Unmarshal(body, &completed))
	assert.Equal(t, "completed", completed.Status)
	assert.NotNil(t, completed.CompletedAt)
}

func TestApproveIntoFullSlotOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")

	resp, body := doJSON(t, client, http.MethodPost, srv.URL+"/time-slots", CreateSlotRequest{
		CenterID:    1,
		Date:        date,
		StartTime:   "09:00",
		EndTime:     "10:00",
		MaxBookings: 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var ids []int64
	for i := 0; i < 2; i++ {
		resp, body := doJSON(t, client, http.MethodPost, srv.URL+"/requests", CreateRequestRequest{
			FarmerID:      int64(i + 1),
			CenterID:      1,
			PreferredDate: date,
			ContactPhone:  "+911234567890",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		var created RequestResponse
		require.NoError(t, json.Unmarshal(body, &created))
		ids = append(ids, created.ID)
	}

	approve := ApproveRequestRequest{
		ApprovedDate:   date,
		StartTime:      "09:00",
		EndTime:        "10:00",
		FieldOfficerID: 3,
	}

	resp, _ = doJSON(t, client, http.MethodPost,
		fmt.Sprintf("%s/requests/%d/approve", srv.URL, ids[0]), approve)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, client, http.MethodPost,
		fmt.Sprintf("%s/requests/%d/approve", srv.URL, ids[1]), approve)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.NotEmpty(t, errResp.Error)
}

func TestRequestValidationOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	// malformed date
	resp, _ := doJSON(t, client, http.MethodPost, srv.URL+"/requests", map[string]any{
		"farmer_id":      1,
		"center_id":      1,
		"preferred_date": "14-09-2026",
		"contact_phone":  "+911234567890",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// missing farmer
	resp, _ = doJSON(t, client, http.MethodPost, srv.URL+"/requests", map[string]any{
		"center_id":      1,
		"preferred_date": "2026-09-14",
		"contact_phone":  "+911234567890",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// unknown request
	resp, _ = doJSON(t, client, http.MethodGet, srv.URL+"/requests/9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBulkAvailabilityOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	free := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	busy := time.Now().AddDate(0, 0, 2).Format("2006-01-02")

	for _, d := range []string{free, busy} {
		resp, body := doJSON(t, client, http.MethodPost, srv.URL+"/time-slots", CreateSlotRequest{
			CenterID: 1, Date: d, StartTime: "09:00", EndTime: "10:00", MaxBookings: 2,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := doJSON(t, client, http.MethodPost, srv.URL+"/requests", CreateRequestRequest{
		FarmerID: 1, CenterID: 1, PreferredDate: busy, ContactPhone: "+911234567890",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = doJSON(t, client, http.MethodPost, srv.URL+"/availability/dates/bulk", BulkDateAvailabilityRequest{
		CenterID:  1,
		Dates:     []string{free, busy},
		Available: false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var report BulkAvailabilityResponse
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, []string{free}, report.Updated)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, busy, report.Failed[0].Date)
}
