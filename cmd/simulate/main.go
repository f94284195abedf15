package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agroconnect/farm-scheduling/internal/config"
	"github.com/agroconnect/farm-scheduling/internal/db"
)

// simulate replays an admin approval rush against a running api-server:
// many workers approving pending soil-test requests for the same slot
// inventory at once, plus background reads. Conflict counts in the report
// show the capacity guard holding under contention.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	ApproveRatio float64
	ReadRatio    float64
	RequestLimit int
	PostgresDSN  string
}

type pendingRequest struct {
	ID       int64
	CenterID int64
	Date     time.Time
}

type DataPool struct {
	Requests []pendingRequest
	FarmerID []int64

	mu        sync.RWMutex
	schedules []int64
}

func (dp *DataPool) AddSchedule(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.schedules = append(dp.schedules, id)
}

func (dp *DataPool) RandomSchedule(rng *rand.Rand) (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.schedules) == 0 {
		return 0, false
	}
	return dp.schedules[rng.Intn(len(dp.schedules))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIdx(len(latencies), 50)]
	p95 = latencies[percentileIdx(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIdx(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Approve        OperationMetrics
	ReadSchedule   OperationMetrics
	ListAvailable  OperationMetrics
	FarmerSchedule OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics

	// next unclaimed index into pool.Requests; each approval attempt
	// takes a fresh pending request exactly once
	cursor int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d approve=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.ApproveRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d pending requests, %d farmers",
		len(dataPool.Requests), len(dataPool.FarmerID))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		ApproveRatio: getFloat("SIM_APPROVE_RATIO", 0.6),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.4),
		RequestLimit: getInt("SIM_REQUEST_LIMIT", 2000),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	total := cfg.ApproveRatio + cfg.ReadRatio
	if total > 0 {
		cfg.ApproveRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id, center_id, preferred_date, farmer_id
		FROM soil_test_requests
		WHERE status = 'pending'
		ORDER BY id
		LIMIT $1
	`, cfg.RequestLimit)
	if err != nil {
		return nil, fmt.Errorf("load pending requests: %w", err)
	}
	defer rows.Close()

	farmerSeen := map[int64]bool{}
	for rows.Next() {
		var req pendingRequest
		var farmerID int64
		if err := rows.Scan(&req.ID, &req.CenterID, &req.Date, &farmerID); err != nil {
			return nil, err
		}
		dataPool.Requests = append(dataPool.Requests, req)
		if !farmerSeen[farmerID] {
			farmerSeen[farmerID] = true
			dataPool.FarmerID = append(dataPool.FarmerID, farmerID)
		}
	}

	if len(dataPool.Requests) == 0 {
		return nil, fmt.Errorf("no pending requests loaded (run cmd/seed first)")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			if r < s.config.ApproveRatio {
				s.doApprove(ctx, rng)
			} else {
				switch rng.Intn(3) {
				case 0:
					s.doReadSchedule(ctx, rng)
				case 1:
					s.doListAvailable(ctx, rng)
				case 2:
					s.doFarmerSchedules(ctx, rng)
				}
			}
		}
	}
}

var intervals = [][2]string{
	{"09:00", "10:00"},
	{"10:00", "11:00"},
	{"11:00", "12:00"},
	{"14:00", "15:00"},
	{"15:00", "16:00"},
}

func (s *Simulator) doApprove(ctx context.Context, rng *rand.Rand) {
	idx := atomic.AddInt64(&s.cursor, 1) - 1
	if idx >= int64(len(s.pool.Requests)) {
		// out of fresh requests; keep hammering reads instead
		s.doReadSchedule(ctx, rng)
		return
	}
	req := s.pool.Requests[idx]

	// Every worker funnels into the same few intervals so that slots
	// fill and later approvals hit the capacity guard.
	iv := intervals[rng.Intn(len(intervals))]

	start := time.Now()

	reqBody := map[string]any{
		"approved_date":    req.Date.Format("2006-01-02"),
		"start_time":       iv[0],
		"end_time":         iv[1],
		"field_officer_id": int64(rng.Intn(5) + 1),
	}
	body, _ := json.Marshal(reqBody)

	httpReq, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/requests/%d/approve", s.config.APIBaseURL, req.ID), bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated:
			success = true
			var schedResp struct {
				Schedule struct {
					ID int64 `json:"id"`
				} `json:"schedule"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if len(bodyBytes) > 0 {
				_ = json.Unmarshal(bodyBytes, &schedResp)
				if schedResp.Schedule.ID != 0 {
					s.pool.AddSchedule(schedResp.Schedule.ID)
				}
			}
		case http.StatusConflict:
			conflict = true
		}
	}

	s.metrics.Approve.Record(latency, success, conflict)
}

func (s *Simulator) doReadSchedule(ctx context.Context, rng *rand.Rand) {
	schedID, ok := s.pool.RandomSchedule(rng)
	if !ok {
		return
	}

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/schedules/%d", s.config.APIBaseURL, schedID), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ReadSchedule.Record(latency, success, false)
}

func (s *Simulator) doListAvailable(ctx context.Context, rng *rand.Rand) {
	req0 := s.pool.Requests[rng.Intn(len(s.pool.Requests))]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/time-slots/available?center_id=%d&date_from=%s",
			s.config.APIBaseURL, req0.CenterID, req0.Date.Format("2006-01-02")), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ListAvailable.Record(latency, success, false)
}

func (s *Simulator) doFarmerSchedules(ctx context.Context, rng *rand.Rand) {
	if len(s.pool.FarmerID) == 0 {
		return
	}
	farmerID := s.pool.FarmerID[rng.Intn(len(s.pool.FarmerID))]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/farmers/%d/schedules", s.config.APIBaseURL, farmerID), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.FarmerSchedule.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Approve", &s.metrics.Approve)
	printOperationReport("Read Schedule", &s.metrics.ReadSchedule)
	printOperationReport("List Available Slots", &s.metrics.ListAvailable)
	printOperationReport("Farmer Schedules", &s.metrics.FarmerSchedule)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errs := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, float64(errs)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
