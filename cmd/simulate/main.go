package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalbook/scheduling/internal/config"
	"github.com/vitalbook/scheduling/internal/db"
	"github.com/vitalbook/scheduling/internal/logging"
)

// The simulator hammers the availability endpoint while racing bookings for
// the slots it discovers, which is exactly the contention pattern the slot
// lock and the transactional insert are there for.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	ReadRatio    float64
	BookingRatio float64
	SettleRatio  float64 // confirm or cancel an earlier booking
	ServiceLimit int
	PostgresDSN  string
}

type servicePair struct {
	PractitionerID uuid.UUID
	ServiceID      uuid.UUID
}

type discoveredSlot struct {
	pair  servicePair
	start time.Time
}

type DataPool struct {
	Pairs []servicePair

	mu       sync.RWMutex
	slots    []discoveredSlot
	bookings []uuid.UUID
}

func (dp *DataPool) AddSlots(pair servicePair, starts []time.Time) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	for _, s := range starts {
		dp.slots = append(dp.slots, discoveredSlot{pair: pair, start: s})
	}
	// Bound memory under long runs.
	if len(dp.slots) > 50000 {
		dp.slots = dp.slots[len(dp.slots)-25000:]
	}
}

func (dp *DataPool) RandomSlot(rng *rand.Rand) (discoveredSlot, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.slots) == 0 {
		return discoveredSlot{}, false
	}
	return dp.slots[rng.Intn(len(dp.slots))], true
}

func (dp *DataPool) AddBooking(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, id)
}

func (dp *DataPool) RandomBooking(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.bookings) == 0 {
		return uuid.Nil, false
	}
	return dp.bookings[rng.Intn(len(dp.bookings))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
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
	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]
	return avg, min, max, p50, p95
}

type Metrics struct {
	Availability OperationMetrics
	Booking      OperationMetrics
	Confirm      OperationMetrics
	Cancel       OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log := logging.New("dev", "simulate")
	log.Info().Msg("simulator starting")

	cfg := loadSimConfig()
	log.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Msg("simulation configured")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	pool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}
	log.Info().Int("pairs", len(pool.Pairs)).Msg("loaded practitioner/service pairs")

	sim := &Simulator{
		config: cfg,
		pool:   pool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base config: %v\n", err)
		os.Exit(1)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.6),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.3),
		SettleRatio:  getFloat("SIM_SETTLE_RATIO", 0.1),
		ServiceLimit: getInt("SIM_SERVICE_LIMIT", 500),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	total := cfg.ReadRatio + cfg.BookingRatio + cfg.SettleRatio
	if total > 0 {
		cfg.ReadRatio /= total
		cfg.BookingRatio /= total
		cfg.SettleRatio /= total
	}

	return cfg
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT practitioner_id, id
		FROM services
		WHERE is_active
		LIMIT $1
	`, cfg.ServiceLimit)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p servicePair
		if err := rows.Scan(&p.PractitionerID, &p.ServiceID); err != nil {
			return nil, err
		}
		dataPool.Pairs = append(dataPool.Pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Pairs) == 0 {
		return nil, fmt.Errorf("no active services loaded, run cmd/seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.ReadRatio:
				s.doAvailability(ctx, rng)
			case r < s.config.ReadRatio+s.config.BookingRatio:
				s.doBooking(ctx, rng)
			default:
				if rng.Intn(2) == 0 {
					s.doConfirm(ctx, rng)
				} else {
					s.doCancel(ctx, rng)
				}
			}
		}
	}
}

func (s *Simulator) doAvailability(ctx context.Context, rng *rand.Rand) {
	pair := s.pool.Pairs[rng.Intn(len(s.pool.Pairs))]

	from := time.Now().AddDate(0, 0, 1+rng.Intn(14))
	to := from.AddDate(0, 0, 6)
	url := fmt.Sprintf("%s/practitioners/%s/services/%s/availability?start=%s&end=%s",
		s.config.APIBaseURL, pair.PractitionerID, pair.ServiceID,
		from.Format("2006-01-02"), to.Format("2006-01-02"))

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			success = true
			var body struct {
				Slots []struct {
					Start time.Time `json:"start"`
				} `json:"slots"`
			}
			if json.NewDecoder(resp.Body).Decode(&body) == nil && len(body.Slots) > 0 {
				starts := make([]time.Time, 0, len(body.Slots))
				for _, sl := range body.Slots {
					starts = append(starts, sl.Start)
				}
				s.pool.AddSlots(pair, starts)
			}
		}
	}

	s.metrics.Availability.Record(latency, success, false)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	slot, ok := s.pool.RandomSlot(rng)
	if !ok {
		s.doAvailability(ctx, rng)
		return
	}

	reqBody := map[string]any{
		"practitioner_id": slot.pair.PractitionerID.String(),
		"service_id":      slot.pair.ServiceID.String(),
		"client_id":       uuid.NewString(),
		"start":           slot.start.Format(time.RFC3339),
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var created struct {
				ID uuid.UUID `json:"id"`
			}
			if json.NewDecoder(resp.Body).Decode(&created) == nil && created.ID != uuid.Nil {
				s.pool.AddBooking(created.ID)
			}
		case http.StatusConflict:
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}
	s.settle(ctx, id, "confirm", &s.metrics.Confirm)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}
	s.settle(ctx, id, "cancel", &s.metrics.Cancel)
}

func (s *Simulator) settle(ctx context.Context, id uuid.UUID, action string, om *OperationMetrics) {
	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bookings/%s/%s", s.config.APIBaseURL, id, action), nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}

	om.Record(latency, success, conflict)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n\n", s.config.Workers)

	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Cancel", &s.metrics.Cancel)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
}

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
