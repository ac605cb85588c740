package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"github.com/hackgods/practice-records/internal/logging"
	"github.com/hackgods/practice-records/internal/practice"
)

// simulate drives a running api-server with concurrent clients. Writes are
// serialized by the store, so rising write latency under load is expected.
type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	WriteRatio  float64
	UpdateRatio float64
	ReadRatio   float64
}

type DataPool struct {
	mu           sync.RWMutex
	patients     []practice.ID
	appointments []practice.ID
}

func (dp *DataPool) add(dst *[]practice.ID, id practice.ID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	*dst = append(*dst, id)
}

func (dp *DataPool) pick(src *[]practice.ID, rng *rand.Rand) (practice.ID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(*src) == 0 {
		return 0, false
	}
	return (*src)[rng.Intn(len(*src))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Rejected  int64 // 4xx
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		atomic.AddInt64(&om.Error, 1)
	case status >= http.StatusBadRequest:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Success, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	lo = latencies[0]
	hi = latencies[len(latencies)-1]
	p50 = latencies[min(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, lo, hi, p50, p95
}

type Metrics struct {
	CreatePatient     OperationMetrics
	CreateAppointment OperationMetrics
	UpdateAppointment OperationMetrics
	Dashboard         OperationMetrics
	DaySchedule       OperationMetrics
	PatientDetail     OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  zerolog.Logger
}

func main() {
	logger := logging.New(getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"))

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger.Info().
		Str("api", cfg.APIBaseURL).
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("write", cfg.WriteRatio).
		Float64("update", cfg.UpdateRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		pool:   &DataPool{},
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sim.loadPatients(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load patients")
	}
	logger.Info().Int("patients", len(sim.pool.patients)).Msg("data pool loaded")

	sim.Run()
	sim.PrintReport(os.Stdout)
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:  strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 10),
		WriteRatio:  getFloat("SIM_WRITE_RATIO", 0.3),
		UpdateRatio: getFloat("SIM_UPDATE_RATIO", 0.1),
		ReadRatio:   getFloat("SIM_READ_RATIO", 0.6),
	}

	total := cfg.WriteRatio + cfg.UpdateRatio + cfg.ReadRatio
	if total > 0 {
		cfg.WriteRatio /= total
		cfg.UpdateRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func (s *Simulator) loadPatients(ctx context.Context) error {
	var patients []practice.Patient
	status, err := s.call(ctx, http.MethodGet, "/api/patients", nil, &patients)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("list patients: status %d", status)
	}
	for _, p := range patients {
		s.pool.patients = append(s.pool.patients, p.ID)
	}
	return nil
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
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.WriteRatio:
			if rng.Intn(4) == 0 {
				s.doCreatePatient(ctx)
			} else {
				s.doCreateAppointment(ctx, rng)
			}
		case r < s.config.WriteRatio+s.config.UpdateRatio:
			s.doUpdateAppointment(ctx, rng)
		default:
			switch rng.Intn(3) {
			case 0:
				s.timed(ctx, &s.metrics.Dashboard, http.MethodGet, "/api/dashboard", nil, nil)
			case 1:
				s.timed(ctx, &s.metrics.DaySchedule, http.MethodGet, "/api/appointments?date="+time.Now().Format(practice.DateLayout), nil, nil)
			case 2:
				if id, ok := s.pool.pick(&s.pool.patients, rng); ok {
					s.timed(ctx, &s.metrics.PatientDetail, http.MethodGet, fmt.Sprintf("/api/patients/%d/detail", id), nil, nil)
				}
			}
		}
	}
}

func (s *Simulator) doCreatePatient(ctx context.Context) {
	var p practice.Patient
	body := map[string]string{"name": gofakeit.Name(), "phone": gofakeit.Phone(), "email": gofakeit.Email()}
	if s.timed(ctx, &s.metrics.CreatePatient, http.MethodPost, "/api/patients", body, &p) == http.StatusCreated {
		s.pool.add(&s.pool.patients, p.ID)
	}
}

func (s *Simulator) doCreateAppointment(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.pick(&s.pool.patients, rng)
	if !ok {
		s.doCreatePatient(ctx)
		return
	}
	body := map[string]any{
		"patient_id": id,
		"date":       time.Now().AddDate(0, 0, rng.Intn(28)).Format(practice.DateLayout),
		"time":       fmt.Sprintf("%02d:%02d", 8+rng.Intn(9), 15*rng.Intn(4)),
		"reason":     "Simulated visit",
	}
	var a practice.Appointment
	if s.timed(ctx, &s.metrics.CreateAppointment, http.MethodPost, "/api/appointments", body, &a) == http.StatusCreated {
		s.pool.add(&s.pool.appointments, a.ID)
	}
}

func (s *Simulator) doUpdateAppointment(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.pick(&s.pool.appointments, rng)
	if !ok {
		return
	}
	status := []string{"Confirmed", "Completed", "Cancelled"}[rng.Intn(3)]
	s.timed(ctx, &s.metrics.UpdateAppointment, http.MethodPut, fmt.Sprintf("/api/appointments/%d", id),
		map[string]string{"status": status}, nil)
}

// timed runs one call and records it. Calls cut short by the end of the
// run are not counted.
func (s *Simulator) timed(ctx context.Context, om *OperationMetrics, method, path string, body, out any) int {
	start := time.Now()
	status, err := s.call(ctx, method, path, body, out)
	if ctx.Err() != nil {
		return 0
	}
	om.Record(time.Since(start), status, err)
	return status
}

// call sends a JSON request and decodes the envelope's data into out.
func (s *Simulator) call(ctx context.Context, method, path string, body, out any) (int, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, rdr)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, err
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "SIMULATION REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Duration: %s\n", s.config.Duration)
	fmt.Fprintf(w, "Workers: %d\n\n", s.config.Workers)

	printOperationReport(w, "Create patient", &s.metrics.CreatePatient)
	printOperationReport(w, "Create appointment", &s.metrics.CreateAppointment)
	printOperationReport(w, "Update appointment", &s.metrics.UpdateAppointment)
	printOperationReport(w, "Dashboard", &s.metrics.Dashboard)
	printOperationReport(w, "Day schedule", &s.metrics.DaySchedule)
	printOperationReport(w, "Patient detail", &s.metrics.PatientDetail)
}

func printOperationReport(w io.Writer, name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	success := atomic.LoadInt64(&om.Success)
	rejected := atomic.LoadInt64(&om.Rejected)
	failed := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprintf(w, "  Total: %d\n", total)
	fmt.Fprintf(w, "  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if rejected > 0 {
		fmt.Fprintf(w, "  Rejected: %d (%.1f%%)\n", rejected, float64(rejected)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Fprintf(w, "  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Fprintf(w, "  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
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
