// README: Bench cases: environment, schema, HTTP surface, end-to-end matching, concurrency and load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"carpool/internal/infra"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg    Config
	httpc  *http.Client
	db     *pgxpool.Pool
	redis  *redis.Client
	tokens *infra.JWTVerifier
	runID  string
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	r := &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 30 * time.Second},
		runID: uuid.NewString()[:8],
	}
	if cfg.JWTSecret != "" {
		r.tokens = infra.NewJWTVerifier(cfg.JWTSecret)
	}
	return r
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: pingDB},
		{Name: "Env: Redis connect", Run: pingRedis},
		{Name: "Migration: apply (optional)", Run: applyMigrations},
		{Name: "Migration: tables exist", Run: tablesExist},
		httpCase("API: health", http.MethodGet, "/health", http.StatusOK),
		httpCase("API: public config", http.MethodGet, "/api/config", http.StatusOK),
		httpCase("API: matches require auth", http.MethodGet, "/api/matches", http.StatusUnauthorized),
		{Name: "Matching: compute without home -> 400", Run: precondition},
		{Name: "Matching: pair visible to both users", Run: endToEnd},
		{Name: "Concurrency: parallel compute for one user", Run: concurrentCompute},
		{Name: "Perf: compute throughput", Run: computeLoad},
	}
}

func pingDB(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func pingRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured; API uses the in-process lock"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func applyMigrations(_ context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: statusSkip, Note: "apply-migration=false"}
	}
	if err := infra.Migrate(r.cfg.DSN, slog.Default()); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	var missing []string
	for _, table := range []string{"users", "commute_preferences", "match_results"} {
		var exists bool
		err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("missing=%v", missing)}
	}
	return Result{Status: statusPass}
}

func httpCase(name, method, path string, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, _, err := r.call(ctx, method, path, "", nil)
			latency := time.Since(start)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if status != want {
				return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d", status, want)}
			}
			return Result{Status: statusPass, Latency: latency}
		},
	}
}

// call sends a JSON request as uid (empty for anonymous) and returns the raw body.
func (r *Runner) call(ctx context.Context, method, path, uid string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		token, err := r.tokens.Sign(uid, uid+"@bench.local", "Bench "+uid)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

func (r *Runner) user(name string) string {
	return "bench-" + r.runID + "-" + name
}

// seed gives uid a home and a weekday morning window.
func (r *Runner) seed(ctx context.Context, uid string, lat, lng float64, role string) error {
	steps := []struct {
		method, path string
		body         any
	}{
		{http.MethodPut, "/api/profile", map[string]any{"home_address": "1 Bench Rd, Verona, WI", "home_lat": lat, "home_lng": lng}},
		{http.MethodPut, "/api/preferences", map[string]any{
			"direction": "TO_WORK", "earliest_time": "07:00", "latest_time": "08:30",
			"days_of_week": []int{0, 1, 2, 3, 4}, "role": role,
		}},
	}
	for _, s := range steps {
		status, body, err := r.call(ctx, s.method, s.path, uid, s.body)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("%s %s: status=%d body=%s", s.method, s.path, status, body)
		}
	}
	return nil
}

func needTokens(r *Runner) (Result, bool) {
	if r.tokens == nil {
		return Result{Status: statusSkip, Note: "jwt-secret not set; cannot mint tokens"}, false
	}
	return Result{}, true
}

func precondition(ctx context.Context, r *Runner) Result {
	if res, ok := needTokens(r); !ok {
		return res
	}
	status, _, err := r.call(ctx, http.MethodPost, "/api/matches/compute", r.user("homeless"), nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if status != http.StatusBadRequest {
		return Result{Status: statusFail, Note: fmt.Sprintf("status=%d", status)}
	}
	return Result{Status: statusPass}
}

type computeBody struct {
	Computed int `json:"computed"`
	Matches  []struct {
		PartnerID string `json:"partner_id"`
	} `json:"matches"`
}

func endToEnd(ctx context.Context, r *Runner) Result {
	if res, ok := needTokens(r); !ok {
		return res
	}
	a, b := r.user("a"), r.user("b")
	if err := r.seed(ctx, a, 42.90, -89.50, "DRIVER"); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if err := r.seed(ctx, b, 42.92, -89.55, "RIDER"); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}

	start := time.Now()
	status, raw, err := r.call(ctx, http.MethodPost, "/api/matches/compute", a, nil)
	latency := time.Since(start)
	if err != nil || status != http.StatusOK {
		return Result{Status: statusFail, Note: fmt.Sprintf("compute status=%d err=%v", status, err)}
	}
	var res computeBody
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	found := false
	for _, m := range res.Matches {
		found = found || m.PartnerID == b
	}
	if !found {
		return Result{Status: statusFail, Latency: latency, Note: "partner missing from compute result"}
	}

	status, raw, err = r.call(ctx, http.MethodGet, "/api/matches", b, nil)
	if err != nil || status != http.StatusOK {
		return Result{Status: statusFail, Note: fmt.Sprintf("list status=%d err=%v", status, err)}
	}
	var views []struct {
		PartnerID      string  `json:"partner_id"`
		PartnerAddress *string `json:"partner_address"`
	}
	if err := json.Unmarshal(raw, &views); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, v := range views {
		if v.PartnerID == a {
			return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("computed=%d", res.Computed)}
		}
	}
	return Result{Status: statusFail, Latency: latency, Note: "requester not visible to partner"}
}

func concurrentCompute(ctx context.Context, r *Runner) Result {
	if res, ok := needTokens(r); !ok {
		return res
	}
	uid := r.user("a")
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		counts = map[int]int{}
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.call(ctx, http.MethodPost, "/api/matches/compute", uid, nil)
			if err != nil {
				status = -1
			}
			mu.Lock()
			counts[status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counts[http.StatusOK] == 0 || counts[http.StatusOK]+counts[http.StatusConflict] != r.cfg.Concurrency {
		return Result{Status: statusFail, Note: fmt.Sprintf("statuses=%v", counts)}
	}

	// Serialized replaces must leave exactly one row per (partner, direction).
	_, raw, err := r.call(ctx, http.MethodGet, "/api/matches", uid, nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	var views []struct {
		PartnerID string `json:"partner_id"`
		Direction string `json:"direction"`
	}
	if err := json.Unmarshal(raw, &views); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	seen := map[string]bool{}
	for _, v := range views {
		key := v.PartnerID + "/" + v.Direction
		if seen[key] {
			return Result{Status: statusFail, Note: "duplicate match rows " + key}
		}
		seen[key] = true
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("statuses=%v", counts)}
}

func computeLoad(ctx context.Context, r *Runner) Result {
	if res, ok := needTokens(r); !ok {
		return res
	}
	users := make([]string, r.cfg.Concurrency)
	for i := range users {
		users[i] = r.user(fmt.Sprintf("load%d", i))
		lat := 42.90 + float64(i)*0.002
		if err := r.seed(ctx, users[i], lat, -89.50, "EITHER"); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
	}

	end := time.Now().Add(r.cfg.Duration)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		latencies []time.Duration
		errCount  int
	)
	for _, uid := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				start := time.Now()
				status, _, err := r.call(ctx, http.MethodPost, "/api/matches/compute", uid, nil)
				mu.Lock()
				if err != nil || status != http.StatusOK {
					errCount++
				} else {
					latencies = append(latencies, time.Since(start))
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p50 := latencies[len(latencies)/2]
	p95 := latencies[len(latencies)*95/100]
	rps := float64(len(latencies)) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Latency: p50, Note: fmt.Sprintf("rps=%.1f p95=%s errors=%d", rps, p95, errCount)}
}
