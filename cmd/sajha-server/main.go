/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command sajha-server runs the MCP JSON-RPC and REST HTTP surfaces
// described in spec.md §6, plus dedicated health and metrics servers.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/access"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/access/ratelimit"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/audit"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
	authstore "github.com/ajsinha/sajhamcpserver-sub001/internal/auth/store"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/envelope"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/httpapi"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/mcp"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/engine"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/olap/semantic"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/studio"
	"github.com/ajsinha/sajhamcpserver-sub001/pkg/logging"
	"github.com/ajsinha/sajhamcpserver-sub001/pkg/metrics"
	"github.com/ajsinha/sajhamcpserver-sub001/pkg/tracing"
)

// flags groups every CLI flag for the sajha-server binary.
type flags struct {
	apiAddr          string
	healthAddr       string
	metricsAddr      string
	toolConfigDir    string
	olapConfigDir    string
	olapWarehouse    string
	olapWarehouseDSN string
	authAuditDSN     string
	denyRulesFile    string
	jwtSecret        string
	kafkaBrokers     string
	kafkaTopic       string
	redisAddr        string
	adminUser        string
	adminPassword    string
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVar(&f.apiAddr, "api-addr", ":8080", "API server listen address (MCP + REST)")
	flag.StringVar(&f.healthAddr, "health-addr", ":8081", "Health probe listen address")
	flag.StringVar(&f.metricsAddr, "metrics-addr", ":9090", "Metrics server listen address")
	flag.StringVar(&f.toolConfigDir, "tool-config-dir", "./config/tools", "Directory of tool configuration documents")
	flag.StringVar(&f.olapConfigDir, "olap-config-dir", "./config/olap", "Directory of OLAP semantic config files (datasets/measures/dimensions YAML)")
	flag.StringVar(&f.olapWarehouse, "olap-warehouse", "memory", "OLAP query executor backend: memory, snowflake, or postgres")
	flag.StringVar(&f.olapWarehouseDSN, "olap-warehouse-dsn", "", "DSN for the snowflake/postgres OLAP warehouse backend")
	flag.StringVar(&f.authAuditDSN, "auth-audit-dsn", "", "Postgres DSN persisting the ApiKey lifecycle audit trail (optional)")
	flag.StringVar(&f.denyRulesFile, "deny-rules-file", "", "YAML file of CEL deny rules evaluated on top of the allow-list policy (optional)")
	flag.StringVar(&f.jwtSecret, "jwt-secret", "", "HMAC secret signing session bearer tokens")
	flag.StringVar(&f.kafkaBrokers, "kafka-brokers", "", "Kafka brokers for audit publishing (comma-separated)")
	flag.StringVar(&f.kafkaTopic, "kafka-topic", "sajha.audit", "Kafka topic for audit records")
	flag.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for shared rate-limit quota (empty: in-process)")
	flag.StringVar(&f.adminUser, "bootstrap-admin-user", "", "Identifier for a bootstrap admin user (optional)")
	flag.StringVar(&f.adminPassword, "bootstrap-admin-password", "", "Password for the bootstrap admin user")
	flag.Parse()

	f.applyEnvFallbacks()
	return f
}

func (f *flags) applyEnvFallbacks() {
	envFallback(&f.apiAddr, ":8080", "API_ADDR")
	envFallback(&f.healthAddr, ":8081", "HEALTH_ADDR")
	envFallback(&f.metricsAddr, ":9090", "METRICS_ADDR")
	envFallback(&f.toolConfigDir, "./config/tools", "TOOL_CONFIG_DIR")
	envFallback(&f.olapConfigDir, "./config/olap", "OLAP_CONFIG_DIR")
	envFallback(&f.olapWarehouse, "memory", "OLAP_WAREHOUSE")
	envFallback(&f.olapWarehouseDSN, "", "OLAP_WAREHOUSE_DSN")
	envFallback(&f.authAuditDSN, "", "AUTH_AUDIT_DSN")
	envFallback(&f.denyRulesFile, "", "DENY_RULES_FILE")
	envFallback(&f.jwtSecret, "", "JWT_SECRET")
	envFallback(&f.kafkaBrokers, "", "KAFKA_BROKERS")
	envFallback(&f.kafkaTopic, "sajha.audit", "KAFKA_TOPIC")
	envFallback(&f.redisAddr, "", "REDIS_ADDR")
	envFallback(&f.adminUser, "", "BOOTSTRAP_ADMIN_USER")
	envFallback(&f.adminPassword, "", "BOOTSTRAP_ADMIN_PASSWORD")
}

func envFallback(dst *string, defaultVal, envKey string) {
	if *dst == defaultVal {
		if v := os.Getenv(envKey); v != "" {
			*dst = v
		}
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a startup error to the §6 exit-code contract: 2 for
// configuration problems, 1 for anything else unrecoverable.
func exitCodeFor(err error) int {
	if _, ok := err.(*configError); ok {
		return 2
	}
	return 1
}

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

func run() error {
	f := parseFlags()

	log, syncLog, err := logging.NewLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer syncLog()

	shutdownTracing := tracing.Install(tracing.Config{ServiceVersion: "1.0.0", Environment: os.Getenv("DEPLOY_ENV")})
	defer func() { _ = shutdownTracing(context.Background()) }()

	if f.jwtSecret == "" {
		return &configError{msg: "--jwt-secret or JWT_SECRET is required"}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	authMgr := auth.New(log, []byte(f.jwtSecret))
	if f.authAuditDSN != "" {
		auditStore, err := newAuthAuditStore(ctx, f.authAuditDSN)
		if err != nil {
			return &configError{msg: err.Error()}
		}
		defer auditStore.Close()
		authMgr.WithAuditStore(auditStore)
	}
	if f.adminUser != "" && f.adminPassword != "" {
		bootstrapAdmin(authMgr, f.adminUser, f.adminPassword)
		log.Info("bootstrap admin user created", "user", f.adminUser)
	}

	semanticLayer := semantic.New(log)
	if err := loadSemanticConfigs(semanticLayer, f.olapConfigDir); err != nil {
		return fmt.Errorf("loading OLAP semantic configs: %w", err)
	}

	olapExec, err := newOLAPExecutor(f.olapWarehouse, f.olapWarehouseDSN)
	if err != nil {
		return &configError{msg: err.Error()}
	}

	reg := registry.New(log)
	factory := studio.NewGenerators(http.DefaultClient, olapExec, semanticLayer).Factory()
	reg.SetFactory(factory)
	if err := os.MkdirAll(f.toolConfigDir, 0o755); err != nil {
		return fmt.Errorf("creating tool config dir: %w", err)
	}
	for _, loadErr := range reg.Load(f.toolConfigDir, factory) {
		log.Error(loadErr, "failed to load tool definition")
	}

	limiter := newLimiter(f.redisAddr)
	denyRules, err := loadDenyRules(f.denyRulesFile)
	if err != nil {
		return &configError{msg: err.Error()}
	}
	policy := access.New(limiter).WithDenyRules(denyRules)

	auditor, err := audit.New(log, auditConfig(f))
	if err != nil {
		return fmt.Errorf("creating audit publisher: %w", err)
	}

	serverMetrics := metrics.New()
	env := envelope.New(log, reg, policy, &metricsAuditor{next: auditor, metrics: serverMetrics})

	promReg := prometheus.DefaultRegisterer
	restMetrics := httpapi.NewMetrics(promReg)

	restSrv := httpapi.New(log, authMgr, env, reg, restMetrics, f.toolConfigDir, factory)

	prompts := mcp.NewPromptStore()
	dispatcher := mcp.NewDispatcher(log, reg, env, prompts)
	mcpHandler := mcp.NewHTTPHandler(dispatcher, authMgr)
	streamHandler := mcp.NewStreamHandler(log, authMgr, env)

	apiMux := http.NewServeMux()
	restSrv.RegisterRoutes(apiMux)
	apiMux.Handle("POST /mcp", mcpHandler)
	apiMux.Handle("GET /mcp/stream", streamHandler)
	apiHandler := restMetrics.Middleware(apiMux)

	apiSrv := &http.Server{Addr: f.apiAddr, Handler: apiHandler}
	healthSrv := newHealthServer(f.healthAddr)
	metricsSrv := newMetricsServer(f.metricsAddr)

	startHTTPServer(log, "api", f.apiAddr, apiSrv)
	startHTTPServer(log, "health", f.healthAddr, healthSrv)
	startHTTPServer(log, "metrics", f.metricsAddr, metricsSrv)

	log.Info("sajha-server ready", "api", f.apiAddr, "health", f.healthAddr, "metrics", f.metricsAddr)

	<-ctx.Done()
	log.Info("shutting down")
	shutdownServers(log, apiSrv, healthSrv, metricsSrv)
	return nil
}

// loadSemanticConfigs scans dir for *.yaml/*.yml files (conventionally
// datasets.yaml, measures.yaml, dimensions.yaml) and merges each into
// layer. A missing directory is tolerated: the analytic-query generator
// then simply has no datasets registered until one is added and the
// registry is reloaded.
func loadSemanticConfigs(layer *semantic.Layer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := layer.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// newOLAPExecutor builds the analytic-query execution backend named by
// kind: "memory" for the in-process stand-in used in development and
// tests, "snowflake"/"postgres" for a live warehouse connection dialed
// lazily from dsn.
func newOLAPExecutor(kind, dsn string) (engine.Executor, error) {
	switch kind {
	case "", "memory":
		return engine.NewMemExecutor(), nil
	case "snowflake":
		if dsn == "" {
			return nil, fmt.Errorf("--olap-warehouse-dsn is required for --olap-warehouse=snowflake")
		}
		return engine.NewSnowflakeExecutor(dsn)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("--olap-warehouse-dsn is required for --olap-warehouse=postgres")
		}
		return engine.NewPostgresExecutor(dsn)
	default:
		return nil, fmt.Errorf("unknown --olap-warehouse %q", kind)
	}
}

// loadDenyRules reads and compiles the CEL deny-rule file named by path, or
// returns a nil DenyRuleSet (meaning: no extra deny layer) when path is
// empty. A missing file is treated as a misconfiguration rather than
// silently ignored, since an operator who set the flag expects it honored.
func loadDenyRules(path string) (*access.DenyRuleSet, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deny rules file: %w", err)
	}
	return access.LoadDenyRuleFile(data)
}

func bootstrapAdmin(mgr *auth.Manager, identifier, password string) {
	mgr.PutUser(identifier, password, auth.Principal{
		PrincipalID:    identifier,
		Kind:           auth.KindUser,
		Roles:          map[string]bool{"admin": true},
		ToolAccessMode: auth.AccessAllowAll,
		AllowedTools:   map[string]bool{"*": true},
	})
}

func newLimiter(redisAddr string) *ratelimit.Limiter {
	if redisAddr == "" {
		return ratelimit.NewInProcess()
	}
	client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	return ratelimit.New(ratelimit.NewRedisBackend(client))
}

// newAuthAuditStore connects to Postgres and ensures the api_key_audit
// table exists before returning.
func newAuthAuditStore(ctx context.Context, dsn string) (*authstore.Store, error) {
	cfg := authstore.DefaultConfig()
	cfg.ConnString = dsn
	s, err := authstore.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting auth audit store: %w", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// metricsAuditor wraps an envelope.Auditor, recording the pkg/metrics
// ServerMetrics collectors before forwarding each record to the
// underlying audit publisher.
type metricsAuditor struct {
	next    envelope.Auditor
	metrics *metrics.ServerMetrics
}

func (m *metricsAuditor) Record(ctx context.Context, rec envelope.Record) {
	m.metrics.ToolCallsTotal.WithLabelValues(rec.Tool, rec.ErrorKind).Inc()
	m.metrics.ToolCallDuration.WithLabelValues(rec.Tool).Observe(rec.Duration.Seconds())
	switch apierr.Kind(rec.ErrorKind) {
	case apierr.QuotaExceeded:
		m.metrics.QuotaRejectionsTotal.WithLabelValues(rec.PrincipalID).Inc()
	case apierr.AccessDenied:
		m.metrics.AccessDeniedTotal.WithLabelValues(rec.PrincipalID).Inc()
	}
	if m.next != nil {
		m.next.Record(ctx, rec)
	}
}

func auditConfig(f *flags) *audit.Config {
	if f.kafkaBrokers == "" {
		return nil
	}
	return &audit.Config{Brokers: strings.Split(f.kafkaBrokers, ","), Topic: f.kafkaTopic}
}

func newHealthServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}

func startHTTPServer(log logr.Logger, name, addr string, srv *http.Server) {
	go func() {
		log.Info("starting server", "server", name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "server error", "server", name)
		}
	}()
}

func shutdownServers(log logr.Logger, servers ...*http.Server) {
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()

	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Error(err, "server shutdown error", "addr", srv.Addr)
		}
	}
}
