package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/ntn-pool-analyzer/core"
	"github.com/signalsfoundry/ntn-pool-analyzer/internal/config"
	"github.com/signalsfoundry/ntn-pool-analyzer/internal/logging"
	"github.com/signalsfoundry/ntn-pool-analyzer/internal/mq"
	"github.com/signalsfoundry/ntn-pool-analyzer/internal/observability"
	"github.com/signalsfoundry/ntn-pool-analyzer/internal/store"
	"github.com/signalsfoundry/ntn-pool-analyzer/measurement"
	"github.com/signalsfoundry/ntn-pool-analyzer/model"
	"github.com/signalsfoundry/ntn-pool-analyzer/visibility"
)

const tracerName = "github.com/signalsfoundry/ntn-pool-analyzer/cmd/analyzer"

func main() {
	cfg := config.Load()

	visibilityPath := flag.String("visibility", "", "JSON visibility dataset (candidates with per-instant series)")
	signalsPath := flag.String("signals", "", "JSON signal dataset (RSRP/distance samples)")
	thresholdsPath := flag.String("thresholds", "", "JSON threshold table; omit to skip event detection")
	outDir := flag.String("out", "out", "directory for run artifacts")

	tlePath := flag.String("tle", "", "JSON TLE catalog; synthesizes datasets when -visibility is not given")
	gsLat := flag.Float64("gs-lat", 0, "ground station latitude in degrees")
	gsLon := flag.Float64("gs-lon", 0, "ground station longitude in degrees")
	gsAlt := flag.Float64("gs-alt", 0, "ground station altitude in km")
	windowStart := flag.String("window-start", "", "observation window start (RFC3339, default now)")
	window := flag.Duration("window", 2*time.Hour, "observation window length")
	step := flag.Duration("step", 10*time.Second, "sampling step")
	minElevation := flag.Float64("min-elevation", 25, "visibility elevation mask in degrees")

	targetMin := flag.Int("target-min", cfg.TargetMin, "minimum concurrently visible satellites")
	targetMax := flag.Int("target-max", cfg.TargetMax, "maximum concurrently visible satellites")
	coverageRate := flag.Float64("coverage-rate", cfg.CoverageRateThreshold, "required fraction of instants inside the target band")
	deriveD2 := flag.Bool("derive-d2", false, "derive D2 distance thresholds from the signal dataset (p90/p95)")

	archive := flag.Bool("archive", cfg.ArchiveEnabled, "store the run in Postgres")
	publish := flag.Bool("publish", cfg.KafkaEnabled, "publish emitted events to Kafka")

	flag.Parse()

	log := logging.NewFromEnv().With(logging.String("service", "analyzer"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, runID := logging.EnsureRunID(ctx)
	ctx, log = logging.WithRunLogger(ctx, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing setup failed", logging.Any("error", err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		log.Error(ctx, "metrics setup failed", logging.Any("error", err))
		os.Exit(1)
	}
	serveMetrics(ctx, cfg.MetricsAddr, collector, log)

	result, err := runAnalysis(ctx, runParams{
		cfg:            cfg,
		log:            log,
		collector:      collector,
		runID:          runID,
		visibilityPath: *visibilityPath,
		signalsPath:    *signalsPath,
		thresholdsPath: *thresholdsPath,
		tlePath:        *tlePath,
		gsLat:          *gsLat,
		gsLon:          *gsLon,
		gsAlt:          *gsAlt,
		windowStart:    *windowStart,
		window:         *window,
		step:           *step,
		minElevation:   *minElevation,
		target:         model.TargetRange{Min: *targetMin, Max: *targetMax},
		coverageRate:   *coverageRate,
		deriveD2:       *deriveD2,
	})
	if err != nil {
		collector.IncRun("error")
		log.Error(ctx, "analysis failed", logging.Any("error", err))
		os.Exit(1)
	}

	if err := writeArtifacts(*outDir, result); err != nil {
		log.Error(ctx, "artifact write failed", logging.Any("error", err))
		os.Exit(1)
	}

	if *archive {
		if err := archiveRun(ctx, cfg.DatabaseURL, result); err != nil {
			log.Warn(ctx, "archive failed", logging.Any("error", err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("archive failed: %v", err))
		}
	}
	if *publish {
		if err := publishEvents(ctx, cfg, result); err != nil {
			log.Warn(ctx, "event publish failed", logging.Any("error", err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("publish failed: %v", err))
		}
	}

	outcome := "ok"
	if result.Plan != nil && result.Plan.TargetShortfall {
		outcome = "shortfall"
	}
	collector.IncRun(outcome)

	log.Info(ctx, "run finished",
		logging.String("outcome", outcome),
		logging.Int("pool_size", len(result.Plan.SelectedIDs)),
		logging.Any("coverage_rate", result.Report.CoverageRate),
		logging.Int("events", len(result.Events)),
		logging.Int("gaps", len(result.Report.Gaps)),
		logging.Int("warnings", len(result.Warnings)),
	)
}

type runParams struct {
	cfg       config.Config
	log       logging.Logger
	collector *observability.Collector
	runID     string

	visibilityPath string
	signalsPath    string
	thresholdsPath string

	tlePath      string
	gsLat        float64
	gsLon        float64
	gsAlt        float64
	windowStart  string
	window       time.Duration
	step         time.Duration
	minElevation float64

	target       model.TargetRange
	coverageRate float64
	deriveD2     bool
}

func runAnalysis(ctx context.Context, p runParams) (*model.RunResult, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "analyzer.run",
		trace.WithAttributes(attribute.String("run_id", p.runID)))
	defer span.End()

	result := &model.RunResult{
		RunID:     p.runID,
		StartedAt: time.Now().UTC(),
		Events:    []model.Event{},
	}

	set := core.NewCandidateSet()
	var samples []model.MeasurementSample

	if err := loadDatasets(ctx, p, set, &samples); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Coverage selection and independent verification.
	optimizer, err := core.NewOptimizer(core.OptimizerConfig{
		Target:                p.target,
		CoverageRateThreshold: p.coverageRate,
		CeilingMultiplier:     p.cfg.CeilingMultiplier,
	},
		core.WithOptimizerLogger(p.log),
		core.WithPlanMetricsRecorder(p.collector),
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	plan, err := stageTimed(ctx, tracer, p.collector, "optimize", func(ctx context.Context) (*model.CoveragePlan, error) {
		return optimizer.Optimize(ctx, set, &result.Skips)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("optimize: %w", err)
	}
	result.Plan = plan
	if plan.TargetShortfall {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("coverage-rate threshold %.3f unreachable; best effort %.3f with %d satellites",
				p.coverageRate, plan.AchievedRate, len(plan.SelectedIDs)))
	}

	verifierCfg := core.VerifierConfig{
		Target:      p.target,
		MinorMax:    p.cfg.GapMinorMax,
		ModerateMax: p.cfg.GapModerateMax,
	}
	report, err := stageTimed(ctx, tracer, p.collector, "verify", func(ctx context.Context) (*model.CoverageReport, error) {
		return core.Verify(set, plan, verifierCfg)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("verify: %w", err)
	}
	result.Report = report

	// Event detection is additive: without a threshold table the run is a
	// coverage-only run, not a failure.
	if p.thresholdsPath == "" {
		result.Warnings = append(result.Warnings, "no threshold table supplied; event detection skipped")
		return result, nil
	}
	if len(samples) == 0 {
		result.Warnings = append(result.Warnings, "no signal dataset supplied; event detection skipped")
		return result, nil
	}

	if err := detectEvents(ctx, tracer, p, set, samples, result); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// loadDatasets fills the candidate set and sample slice either from JSON
// files or, when a TLE catalog is given instead, from the SGP4 reference
// generator.
func loadDatasets(ctx context.Context, p runParams, set *core.CandidateSet, samples *[]model.MeasurementSample) error {
	switch {
	case p.visibilityPath != "":
		f, err := os.Open(p.visibilityPath)
		if err != nil {
			return fmt.Errorf("open visibility dataset: %w", err)
		}
		defer f.Close()
		scenario, err := core.LoadVisibilityScenario(set, f)
		if err != nil {
			return err
		}
		p.log.Info(ctx, "visibility dataset loaded",
			logging.Int("candidates", len(scenario.CandidateIDs)),
			logging.Int("constellations", len(scenario.Constellations)))

	case p.tlePath != "":
		f, err := os.Open(p.tlePath)
		if err != nil {
			return fmt.Errorf("open TLE catalog: %w", err)
		}
		defer f.Close()
		entries, err := visibility.LoadTLEEntries(f)
		if err != nil {
			return err
		}

		start := time.Now().UTC().Truncate(time.Second)
		if p.windowStart != "" {
			start, err = time.Parse(time.RFC3339, p.windowStart)
			if err != nil {
				return fmt.Errorf("parse window start: %w", err)
			}
		}
		gen, err := visibility.NewGenerator(visibility.GeneratorConfig{
			LatitudeDeg:     p.gsLat,
			LongitudeDeg:    p.gsLon,
			AltitudeKm:      p.gsAlt,
			Start:           start,
			End:             start.Add(p.window),
			Step:            p.step,
			MinElevationDeg: p.minElevation,
		})
		if err != nil {
			return err
		}
		for _, entry := range entries {
			c, err := gen.Candidate(entry)
			if err != nil {
				return err
			}
			if err := set.Add(c); err != nil {
				return err
			}
			if p.signalsPath == "" {
				*samples = append(*samples, gen.Measurements(c, 60, 20)...)
			}
		}
		p.log.Info(ctx, "visibility synthesized",
			logging.Int("candidates", set.Len()),
			logging.String("window_start", start.Format(time.RFC3339)))

	default:
		return fmt.Errorf("either -visibility or -tle is required")
	}

	if p.signalsPath != "" {
		f, err := os.Open(p.signalsPath)
		if err != nil {
			return fmt.Errorf("open signal dataset: %w", err)
		}
		defer f.Close()
		loaded, err := measurement.LoadMeasurementSamples(f)
		if err != nil {
			return err
		}
		*samples = loaded
	}
	return nil
}

func detectEvents(ctx context.Context, tracer trace.Tracer, p runParams, set *core.CandidateSet, samples []model.MeasurementSample, result *model.RunResult) error {
	f, err := os.Open(p.thresholdsPath)
	if err != nil {
		return fmt.Errorf("open threshold table: %w", err)
	}
	defer f.Close()
	thresholdCfg, err := measurement.LoadThresholdConfig(f)
	if err != nil {
		return err
	}

	if p.deriveD2 {
		applyDerivedD2(&thresholdCfg, set.Constellations(), samples)
	}

	resolver := measurement.NewResolver(thresholdCfg, p.log)
	resolved, records, err := stageTimed2(ctx, tracer, p.collector, "resolve", func(ctx context.Context) (measurement.ResolvedThresholds, []model.ResolutionRecord, error) {
		return resolver.Resolve(ctx, set.Constellations())
	})
	if err != nil {
		return fmt.Errorf("resolve thresholds: %w", err)
	}
	result.Resolutions = records

	sig, err := measurement.NewSignalSet(set, samples, result.Plan.SelectedIDs)
	if err != nil {
		return fmt.Errorf("signal dataset: %w", err)
	}

	detector := measurement.NewDetector(resolved,
		measurement.WithDetectorLogger(p.log),
		measurement.WithEventMetricsRecorder(p.collector),
	)
	events, skips, err := stageTimed2(ctx, tracer, p.collector, "detect", func(ctx context.Context) ([]model.Event, model.SkipCounters, error) {
		return detector.Detect(ctx, sig)
	})
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	result.Events = events
	result.Skips.InstantsBelowPair += skips.InstantsBelowPair
	result.Skips.MalformedSamples += skips.MalformedSamples
	return nil
}

// applyDerivedD2 fills dataset-derived D2 bounds for constellations that
// have a static D2 entry but no dynamic one yet.
func applyDerivedD2(cfg *model.ThresholdConfig, constellations []model.Constellation, samples []model.MeasurementSample) {
	derived, ok := measurement.DeriveD2Thresholds(samples, 0.90, 0.95)
	if !ok {
		return
	}
	if cfg.Dynamic == nil {
		cfg.Dynamic = make(map[model.Constellation]map[model.EventKind]model.DynamicThresholds)
	}
	for _, tag := range constellations {
		if _, hasStatic := cfg.Static[tag][model.EventD2]; !hasStatic {
			continue
		}
		if _, hasDynamic := cfg.Dynamic[tag][model.EventD2]; hasDynamic {
			continue
		}
		if cfg.Dynamic[tag] == nil {
			cfg.Dynamic[tag] = make(map[model.EventKind]model.DynamicThresholds)
		}
		cfg.Dynamic[tag][model.EventD2] = derived
	}
}

func stageTimed[T any](ctx context.Context, tracer trace.Tracer, c *observability.Collector, stage string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "analyzer."+stage)
	defer span.End()
	started := time.Now()
	out, err := fn(ctx)
	c.ObserveStage(stage, time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

func stageTimed2[T, U any](ctx context.Context, tracer trace.Tracer, c *observability.Collector, stage string, fn func(context.Context) (T, U, error)) (T, U, error) {
	ctx, span := tracer.Start(ctx, "analyzer."+stage)
	defer span.End()
	started := time.Now()
	out1, out2, err := fn(ctx)
	c.ObserveStage(stage, time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
	}
	return out1, out2, err
}

func serveMetrics(ctx context.Context, addr string, c *observability.Collector, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(ctx, "metrics endpoint unavailable", logging.Any("error", err))
		}
	}()
}

func writeArtifacts(dir string, result *model.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	coverage := struct {
		RunID  string                `json:"run_id"`
		Plan   *model.CoveragePlan   `json:"plan"`
		Report *model.CoverageReport `json:"report"`
	}{result.RunID, result.Plan, result.Report}

	if err := writeJSON(filepath.Join(dir, "coverage.json"), coverage); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "events.json"), result.Events); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "resolutions.json"), result.Resolutions); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "run.json"), result)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func archiveRun(ctx context.Context, databaseURL string, result *model.RunResult) error {
	pool, err := store.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := store.RunMigrations(ctx, pool); err != nil {
		return err
	}
	return store.NewRepository(pool).InsertRun(ctx, result)
}

func publishEvents(ctx context.Context, cfg config.Config, result *model.RunResult) error {
	writer := mq.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopicEvents)
	defer writer.Close()
	for i := range result.Events {
		if err := mq.PublishJSON(ctx, writer, result.RunID, result.Events[i]); err != nil {
			return err
		}
	}
	return nil
}
