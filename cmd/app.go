package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/referral-cli/internal/cache"
	"github.com/sells-group/referral-cli/internal/config"
	"github.com/sells-group/referral-cli/internal/geo"
	"github.com/sells-group/referral-cli/internal/model"
	"github.com/sells-group/referral-cli/internal/pipeline"
	"github.com/sells-group/referral-cli/internal/schema"
	"github.com/sells-group/referral-cli/internal/scorer"
	"github.com/sells-group/referral-cli/internal/server"
	"github.com/sells-group/referral-cli/internal/source"
	"github.com/sells-group/referral-cli/internal/status"
	"github.com/sells-group/referral-cli/internal/store"
	"github.com/sells-group/referral-cli/internal/tabular"
)

// appEnv holds the wired application: sources, cache, engine, store,
// and status board. Built once per command invocation.
type appEnv struct {
	cfg     *config.Config
	mapping *schema.Mapping

	referrals *source.Manager
	preferred *source.Manager

	providers *cache.Cache[*pipeline.Result]
	engine    *scorer.Engine
	board     *status.Board
	store     store.Store
}

// initApp validates config for the given mode and wires the app.
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	mapping := schema.DefaultMapping()
	if cfg.Sources.MappingPath != "" {
		m, err := schema.LoadMapping(cfg.Sources.MappingPath)
		if err != nil {
			return nil, err
		}
		mapping = m
	}

	refSrc, err := source.FromConfig("referrals", cfg.Sources.Referrals)
	if err != nil {
		return nil, err
	}

	env := &appEnv{
		cfg:       cfg,
		mapping:   mapping,
		referrals: source.NewManager(refSrc),
		engine:    scorer.NewEngine(nil),
		board:     status.NewBoard(),
	}

	// The preferred list is optional: an unconfigured source just means
	// no provider gets the preferred flag.
	if cfg.Sources.Preferred.Path != "" || cfg.Sources.Preferred.URL != "" || cfg.Sources.Preferred.Host != "" {
		prefSrc, err := source.FromConfig("preferred", cfg.Sources.Preferred)
		if err != nil {
			return nil, err
		}
		env.preferred = source.NewManager(prefSrc)
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	env.store = st

	env.providers = cache.New(env.build, cfg.Cache.TTL)
	return env, nil
}

// Close releases held resources.
func (env *appEnv) Close() {
	if env.store != nil {
		if err := env.store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// build is the cache loader: fetch both datasets, parse, and run the
// pipeline. The fingerprint hashes the raw inputs so an unchanged pair
// is visible as a no-op rebuild.
func (env *appEnv) build(ctx context.Context) (*pipeline.Result, string, error) {
	start := time.Now()

	var refPayload, prefPayload *source.Payload
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := env.referrals.Load(gctx)
		if err != nil {
			env.board.RecordFetchError("referrals", err)
			return err
		}
		env.board.RecordFetch("referrals", p.Marker)
		refPayload = p
		return nil
	})
	if env.preferred != nil {
		g.Go(func() error {
			p, err := env.preferred.Load(gctx)
			if err != nil {
				env.board.RecordFetchError("preferred", err)
				return err
			}
			env.board.RecordFetch("preferred", p.Marker)
			prefPayload = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	refTable, err := tabular.LoadBytes(refPayload.Data, refPayload.FilenameHint)
	if err != nil {
		return nil, "", eris.Wrap(err, "parse referrals dataset")
	}

	var (
		prefTable *tabular.Table
		prefData  []byte
	)
	if prefPayload != nil {
		prefTable, err = tabular.LoadBytes(prefPayload.Data, prefPayload.FilenameHint)
		if err != nil {
			return nil, "", eris.Wrap(err, "parse preferred dataset")
		}
		prefData = prefPayload.Data
	}

	res := pipeline.Build(refTable, prefTable, env.mapping, pipeline.Options{
		Window:               env.timeWindow(),
		WindowFallback:       env.cfg.Pipeline.WindowFallback,
		PreferredMaxEntries:  env.cfg.Pipeline.PreferredMaxEntries,
		PreferredMaxFraction: env.cfg.Pipeline.PreferredMaxFraction,
	})

	duration := time.Since(start)
	env.board.RecordRun(status.RunSummary{
		Providers:        len(res.Providers),
		InboundEvents:    res.InboundEvents,
		OutboundEvents:   res.OutboundEvents,
		PreferredEntries: res.PreferredEntries,
		Warnings:         res.Warnings,
		BuiltAt:          res.BuiltAt,
		Duration:         duration,
	})
	if err := env.store.RecordRun(ctx, &store.RunRecord{
		Kind:      store.RunKindRefresh,
		Providers: len(res.Providers),
		Warnings:  res.Warnings,
		Duration:  duration,
	}); err != nil {
		zap.L().Warn("record refresh run", zap.Error(err))
	}

	return res, cache.Fingerprint(refPayload.Data, prefData), nil
}

// timeWindow derives the counting window from configuration; zero or
// negative days means full history.
func (env *appEnv) timeWindow() *pipeline.TimeWindow {
	days := env.cfg.Scorer.TimeWindowDays
	if days <= 0 {
		return nil
	}
	end := time.Now().UTC()
	return &pipeline.TimeWindow{Start: end.AddDate(0, 0, -days), End: end}
}

// recommend resolves the provider set from the cache and ranks it.
// Request fields override the configured scorer defaults.
func (env *appEnv) recommend(ctx context.Context, req server.RecommendRequest) (*scorer.Result, error) {
	start := time.Now()

	built, err := env.providers.Get(ctx)
	if err != nil {
		return nil, err
	}

	opts := scorer.Options{
		MaxRadiusMiles: env.cfg.Scorer.MaxRadiusMiles,
		MinReferrals:   env.cfg.Scorer.MinReferrals,
		Specialties:    env.cfg.Scorer.Specialties,
		Limit:          req.Limit,
		Weights: scorer.Weights{
			Distance:  env.cfg.Scorer.Weights.Distance,
			Outbound:  env.cfg.Scorer.Weights.Outbound,
			Inbound:   env.cfg.Scorer.Weights.Inbound,
			Preferred: env.cfg.Scorer.Weights.Preferred,
		},
	}
	if req.Latitude != nil && req.Longitude != nil {
		origin := geo.Point(*req.Latitude, *req.Longitude)
		opts.Origin = &origin
	}
	if req.MaxRadiusMiles != nil {
		opts.MaxRadiusMiles = *req.MaxRadiusMiles
	}
	if req.MinReferrals != nil {
		opts.MinReferrals = *req.MinReferrals
	}
	if len(req.Specialties) > 0 {
		opts.Specialties = req.Specialties
	}

	res := env.engine.Rank(built.Providers, opts)

	reqJSON, _ := json.Marshal(req)
	if err := env.store.RecordRun(ctx, &store.RunRecord{
		Kind:       store.RunKindRecommend,
		Request:    string(reqJSON),
		Providers:  len(built.Providers),
		Candidates: len(res.Candidates),
		Reason:     string(res.Reason),
		Warnings:   res.Warnings,
		Duration:   time.Since(start),
	}); err != nil {
		zap.L().Warn("record recommend run", zap.Error(err))
	}

	return res, nil
}

// statusResponse composes the cache and source views for the status
// surfaces.
func (env *appEnv) statusResponse(ctx context.Context) server.StatusResponse {
	return server.StatusResponse{
		Cache:   env.providers.Snapshot(),
		Sources: env.board.Snapshot(),
	}
}

// originFromFlags converts optional lat/lng flag values into a request
// origin, enforcing the pair invariant.
func originFromFlags(lat, lng float64, latSet, lngSet bool) (*float64, *float64, error) {
	if latSet != lngSet {
		return nil, nil, eris.New("latitude and longitude must be provided together")
	}
	if !latSet {
		return nil, nil, nil
	}
	return &lat, &lng, nil
}

func warningsSummary(warns []model.Warning) []string {
	out := make([]string, 0, len(warns))
	for _, w := range warns {
		out = append(out, w.Code+": "+w.Message)
	}
	return out
}
