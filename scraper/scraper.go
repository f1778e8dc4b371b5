package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-train-punctuality/config"
	"github.com/aluiziolira/go-train-punctuality/extract"
	"github.com/aluiziolira/go-train-punctuality/models"
)

const ctxSource = "source"

// Scraper fetches report pages with colly and hands each parsed document
// to the extractor. Extracted datasets are cached per URL for
// Config.CacheTTL across calls to Run, so callers that keep one Scraper
// alive (a service refreshing on a schedule) skip the network between
// refreshes. A Scraper built for a single run never hits the cache.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	extractor *extract.Extractor
	cache     *DatasetCache
	Metrics   *Metrics

	requestCount int64
	errorCount   int64

	mu           sync.Mutex
	ctx          context.Context
	retry        *retryManager
	runs         map[string]*sourceRun
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

type sourceRun struct {
	source  config.Source
	summary models.SourceSummary
	records models.Dataset
	err     error
	done    bool
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	domains := cfg.AllowedDomains()
	if len(domains) == 0 {
		return nil, fmt.Errorf("no source URL with a host configured")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(domains...),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	metrics := NewMetrics()
	s := &Scraper{
		cfg:       cfg,
		collector: collector,
		extractor: extract.NewExtractor(extract.Options{
			Strict:   cfg.StrictPeriods,
			Observer: metrics,
		}),
		cache:        NewDatasetCache(cfg.CacheSize, cfg.CacheTTL),
		Metrics:      metrics,
		errorsByType: make(map[string]int),
	}
	return s, nil
}

// Run fetches every source and returns the combined dataset in source
// order. Fetch failures that outlive their retries and extraction failures
// are joined into the returned error; the result is returned either way.
func (s *Scraper) Run(ctx context.Context, sources []config.Source) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rm := s.beginRun(ctx, sources)
	s.configureHandlers()

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			rm.Stop()
		case <-done:
		}
	}()

	for _, src := range sources {
		if cached, ok := s.cache.Get(src.URL); ok {
			s.Metrics.IncCacheHit()
			slog.Debug("serving source from cache", slog.String("source", src.Name))
			s.completeSource(src.Name, cached, extract.Result{Records: cached}, true)
			continue
		}

		reqCtx := colly.NewContext()
		reqCtx.Put(ctxSource, src.Name)
		if err := s.collector.Request(http.MethodGet, src.URL, nil, reqCtx, nil); err != nil {
			s.failSource(src.Name, fmt.Errorf("visit %s: %w", src.URL, err))
		}
	}

	for {
		s.collector.Wait()
		if rm.Pending() == 0 {
			break
		}
		rm.Wait()
	}
	rm.Stop()

	return s.collect(ctx, sources, start, rm)
}

func (s *Scraper) beginRun(ctx context.Context, sources []config.Source) *retryManager {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	s.retry = newRetryManager(ctx, s.cfg, s.Metrics)
	s.runs = make(map[string]*sourceRun, len(sources))
	for _, src := range sources {
		s.runs[src.Name] = &sourceRun{
			source:  src,
			summary: models.SourceSummary{Name: src.Name, URL: src.URL},
		}
	}
	s.failedURLs = nil
	s.errorsByType = make(map[string]int)
	atomic.StoreInt64(&s.requestCount, 0)
	atomic.StoreInt64(&s.errorCount, 0)
	return s.retry
}

func (s *Scraper) collect(ctx context.Context, sources []config.Source, start time.Time, rm *retryManager) (*models.ScrapeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &models.ScrapeResult{
		StartTime:    start,
		EndTime:      time.Now(),
		RetryCount:   rm.TotalRetries(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		FailedURLs:   append([]string(nil), s.failedURLs...),
	}

	var errs []error
	for _, src := range sources {
		run := s.runs[src.Name]
		if !run.done && run.err == nil {
			run.err = fmt.Errorf("no HTML document received from %s", src.URL)
		}
		if run.err != nil {
			errs = append(errs, &SourceError{Source: src.Name, Err: run.err})
		}
		result.Records = append(result.Records, run.records...)
		result.Sources = append(result.Sources, run.summary)
	}

	result.ErrorCount = int(atomic.LoadInt64(&s.errorCount))
	result.ErrorsByType = make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		result.ErrorsByType[k] = v
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return result, errors.Join(errs...)
}

func (s *Scraper) configureHandlers() {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			if ctx := s.runContext(); ctx.Err() != nil {
				r.Abort()
				return
			}
			r.Ctx.Put("start", time.Now())
			atomic.AddInt64(&s.requestCount, 1)
			s.Metrics.IncRequest("started")
			slog.Debug("requesting report",
				slog.String("source", r.Ctx.Get(ctxSource)),
				slog.String("url", r.URL.String()),
			)
		})

		s.collector.OnResponse(func(r *colly.Response) {
			s.Metrics.IncRequest("completed")
			if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			atomic.AddInt64(&s.errorCount, 1)
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			classified := classifyError(err, statusCode)
			category := errorTypeLabel(classified)
			s.recordErrorType(category)
			s.Metrics.IncError(category)

			var (
				url    string
				source string
			)
			if r != nil && r.Request != nil {
				if r.Request.URL != nil {
					url = r.Request.URL.String()
				}
				source = r.Request.Ctx.Get(ctxSource)
			}
			slog.Error("request error",
				slog.String("source", source),
				slog.String("url", url),
				slog.String("category", category),
				slog.Any("error", err),
			)

			if r != nil && r.Request != nil && s.currentRetry().Schedule(r.Request) {
				return
			}
			s.mu.Lock()
			s.failedURLs = append(s.failedURLs, url)
			s.mu.Unlock()
			s.failSource(source, classified)
		})

		s.collector.OnHTML("html", func(e *colly.HTMLElement) {
			source := e.Request.Ctx.Get(ctxSource)
			result, err := s.extractor.Extract(e.DOM)
			if err != nil {
				category := errorTypeLabel(err)
				s.recordErrorType(category)
				s.Metrics.IncError(category)
				slog.Error("extraction failed",
					slog.String("source", source),
					slog.String("category", category),
					slog.Any("error", err),
				)
				s.failSource(source, err)
				return
			}

			for _, record := range result.Records {
				record.Source = source
			}
			s.completeSource(source, result.Records, *result, false)
		})
	})
}

func (s *Scraper) completeSource(name string, records models.Dataset, result extract.Result, cached bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[name]
	if !ok {
		slog.Warn("document for unknown source", slog.String("source", name))
		return
	}
	run.done = true
	run.err = nil
	run.records = records
	run.summary.Cached = cached
	run.summary.Records = len(records)
	if !cached {
		run.summary.Tables = result.Tables
		run.summary.RowsSkipped = result.RowsSkipped
		run.summary.Warnings = len(result.Warnings)
		s.cache.Add(run.source.URL, records)
	}

	for _, w := range result.Warnings {
		slog.Warn("extraction warning", slog.String("source", name), slog.Any("warning", w))
	}
	slog.Info("source extracted",
		slog.String("source", name),
		slog.Int("records", len(records)),
		slog.Bool("cached", cached),
	)
}

func (s *Scraper) failSource(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[name]; ok && !run.done {
		run.err = err
	}
}

func (s *Scraper) recordErrorType(category string) {
	s.mu.Lock()
	s.errorsByType[category]++
	s.mu.Unlock()
}

func (s *Scraper) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Scraper) currentRetry() *retryManager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retry
}

// Cache exposes the dataset cache so callers can purge it.
func (s *Scraper) Cache() *DatasetCache {
	return s.cache
}

type retryManager struct {
	ctx     context.Context
	cfg     *config.Config
	metrics *Metrics
	resend  func(*colly.Request) error

	mu           sync.Mutex
	attempts     map[string]int
	timers       map[string]*time.Timer
	pending      sync.WaitGroup
	inflight     int
	totalRetries int
	stopped      bool
}

func newRetryManager(ctx context.Context, cfg *config.Config, metrics *Metrics) *retryManager {
	if ctx == nil {
		ctx = context.Background()
	}
	return &retryManager{
		ctx:      ctx,
		cfg:      cfg,
		metrics:  metrics,
		resend:   func(r *colly.Request) error { return r.Retry() },
		attempts: make(map[string]int),
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule queues a delayed retry of req. It reports false once the
// attempts for that URL are exhausted or the run is over.
func (rm *retryManager) Schedule(req *colly.Request) bool {
	if rm.cfg.MaxRetries == 0 || req == nil || req.URL == nil {
		return false
	}
	if rm.ctx.Err() != nil {
		return false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return false
	}

	url := req.URL.String()
	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		return false
	}

	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	rm.metrics.IncRetries()

	if timer, ok := rm.timers[url]; ok && timer.Stop() {
		rm.releaseLocked()
	}
	rm.inflight++
	rm.pending.Add(1)
	rm.timers[url] = time.AfterFunc(rm.backoff(attempt), func() {
		rm.fire(url, req)
	})
	return true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if limit := rm.cfg.RetryBackoffMax; limit > 0 && delay > limit {
		delay = limit
	}
	return delay
}

func (rm *retryManager) fire(url string, req *colly.Request) {
	rm.mu.Lock()
	delete(rm.timers, url)
	stopped := rm.stopped
	rm.mu.Unlock()

	defer func() {
		rm.mu.Lock()
		rm.releaseLocked()
		rm.mu.Unlock()
	}()

	if stopped || rm.ctx.Err() != nil {
		return
	}
	if err := rm.resend(req); err != nil {
		slog.Debug("retry request failed", slog.String("url", url), slog.Any("error", err))
	}
}

func (rm *retryManager) releaseLocked() {
	rm.inflight--
	rm.pending.Done()
}

// Pending reports retries scheduled but not yet sent.
func (rm *retryManager) Pending() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.inflight
}

// Wait blocks until every scheduled retry has been sent or cancelled.
func (rm *retryManager) Wait() {
	rm.pending.Wait()
}

func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return
	}

	rm.stopped = true
	for url, timer := range rm.timers {
		if timer.Stop() {
			rm.releaseLocked()
		}
		delete(rm.timers, url)
	}
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}
