package service

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/errgroup"

	"appgambit/internal/cache"
	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"
)

const (
	topApplications      = 5
	DefaultChartDays     = 30
	MaxChartDays         = 365
	downloadChartEntries = 10
)

type AnalyticsService interface {
	Dashboard(ctx context.Context) (*dto.Dashboard, error)
	// Chart methods never fail; a failed query yields an empty chart.
	CategoryChart(ctx context.Context) *dto.Chart
	RegistrationChart(ctx context.Context, days int) *dto.Chart
	RatingChart(ctx context.Context) *dto.Chart
	DownloadChart(ctx context.Context) *dto.Chart
	SystemInfo(ctx context.Context) (*dto.SystemInfo, error)
}

type analyticsService struct {
	stats   repository.StatsRepository
	apps    repository.ApplicationRepository
	ratings repository.RatingRepository
	caching Caching
	logger  *slog.Logger
	started time.Time
	now     func() time.Time
}

func NewAnalyticsService(stats repository.StatsRepository, apps repository.ApplicationRepository, ratings repository.RatingRepository, caching Caching, logger *slog.Logger) AnalyticsService {
	return &analyticsService{
		stats:   stats,
		apps:    apps,
		ratings: ratings,
		caching: caching,
		logger:  orDefault(logger),
		started: time.Now(),
		now:     time.Now,
	}
}

// Dashboard runs the counts concurrently; any failure fails the dashboard.
func (s *analyticsService) Dashboard(ctx context.Context) (*dto.Dashboard, error) {
	return cache.GetOrCompute(ctx, s.caching.Cache, cache.StatsKey("dashboard"), s.caching.Options, func(ctx context.Context) (*dto.Dashboard, error) {
		var d dto.Dashboard
		var top []models.Application
		since := s.now().AddDate(0, 0, -30)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { d.TotalUsers, err = s.stats.CountUsers(gctx); return })
		g.Go(func() (err error) { d.TotalApplications, err = s.stats.CountApplications(gctx); return })
		g.Go(func() (err error) { d.TotalComments, err = s.stats.CountComments(gctx); return })
		g.Go(func() (err error) { d.TotalRatings, err = s.stats.CountRatings(gctx); return })
		g.Go(func() (err error) { d.TotalDownloads, err = s.stats.TotalDownloads(gctx); return })
		g.Go(func() (err error) { d.NewUsers30Days, err = s.stats.CountUsersSince(gctx, since); return })
		g.Go(func() (err error) { top, err = s.apps.Popular(gctx, topApplications); return })
		if err := g.Wait(); err != nil {
			return nil, err
		}

		ids := make([]int64, 0, len(top))
		for _, a := range top {
			ids = append(ids, a.ID)
		}
		summaries, err := s.ratings.Summaries(ctx, ids)
		if err != nil {
			return nil, err
		}
		d.TopApplications = make([]dto.ApplicationSummary, 0, len(top))
		for i := range top {
			d.TopApplications = append(d.TopApplications, dto.FromModelToSummary(&top[i], summaries[top[i].ID]))
		}
		return &d, nil
	})
}

// chart caches a chart and swallows errors into an empty one.
func (s *analyticsService) chart(ctx context.Context, key, title string, build func(ctx context.Context) ([]dto.ChartPoint, error)) *dto.Chart {
	c, err := cache.GetOrCompute(ctx, s.caching.Cache, cache.StatsKey(key), s.caching.Options, func(ctx context.Context) (*dto.Chart, error) {
		points, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if points == nil {
			points = []dto.ChartPoint{}
		}
		return &dto.Chart{Title: title, Points: points}, nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "chart query failed", "chart", key, "err", err)
		return dto.EmptyChart(title)
	}
	return c
}

func (s *analyticsService) CategoryChart(ctx context.Context) *dto.Chart {
	return s.chart(ctx, "chart:categories", "Applications by category", func(ctx context.Context) ([]dto.ChartPoint, error) {
		rows, err := s.apps.Categories(ctx)
		if err != nil {
			return nil, err
		}
		points := make([]dto.ChartPoint, 0, len(rows))
		for _, r := range rows {
			points = append(points, dto.ChartPoint{Label: r.Name, Value: r.Count})
		}
		return points, nil
	})
}

// RegistrationChart counts sign-ups per UTC day over the last days days,
// including days without any.
func (s *analyticsService) RegistrationChart(ctx context.Context, days int) *dto.Chart {
	if days <= 0 {
		days = DefaultChartDays
	}
	if days > MaxChartDays {
		days = MaxChartDays
	}
	key := "chart:registrations:" + strconv.Itoa(days)
	return s.chart(ctx, key, "User registrations", func(ctx context.Context) ([]dto.ChartPoint, error) {
		today := s.now().UTC().Truncate(24 * time.Hour)
		start := today.AddDate(0, 0, -(days - 1))
		times, err := s.stats.RegistrationTimes(ctx, start)
		if err != nil {
			return nil, err
		}
		return bucketByDay(times, start, days), nil
	})
}

func bucketByDay(times []time.Time, start time.Time, days int) []dto.ChartPoint {
	counts := make(map[string]int64, days)
	for _, t := range times {
		counts[t.UTC().Format(time.DateOnly)]++
	}
	points := make([]dto.ChartPoint, 0, days)
	for i := 0; i < days; i++ {
		label := start.AddDate(0, 0, i).Format(time.DateOnly)
		points = append(points, dto.ChartPoint{Label: label, Value: counts[label]})
	}
	return points
}

// RatingChart always has one point per rating value.
func (s *analyticsService) RatingChart(ctx context.Context) *dto.Chart {
	return s.chart(ctx, "chart:ratings", "Rating distribution", func(ctx context.Context) ([]dto.ChartPoint, error) {
		rows, err := s.stats.RatingDistribution(ctx)
		if err != nil {
			return nil, err
		}
		counts := make(map[int]int64, len(rows))
		for _, r := range rows {
			counts[r.Value] = r.Count
		}
		points := make([]dto.ChartPoint, 0, models.MaxRatingValue)
		for v := models.MinRatingValue; v <= models.MaxRatingValue; v++ {
			points = append(points, dto.ChartPoint{Label: strconv.Itoa(v), Value: counts[v]})
		}
		return points, nil
	})
}

func (s *analyticsService) DownloadChart(ctx context.Context) *dto.Chart {
	return s.chart(ctx, "chart:downloads", "Most downloaded applications", func(ctx context.Context) ([]dto.ChartPoint, error) {
		apps, err := s.apps.Popular(ctx, downloadChartEntries)
		if err != nil {
			return nil, err
		}
		points := make([]dto.ChartPoint, 0, len(apps))
		for _, a := range apps {
			points = append(points, dto.ChartPoint{Label: a.Name, Value: a.DownloadCount})
		}
		return points, nil
	})
}

// SystemInfo is never cached. Host readings that fail leave their fields zero.
func (s *analyticsService) SystemInfo(ctx context.Context) (*dto.SystemInfo, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	info := &dto.SystemInfo{
		OS:              runtime.GOOS,
		GoVersion:       runtime.Version(),
		Goroutines:      runtime.NumGoroutine(),
		HeapAllocBytes:  ms.HeapAlloc,
		CPUCount:        runtime.NumCPU(),
		ProcessUptimeMs: time.Since(s.started).Milliseconds(),
	}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.UptimeSeconds = h.Uptime
	} else {
		s.logger.WarnContext(ctx, "host info unavailable", "err", err)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.CPUCount = n
	}
	if p, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(p) > 0 {
		info.CPUPercent = p[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
		info.MemoryUsed = vm.Used
		info.MemoryPercent = vm.UsedPercent
	} else {
		s.logger.WarnContext(ctx, "memory info unavailable", "err", err)
	}
	return info, nil
}
