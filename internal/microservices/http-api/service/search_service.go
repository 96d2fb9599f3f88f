package service

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"appgambit/internal/cache"
	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

type SearchService interface {
	Suggest(ctx context.Context, query string, limit int) (*dto.Suggestions, error)
	QuickSearch(ctx context.Context, query string, limit int) (*dto.QuickSearchResponse, error)
	Filters(ctx context.Context) (*dto.Filters, error)
}

type searchService struct {
	search  repository.SearchRepository
	apps    repository.ApplicationRepository
	tags    repository.TagRepository
	caching Caching
	logger  *slog.Logger
}

func NewSearchService(search repository.SearchRepository, apps repository.ApplicationRepository, tags repository.TagRepository, caching Caching, logger *slog.Logger) SearchService {
	return &searchService{
		search:  search,
		apps:    apps,
		tags:    tags,
		caching: caching,
		logger:  orDefault(logger),
	}
}

// ClampSearchLimit maps out-of-range limits onto 1..MaxSearchLimit; zero
// and negative values take the default.
func ClampSearchLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

// matches runs the three lookups for one query.
type matches struct {
	apps       []models.Application
	appTotal   int64
	users      []models.User
	userTotal  int64
	categories []string
	catTotal   int64
}

func (s *searchService) find(ctx context.Context, query string, limit int) (*matches, error) {
	var m matches
	var err error
	if m.apps, m.appTotal, err = s.search.Applications(ctx, query, limit); err != nil {
		return nil, err
	}
	if m.users, m.userTotal, err = s.search.Users(ctx, query, limit); err != nil {
		return nil, err
	}
	if m.categories, m.catTotal, err = s.search.Categories(ctx, query, limit); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *searchService) Suggest(ctx context.Context, query string, limit int) (*dto.Suggestions, error) {
	query = strings.TrimSpace(query)
	limit = ClampSearchLimit(limit)
	if query == "" {
		return emptySuggestions(), nil
	}

	return cache.GetOrCompute(ctx, s.caching.Cache, cache.SearchKey("suggest", query, limit), s.caching.Options, func(ctx context.Context) (*dto.Suggestions, error) {
		m, err := s.find(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		out := emptySuggestions()
		for i := range m.apps {
			out.Applications = append(out.Applications, applicationResult(&m.apps[i]))
		}
		for i := range m.users {
			out.Users = append(out.Users, userResult(&m.users[i]))
		}
		for _, c := range m.categories {
			out.Categories = append(out.Categories, categoryResult(c))
		}
		return out, nil
	})
}

// QuickSearch returns one flat list: applications, then users, then
// categories, cut at limit. Total counts every match.
func (s *searchService) QuickSearch(ctx context.Context, query string, limit int) (*dto.QuickSearchResponse, error) {
	query = strings.TrimSpace(query)
	limit = ClampSearchLimit(limit)
	if query == "" {
		return &dto.QuickSearchResponse{Query: query, Results: []dto.SearchResult{}}, nil
	}

	return cache.GetOrCompute(ctx, s.caching.Cache, cache.SearchKey("quick", query, limit), s.caching.Options, func(ctx context.Context) (*dto.QuickSearchResponse, error) {
		m, err := s.find(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		results := make([]dto.SearchResult, 0, limit)
		for i := range m.apps {
			results = append(results, applicationResult(&m.apps[i]))
		}
		for i := range m.users {
			results = append(results, userResult(&m.users[i]))
		}
		for _, c := range m.categories {
			results = append(results, categoryResult(c))
		}
		if len(results) > limit {
			results = results[:limit]
		}
		return &dto.QuickSearchResponse{
			Query:   query,
			Results: results,
			Total:   m.appTotal + m.userTotal + m.catTotal,
		}, nil
	})
}

func (s *searchService) Filters(ctx context.Context) (*dto.Filters, error) {
	return cache.GetOrCompute(ctx, s.caching.Cache, cache.SearchKey("filters", "", 0), s.caching.Options, func(ctx context.Context) (*dto.Filters, error) {
		categories, err := s.apps.Categories(ctx)
		if err != nil {
			return nil, err
		}
		tags, err := s.tags.List(ctx)
		if err != nil {
			return nil, err
		}
		return &dto.Filters{Categories: toNameCounts(categories), Tags: toNameCounts(tags)}, nil
	})
}

func emptySuggestions() *dto.Suggestions {
	return &dto.Suggestions{
		Applications: []dto.SearchResult{},
		Users:        []dto.SearchResult{},
		Categories:   []dto.SearchResult{},
	}
}

func applicationResult(a *models.Application) dto.SearchResult {
	id := strconv.FormatInt(a.ID, 10)
	return dto.SearchResult{
		Type:     dto.ResultApplication,
		ID:       id,
		Title:    a.Name,
		Subtitle: a.Category,
		URL:      "/Applications/Details/" + id,
	}
}

func userResult(u *models.User) dto.SearchResult {
	return dto.SearchResult{
		Type:     dto.ResultUser,
		ID:       u.ID,
		Title:    u.Name(),
		Subtitle: "@" + u.Username,
		URL:      "/Users/" + u.ID,
	}
}

func categoryResult(c string) dto.SearchResult {
	return dto.SearchResult{
		Type:  dto.ResultCategory,
		ID:    c,
		Title: c,
		URL:   "/?category=" + url.QueryEscape(c),
	}
}
