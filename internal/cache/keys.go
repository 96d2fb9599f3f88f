package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Key layout. Per-application entries share the "app:{id}:" prefix and every
// list-level entry lives under "apps:", so one mutation can drop all entries
// that might contain the entity.
const (
	ListPrefix   = "apps:"
	SearchPrefix = "search:"
	StatsPrefix  = "stats:"
	UserPrefix   = "user:"
)

func ApplicationPrefix(id int64) string { return fmt.Sprintf("app:%d:", id) }

func ApplicationDetailKey(id int64) string { return fmt.Sprintf("app:%d:detail", id) }

func ApplicationCommentsKey(id int64, page, pageSize int) string {
	return fmt.Sprintf("app:%d:comments:%d:%d", id, page, pageSize)
}

// ListKey joins the normalized parts of a listing query.
func ListKey(parts ...any) string {
	s := make([]string, 0, len(parts))
	for _, p := range parts {
		s = append(s, strings.ToLower(fmt.Sprint(p)))
	}
	return ListPrefix + "list:" + strings.Join(s, "|")
}

func PopularKey(limit int) string { return fmt.Sprintf("%spopular:%d", ListPrefix, limit) }

func CategoriesKey() string { return ListPrefix + "categories" }

func SearchKey(kind, query string, limit int) string {
	return fmt.Sprintf("%s%s:%d:%s", SearchPrefix, kind, limit, strings.ToLower(strings.TrimSpace(query)))
}

func StatsKey(name string) string { return StatsPrefix + name }

func UserProfileKey(userID string) string { return UserPrefix + userID + ":profile" }

// Invalidator drops the entries a mutation makes stale. Failures are logged:
// stale entries still expire on their TTL.
type Invalidator struct {
	cache  Cache
	logger *slog.Logger
}

func NewInvalidator(c Cache, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{cache: c, logger: logger}
}

// Application is used after create/update/delete of an application, after
// rating changes and after downloads, all of which alter list payloads.
// users are the accounts whose profiles show the change: the owner and the
// acting user.
func (i *Invalidator) Application(ctx context.Context, id int64, users ...string) {
	i.prefixes(ctx, ApplicationPrefix(id), ListPrefix, SearchPrefix, StatsPrefix)
	i.profiles(ctx, users)
}

// ApplicationDeleted also drops every profile: the comments and ratings of
// all participants went with the application.
func (i *Invalidator) ApplicationDeleted(ctx context.Context, id int64) {
	i.prefixes(ctx, ApplicationPrefix(id), ListPrefix, SearchPrefix, StatsPrefix, UserPrefix)
}

// Comments is used after comment create/update/delete.
func (i *Invalidator) Comments(ctx context.Context, applicationID int64, users ...string) {
	i.prefixes(ctx, ApplicationPrefix(applicationID), ListPrefix, StatsPrefix)
	i.profiles(ctx, users)
}

// User is used after profile changes or account deletion. Owner names appear
// in application payloads so those go too.
func (i *Invalidator) User(ctx context.Context, userID string) {
	i.prefixes(ctx, UserPrefix+userID+":", "app:", ListPrefix, SearchPrefix, StatsPrefix)
}

func (i *Invalidator) profiles(ctx context.Context, users []string) {
	if i == nil || i.cache == nil {
		return
	}
	for _, u := range users {
		if u == "" {
			continue
		}
		if err := i.cache.Delete(ctx, UserProfileKey(u)); err != nil {
			i.logger.WarnContext(ctx, "cache invalidation failed", "driver", i.cache.Name(), "key", UserProfileKey(u), "err", err)
		}
	}
}

func (i *Invalidator) prefixes(ctx context.Context, prefixes ...string) {
	if i == nil || i.cache == nil {
		return
	}
	for _, p := range prefixes {
		if err := i.cache.DeletePrefix(ctx, p); err != nil {
			i.logger.WarnContext(ctx, "cache invalidation failed", "driver", i.cache.Name(), "prefix", p, "err", err)
		}
	}
}
