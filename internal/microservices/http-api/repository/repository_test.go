package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"appgambit/database"
	"appgambit/internal/apperr"
	"appgambit/internal/microservices/http-api/models"
)

// newTestDB returns a migrated in-memory database. One connection keeps every
// query on the same in-memory instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db, slog.New(slog.NewTextHandler(io.Discard, nil))))
	return db
}

type repoSuite struct {
	suite.Suite
	ctx  context.Context
	db   *gorm.DB
	base time.Time

	users    UserRepository
	apps     ApplicationRepository
	comments CommentRepository
	ratings  RatingRepository
	blobs    BlobRepository
	search   SearchRepository
	stats    StatsRepository
	tags     TagRepository
}

func (s *repoSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = newTestDB(s.T())
	s.base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.users = NewUserRepository(s.db)
	s.apps = NewApplicationRepository(s.db)
	s.comments = NewCommentRepository(s.db)
	s.ratings = NewRatingRepository(s.db)
	s.blobs = NewBlobRepository(s.db)
	s.search = NewSearchRepository(s.db)
	s.stats = NewStatsRepository(s.db)
	s.tags = NewTagRepository(s.db)
}

func (s *repoSuite) user(name string) *models.User {
	u := &models.User{Username: name, Email: name + "@example.com", DisplayName: name}
	s.Require().NoError(s.users.Create(s.ctx, u))
	return u
}

// app creates an application whose creation time is offset minutes after base.
func (s *repoSuite) app(owner *models.User, name string, minute int, tags ...string) *models.Application {
	a := &models.Application{
		Name:        name,
		Description: "about " + name,
		Category:    "Tools",
		CreatedAt:   s.base.Add(time.Duration(minute) * time.Minute),
	}
	if owner != nil {
		a.UserID = &owner.ID
	}
	s.Require().NoError(s.apps.Create(s.ctx, a, tags))
	return a
}

func (s *repoSuite) appNames(list []models.Application) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Name)
	}
	return out
}

func TestRepositories(t *testing.T) {
	suite.Run(t, new(repoSuite))
}

func (s *repoSuite) TestListPagesCoverEverythingOnce() {
	owner := s.user("owner")
	var want []string
	for i := 0; i < 25; i++ {
		s.app(owner, fmt.Sprintf("app-%02d", i), i)
	}
	for i := 24; i >= 0; i-- {
		want = append(want, fmt.Sprintf("app-%02d", i))
	}

	var got []string
	for page := 1; page <= 3; page++ {
		list, total, err := s.apps.List(s.ctx, ApplicationFilter{Page: page, PageSize: 10})
		s.Require().NoError(err)
		s.Equal(int64(25), total)
		s.LessOrEqual(len(list), 10)
		got = append(got, s.appNames(list)...)
	}
	s.Equal(want, got)

	empty, _, err := s.apps.List(s.ctx, ApplicationFilter{Page: 4, PageSize: 10})
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *repoSuite) TestListSameTimestampIsStable() {
	for i := 0; i < 4; i++ {
		s.app(nil, fmt.Sprintf("twin-%d", i), 0)
	}
	first, _, err := s.apps.List(s.ctx, ApplicationFilter{Page: 1, PageSize: 2})
	s.Require().NoError(err)
	second, _, err := s.apps.List(s.ctx, ApplicationFilter{Page: 2, PageSize: 2})
	s.Require().NoError(err)
	s.Equal([]string{"twin-3", "twin-2", "twin-1", "twin-0"}, append(s.appNames(first), s.appNames(second)...))
}

func (s *repoSuite) TestListSearchIsCaseInsensitiveSubstring() {
	s.app(nil, "Foo Bar", 1)
	s.app(nil, "Other", 2)

	for _, q := range []string{"foo", "Bar", "oo ba", "FOO BAR"} {
		list, total, err := s.apps.List(s.ctx, ApplicationFilter{Search: q, Page: 1, PageSize: 10})
		s.Require().NoError(err)
		s.Equal(int64(1), total, q)
		s.Equal([]string{"Foo Bar"}, s.appNames(list), q)
	}

	list, total, err := s.apps.List(s.ctx, ApplicationFilter{Search: "xyz", Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(list)
}

func (s *repoSuite) TestListSearchTreatsWildcardsLiterally() {
	s.app(nil, "100% Free", 1)
	s.app(nil, "1000 Free", 2)

	list, _, err := s.apps.List(s.ctx, ApplicationFilter{Search: "0%", Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Equal([]string{"100% Free"}, s.appNames(list))

	list, _, err = s.apps.List(s.ctx, ApplicationFilter{Search: "_", Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *repoSuite) TestListFilters() {
	owner := s.user("owner")
	a := s.app(owner, "Editor", 1, "Text", "dev")
	s.app(nil, "Game", 2, "fun")
	s.Require().NoError(s.db.Model(a).Update("category", "Productivity").Error)

	list, _, err := s.apps.List(s.ctx, ApplicationFilter{Category: "productivity", Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Equal([]string{"Editor"}, s.appNames(list))

	list, _, err = s.apps.List(s.ctx, ApplicationFilter{Tag: "TEXT", Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Equal([]string{"Editor"}, s.appNames(list))
	s.ElementsMatch([]string{"text", "dev"}, list[0].TagNames())

	list, _, err = s.apps.List(s.ctx, ApplicationFilter{OwnerID: owner.ID, Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Equal([]string{"Editor"}, s.appNames(list))
}

func (s *repoSuite) TestGetByNameAndUpdate() {
	a := s.app(nil, "Paint Pro", 1, "art")

	got, err := s.apps.GetByName(s.ctx, "paint pro")
	s.Require().NoError(err)
	s.Equal(a.ID, got.ID)

	got.Version = "2.0"
	got.Description = ""
	s.Require().NoError(s.apps.Update(s.ctx, got, []string{"art", "design"}))

	reloaded, err := s.apps.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("2.0", reloaded.Version)
	s.Empty(reloaded.Description)
	s.ElementsMatch([]string{"art", "design"}, reloaded.TagNames())

	s.Require().NoError(s.apps.Update(s.ctx, reloaded, nil))
	reloaded, err = s.apps.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Len(reloaded.Tags, 2, "nil tags leave links untouched")

	_, err = s.apps.GetByID(s.ctx, 999)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *repoSuite) TestDeleteRemovesCommentsRatingsAndTags() {
	u := s.user("rater")
	a := s.app(nil, "Doomed", 1, "x")
	keep := s.app(nil, "Kept", 2, "x")

	s.Require().NoError(s.comments.Create(s.ctx, &models.Comment{ApplicationID: a.ID, UserID: u.ID, Content: "hi"}))
	_, err := s.ratings.Upsert(s.ctx, &models.Rating{ApplicationID: a.ID, UserID: u.ID, Value: 4, IsLike: true})
	s.Require().NoError(err)

	s.Require().NoError(s.apps.Delete(s.ctx, a.ID))

	var n int64
	s.db.Model(&models.Comment{}).Where("application_id = ?", a.ID).Count(&n)
	s.Zero(n)
	s.db.Model(&models.Rating{}).Where("application_id = ?", a.ID).Count(&n)
	s.Zero(n)
	s.db.Table("application_tags").Where("application_id = ?", a.ID).Count(&n)
	s.Zero(n)

	got, err := s.apps.GetByID(s.ctx, keep.ID)
	s.Require().NoError(err)
	s.Equal([]string{"x"}, got.TagNames())

	s.ErrorIs(s.apps.Delete(s.ctx, a.ID), gorm.ErrRecordNotFound)
}

func (s *repoSuite) TestIncrementDownloadsAndPopular() {
	a := s.app(nil, "A", 1)
	b := s.app(nil, "B", 2)
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.apps.IncrementDownloads(s.ctx, a.ID))
	}
	s.Require().NoError(s.apps.IncrementDownloads(s.ctx, b.ID))
	s.ErrorIs(s.apps.IncrementDownloads(s.ctx, 12345), gorm.ErrRecordNotFound)

	popular, err := s.apps.Popular(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal([]string{"A"}, s.appNames(popular))
	s.Equal(int64(3), popular[0].DownloadCount)

	total, err := s.stats.TotalDownloads(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(4), total)
}

func (s *repoSuite) TestCategoriesAndTags() {
	s.app(nil, "A", 1, "one", "two")
	s.app(nil, "B", 2, "two")
	c := s.app(nil, "C", 3)
	s.Require().NoError(s.db.Model(c).Update("category", "Games").Error)

	cats, err := s.apps.Categories(s.ctx)
	s.Require().NoError(err)
	s.Equal([]NameCount{{Name: "Tools", Count: 2}, {Name: "Games", Count: 1}}, cats)

	tags, err := s.tags.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]NameCount{{Name: "two", Count: 2}, {Name: "one", Count: 1}}, tags)
}

func (s *repoSuite) TestRatingUpsertKeepsOneRow() {
	u := s.user("rater")
	a := s.app(nil, "Rated", 1)

	_, err := s.ratings.Upsert(s.ctx, &models.Rating{ApplicationID: a.ID, UserID: u.ID, Value: 2, IsLike: true})
	s.Require().NoError(err)
	latest, err := s.ratings.Upsert(s.ctx, &models.Rating{ApplicationID: a.ID, UserID: u.ID, Value: 5, IsLike: false})
	s.Require().NoError(err)
	s.Equal(5, latest.Value)
	s.False(latest.IsLike)

	var rows []models.Rating
	s.Require().NoError(s.db.Where("application_id = ? AND user_id = ?", a.ID, u.ID).Find(&rows).Error)
	s.Require().Len(rows, 1)
	s.Equal(5, rows[0].Value)
	s.False(rows[0].IsLike)
}

func (s *repoSuite) TestUniqueIndexRejectsDuplicateRating() {
	u := s.user("rater")
	a := s.app(nil, "Rated", 1)

	s.Require().NoError(s.db.Create(&models.Rating{ApplicationID: a.ID, UserID: u.ID, Value: 3}).Error)
	err := s.db.Create(&models.Rating{ApplicationID: a.ID, UserID: u.ID, Value: 4}).Error
	s.Require().Error(err)
	s.True(IsDuplicateKey(err))
}

func (s *repoSuite) TestRatingUpsertOverwritesRowInsertedConcurrently() {
	u := s.user("rater")
	a := s.app(nil, "Rated", 1)

	// Once Upsert's lookup has missed, slip in the competing insert so its
	// own insert hits the unique index.
	var competitor *models.Rating
	s.Require().NoError(s.db.Callback().Query().After("gorm:query").Register("test:concurrent_rating", func(tx *gorm.DB) {
		if competitor != nil || tx.Statement.Table != "ratings" || !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return
		}
		competitor = &models.Rating{ApplicationID: a.ID, UserID: u.ID, Value: 1, IsLike: false}
		if err := tx.Session(&gorm.Session{NewDB: true}).Omit("User", "Application").Create(competitor).Error; err != nil {
			tx.AddError(err)
		}
	}))

	got, err := s.ratings.Upsert(s.ctx, &models.Rating{ApplicationID: a.ID, UserID: u.ID, Value: 4, IsLike: true})
	s.Require().NoError(err)
	s.Require().NotNil(competitor, "competing insert did not run")
	s.Equal(competitor.ID, got.ID)
	s.Equal(4, got.Value)
	s.True(got.IsLike)

	var rows []models.Rating
	s.Require().NoError(s.db.Where("application_id = ? AND user_id = ?", a.ID, u.ID).Find(&rows).Error)
	s.Require().Len(rows, 1)
	s.Equal(4, rows[0].Value)
	s.True(rows[0].IsLike)
}

func (s *repoSuite) TestSummaryMatchesMean() {
	a := s.app(nil, "Rated", 1)
	empty := s.app(nil, "Unrated", 2)
	values := []int{5, 4, 1}
	for i, v := range values {
		u := s.user(fmt.Sprintf("u%d", i))
		_, err := s.ratings.Upsert(s.ctx, &models.Rating{ApplicationID: a.ID, UserID: u.ID, Value: v, IsLike: v >= 4})
		s.Require().NoError(err)
	}

	sum, err := s.ratings.Summary(s.ctx, a.ID)
	s.Require().NoError(err)
	s.InDelta(10.0/3.0, sum.AverageRating, 1e-9)
	s.Equal(int64(3), sum.TotalRatings)
	s.Equal(int64(2), sum.Likes)
	s.Equal(int64(1), sum.Dislikes)

	zero, err := s.ratings.Summary(s.ctx, empty.ID)
	s.Require().NoError(err)
	s.Equal(models.RatingSummary{}, zero)

	all, err := s.ratings.Summaries(s.ctx, []int64{a.ID, empty.ID})
	s.Require().NoError(err)
	s.Equal(sum, all[a.ID])
	_, ok := all[empty.ID]
	s.False(ok)

	dist, err := s.stats.RatingDistribution(s.ctx)
	s.Require().NoError(err)
	s.Equal([]ValueCount{{Value: 1, Count: 1}, {Value: 4, Count: 1}, {Value: 5, Count: 1}}, dist)
}

func (s *repoSuite) TestCommentsPageNewestFirst() {
	u := s.user("author")
	a := s.app(nil, "Chatty", 1)
	for i := 0; i < 5; i++ {
		c := &models.Comment{ApplicationID: a.ID, UserID: u.ID, Content: fmt.Sprintf("c%d", i), CreatedAt: s.base.Add(time.Duration(i) * time.Second)}
		s.Require().NoError(s.comments.Create(s.ctx, c))
	}

	page, total, err := s.comments.GetByApplication(s.ctx, a.ID, 1, 2)
	s.Require().NoError(err)
	s.Equal(int64(5), total)
	s.Require().Len(page, 2)
	s.Equal("c4", page[0].Content)
	s.Equal("author", page[0].User.Username)

	s.Require().NoError(s.comments.UpdateContent(s.ctx, page[0].ID, "edited"))
	got, err := s.comments.GetByID(s.ctx, page[0].ID)
	s.Require().NoError(err)
	s.Equal("edited", got.Content)

	s.Require().NoError(s.comments.Delete(s.ctx, got.ID))
	s.ErrorIs(s.comments.Delete(s.ctx, got.ID), gorm.ErrRecordNotFound)

	n, err := s.comments.CountByApplication(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(int64(4), n)
}

func (s *repoSuite) TestBlobDeleteClearsReferences() {
	u := s.user("owner")
	icon := &models.ImageData{ContentType: "image/png", Data: []byte{1}, Size: 1, Kind: models.KindIcon}
	s.Require().NoError(s.blobs.Create(s.ctx, icon))
	profile := &models.ImageData{ContentType: "image/jpeg", Data: []byte{2}, Size: 1, Kind: models.KindProfile, UserID: &u.ID}
	s.Require().NoError(s.blobs.Create(s.ctx, profile))

	a := &models.Application{Name: "Iconic", IconID: &icon.ID, UserID: &u.ID}
	s.Require().NoError(s.apps.Create(s.ctx, a, nil))
	s.Require().NoError(s.blobs.AttachToApplication(s.ctx, a.ID, icon.ID))
	s.Require().NoError(s.users.UpdateProfileImage(s.ctx, u.ID, &profile.ID))

	listed, err := s.blobs.ListByApplication(s.ctx, a.ID, models.KindIcon)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Nil(listed[0].Data, "listing does not load payloads")

	s.Require().NoError(s.blobs.Delete(s.ctx, icon.ID, profile.ID))

	got, err := s.apps.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Nil(got.IconID)
	owner, err := s.users.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Nil(owner.ProfileImageID)
	_, err = s.blobs.GetByID(s.ctx, icon.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *repoSuite) TestUserDeleteOrphansApplications() {
	owner := s.user("owner")
	other := s.user("other")
	a := s.app(owner, "Orphan", 1)
	mine := s.app(other, "Mine", 2)
	s.Require().NoError(s.comments.Create(s.ctx, &models.Comment{ApplicationID: mine.ID, UserID: owner.ID, Content: "x"}))

	s.Require().NoError(s.users.Delete(s.ctx, owner.ID))

	got, err := s.apps.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Nil(got.UserID)
	n, err := s.comments.CountByApplication(s.ctx, mine.ID)
	s.Require().NoError(err)
	s.Zero(n)
	s.ErrorIs(s.users.Delete(s.ctx, owner.ID), gorm.ErrRecordNotFound)
}

func (s *repoSuite) TestUserLookupsAndExternalLogins() {
	u := s.user("Alice")

	byLogin, err := s.users.FindByLogin(s.ctx, "alice@EXAMPLE.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byLogin.ID)
	byLogin, err = s.users.FindByLogin(s.ctx, "ALICE")
	s.Require().NoError(err)
	s.Equal(u.ID, byLogin.ID)

	err = s.users.Create(s.ctx, &models.User{Username: "alice2", Email: "alice@example.com"})
	s.ErrorIs(err, apperr.ErrConflict)

	s.Require().NoError(s.users.AddExternalLogin(s.ctx, &models.ExternalLogin{Provider: "github", ProviderUserID: "42", UserID: u.ID}))
	linked, err := s.users.FindByExternalLogin(s.ctx, "github", "42")
	s.Require().NoError(err)
	s.Equal(u.ID, linked.ID)
	_, err = s.users.FindByExternalLogin(s.ctx, "github", "43")
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *repoSuite) TestSearch() {
	u := s.user("searcher")
	s.Require().NoError(s.users.UpdateDisplayName(s.ctx, u.ID, "Foo Fighter"))
	s.app(nil, "Foo Bar", 1, "utility")
	s.app(nil, "Tagged", 2, "foobar")

	apps, total, err := s.search.Applications(s.ctx, "FOO", 10)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Equal([]string{"Tagged", "Foo Bar"}, s.appNames(apps))

	users, n, err := s.search.Users(s.ctx, "fight", 10)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
	s.Equal(u.ID, users[0].ID)

	cats, n, err := s.search.Categories(s.ctx, "too", 5)
	s.Require().NoError(err)
	s.Equal([]string{"Tools"}, cats)
	s.Equal(int64(1), n)
}

func (s *repoSuite) TestStats() {
	u := s.user("a")
	s.user("b")
	s.app(u, "A", 1)

	n, err := s.stats.CountUsers(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	recent, err := s.stats.CountUsersSince(s.ctx, time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(2), recent)

	times, err := s.stats.RegistrationTimes(s.ctx, time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Len(times, 2)

	apps, comments, ratings, err := s.stats.UserActivity(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal([]int64{1, 0, 0}, []int64{apps, comments, ratings})
}
