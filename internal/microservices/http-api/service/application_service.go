package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"appgambit/internal/apperr"
	"appgambit/internal/cache"
	"appgambit/internal/imaging"
	"appgambit/internal/metrics"
	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"
)

// ApplicationUploads are the optional files sent with create and edit.
type ApplicationUploads struct {
	Icon        *Upload
	File        *Upload
	Screenshots []Upload
}

// Download is what the download endpoint serves: the stored package when
// there is one, otherwise a redirect to Application.DownloadURL.
type Download struct {
	Application *models.Application
	File        *Blob
}

type ApplicationService interface {
	List(ctx context.Context, q dto.ApplicationQuery) (*dto.Paginated[dto.ApplicationSummary], error)
	Get(ctx context.Context, id int64) (*models.Application, error)
	GetByName(ctx context.Context, name string) (*dto.ApplicationDetail, error)
	Detail(ctx context.Context, id int64) (*dto.ApplicationDetail, error)
	Create(ctx context.Context, in dto.ApplicationInput, up ApplicationUploads, ownerID string) (*dto.ApplicationResponse, error)
	Update(ctx context.Context, id int64, in dto.ApplicationInput, up ApplicationUploads, req Requester) (*dto.ApplicationResponse, error)
	Delete(ctx context.Context, id int64, req Requester) error
	Download(ctx context.Context, id int64) (*Download, error)
	Popular(ctx context.Context, limit int) ([]dto.ApplicationSummary, error)
	Categories(ctx context.Context) ([]dto.NameCount, error)
}

type applicationService struct {
	apps     repository.ApplicationRepository
	users    repository.UserRepository
	ratings  repository.RatingRepository
	comments repository.CommentRepository
	blobs    repository.BlobRepository
	images   ImageService
	caching  Caching
	logger   *slog.Logger
}

func NewApplicationService(
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	ratings repository.RatingRepository,
	comments repository.CommentRepository,
	blobs repository.BlobRepository,
	images ImageService,
	caching Caching,
	logger *slog.Logger,
) ApplicationService {
	return &applicationService{
		apps:     apps,
		users:    users,
		ratings:  ratings,
		comments: comments,
		blobs:    blobs,
		images:   images,
		caching:  caching,
		logger:   orDefault(logger),
	}
}

func (s *applicationService) List(ctx context.Context, q dto.ApplicationQuery) (*dto.Paginated[dto.ApplicationSummary], error) {
	page, pageSize := dto.NormalizePage(q.Page, q.PageSize)
	filter := repository.ApplicationFilter{
		Search:   strings.TrimSpace(q.Search),
		Category: strings.TrimSpace(q.Category),
		Tag:      strings.TrimSpace(q.Tag),
		SortBy:   q.Sort,
		Page:     page,
		PageSize: pageSize,
	}
	key := cache.ListKey(filter.Search, filter.Category, filter.Tag, filter.SortBy, page, pageSize)

	return cache.GetOrCompute(ctx, s.caching.Cache, key, s.caching.Options, func(ctx context.Context) (*dto.Paginated[dto.ApplicationSummary], error) {
		apps, total, err := s.apps.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		summaries, err := s.summarize(ctx, apps)
		if err != nil {
			return nil, err
		}
		return dto.NewPaginated(summaries, total, page, pageSize), nil
	})
}

// summarize attaches rating summaries to apps with one grouped query.
func (s *applicationService) summarize(ctx context.Context, apps []models.Application) ([]dto.ApplicationSummary, error) {
	ids := make([]int64, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ID)
	}
	ratings, err := s.ratings.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ApplicationSummary, 0, len(apps))
	for i := range apps {
		out = append(out, dto.FromModelToSummary(&apps[i], ratings[apps[i].ID]))
	}
	return out, nil
}

func (s *applicationService) Get(ctx context.Context, id int64) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "application")
	}
	return app, nil
}

func (s *applicationService) GetByName(ctx context.Context, name string) (*dto.ApplicationDetail, error) {
	app, err := s.apps.GetByName(ctx, name)
	if err != nil {
		return nil, notFound(err, "application")
	}
	return s.Detail(ctx, app.ID)
}

func (s *applicationService) Detail(ctx context.Context, id int64) (*dto.ApplicationDetail, error) {
	return cache.GetOrCompute(ctx, s.caching.Cache, cache.ApplicationDetailKey(id), s.caching.Options, func(ctx context.Context) (*dto.ApplicationDetail, error) {
		app, err := s.apps.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err, "application")
		}
		summary, err := s.ratings.Summary(ctx, id)
		if err != nil {
			return nil, err
		}
		count, err := s.comments.CountByApplication(ctx, id)
		if err != nil {
			return nil, err
		}
		shots, err := s.blobs.ListByApplication(ctx, id, models.KindScreenshot)
		if err != nil {
			return nil, err
		}

		detail := &dto.ApplicationDetail{
			ApplicationSummary:  dto.FromModelToSummary(app, summary),
			DetailedDescription: app.DetailedDescription,
			DownloadURL:         app.DownloadURL,
			FileSize:            app.FileSize,
			HasFile:             app.AppFileID != nil,
			Screenshots:         make([]dto.ScreenshotResponse, 0, len(shots)),
			CommentCount:        count,
			UpdatedAt:           app.UpdatedAt,
		}
		for _, b := range shots {
			detail.Screenshots = append(detail.Screenshots, dto.ScreenshotResponse{
				ID: b.ID, URL: dto.ImageURL(b.ID), Width: b.Width, Height: b.Height,
			})
		}
		return detail, nil
	})
}

func validateApplication(in *dto.ApplicationInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Version = strings.TrimSpace(in.Version)
	in.Category = strings.TrimSpace(in.Category)
	in.DownloadURL = strings.TrimSpace(in.DownloadURL)

	switch {
	case in.Name == "":
		return apperr.Validation("name", "name is required")
	case utf8.RuneCountInString(in.Name) > models.MaxApplicationNameLength:
		return apperr.Validation("name", "name must be at most %d characters", models.MaxApplicationNameLength)
	case utf8.RuneCountInString(in.Description) > models.MaxApplicationDescriptionLength:
		return apperr.Validation("description", "description must be at most %d characters", models.MaxApplicationDescriptionLength)
	case utf8.RuneCountInString(in.Version) > models.MaxApplicationVersionLength:
		return apperr.Validation("version", "version must be at most %d characters", models.MaxApplicationVersionLength)
	case utf8.RuneCountInString(in.Category) > models.MaxApplicationCategoryLength:
		return apperr.Validation("category", "category must be at most %d characters", models.MaxApplicationCategoryLength)
	}
	if in.DownloadURL != "" {
		u, err := url.Parse(in.DownloadURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperr.Validation("download_url", "download url must be an http(s) address")
		}
	}
	return nil
}

// savedBlobs tracks blobs stored during one request so a failure can undo them.
type savedBlobs struct {
	icon, file *models.ImageData
	shots      []*models.ImageData
}

func (b *savedBlobs) ids() []string {
	var ids []string
	if b.icon != nil {
		ids = append(ids, b.icon.ID)
	}
	if b.file != nil {
		ids = append(ids, b.file.ID)
	}
	for _, s := range b.shots {
		ids = append(ids, s.ID)
	}
	return ids
}

func (s *applicationService) saveUploads(ctx context.Context, up ApplicationUploads, owner BlobOwner) (*savedBlobs, error) {
	saved := &savedBlobs{}
	fail := func(err error) (*savedBlobs, error) {
		s.discard(ctx, saved.ids())
		return nil, err
	}
	if up.Icon != nil {
		blob, err := s.images.SaveImage(ctx, *up.Icon, models.KindIcon, imaging.IconBounds, owner)
		if err != nil {
			return fail(err)
		}
		saved.icon = blob
	}
	if up.File != nil {
		blob, err := s.images.SaveFile(ctx, *up.File, models.KindAppFile, owner)
		if err != nil {
			return fail(err)
		}
		saved.file = blob
	}
	for _, shot := range up.Screenshots {
		blob, err := s.images.SaveImage(ctx, shot, models.KindScreenshot, imaging.ScreenshotBounds, owner)
		if err != nil {
			return fail(err)
		}
		saved.shots = append(saved.shots, blob)
	}
	return saved, nil
}

// discard removes blobs that are no longer referenced. Failures are logged.
func (s *applicationService) discard(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := s.images.Delete(ctx, ids...); err != nil {
		s.logger.WarnContext(ctx, "failed to remove blobs", "ids", ids, "err", err)
	}
}

func (s *applicationService) Create(ctx context.Context, in dto.ApplicationInput, up ApplicationUploads, ownerID string) (*dto.ApplicationResponse, error) {
	if err := validateApplication(&in); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		return nil, notFound(err, "user")
	}

	saved, err := s.saveUploads(ctx, up, BlobOwner{})
	if err != nil {
		return nil, err
	}

	app := &models.Application{
		Name:                in.Name,
		Description:         in.Description,
		DetailedDescription: in.DetailedDescription,
		Version:             in.Version,
		Category:            in.Category,
		DownloadURL:         in.DownloadURL,
		UserID:              &ownerID,
	}
	if saved.icon != nil {
		app.IconID = &saved.icon.ID
	}
	if saved.file != nil {
		app.AppFileID = &saved.file.ID
		app.FileSize = saved.file.Size
	}

	if err := s.apps.Create(ctx, app, in.Tags); err != nil {
		s.discard(ctx, saved.ids())
		return nil, err
	}
	if err := s.blobs.AttachToApplication(ctx, app.ID, saved.ids()...); err != nil {
		s.logger.WarnContext(ctx, "failed to attach blobs", "application_id", app.ID, "err", err)
	}

	s.caching.Invalidator.Application(ctx, app.ID, ownerID)
	s.logger.InfoContext(ctx, "application created", "application_id", app.ID, "owner", ownerID)
	return dto.FromModelToApplicationResponse(app), nil
}

func (s *applicationService) Update(ctx context.Context, id int64, in dto.ApplicationInput, up ApplicationUploads, req Requester) (*dto.ApplicationResponse, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "application")
	}
	if !req.CanModify(ownerOf(app)) {
		return nil, apperr.Forbidden("edit this application")
	}
	if err := validateApplication(&in); err != nil {
		return nil, err
	}

	var removed []string
	if len(in.RemoveScreenshotIDs) > 0 {
		shots, err := s.blobs.ListByApplication(ctx, id, models.KindScreenshot)
		if err != nil {
			return nil, err
		}
		wanted := make(map[string]bool, len(in.RemoveScreenshotIDs))
		for _, sid := range in.RemoveScreenshotIDs {
			wanted[sid] = true
		}
		for _, b := range shots {
			if wanted[b.ID] {
				removed = append(removed, b.ID)
			}
		}
	}

	saved, err := s.saveUploads(ctx, up, BlobOwner{ApplicationID: &app.ID})
	if err != nil {
		return nil, err
	}

	var superseded []string
	app.Name = in.Name
	app.Description = in.Description
	app.DetailedDescription = in.DetailedDescription
	app.Version = in.Version
	app.Category = in.Category
	app.DownloadURL = in.DownloadURL
	if saved.icon != nil {
		if app.IconID != nil {
			superseded = append(superseded, *app.IconID)
		}
		app.IconID = &saved.icon.ID
	}
	if saved.file != nil {
		if app.AppFileID != nil {
			superseded = append(superseded, *app.AppFileID)
		}
		app.AppFileID = &saved.file.ID
		app.FileSize = saved.file.Size
	}

	if err := s.apps.Update(ctx, app, in.Tags); err != nil {
		s.discard(ctx, saved.ids())
		return nil, notFound(err, "application")
	}
	s.discard(ctx, append(superseded, removed...))

	s.caching.Invalidator.Application(ctx, id, ownerOf(app))
	s.logger.InfoContext(ctx, "application updated", "application_id", id, "by", req.UserID)
	return dto.FromModelToApplicationResponse(app), nil
}

func (s *applicationService) Delete(ctx context.Context, id int64, req Requester) error {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "application")
	}
	if !req.CanModify(ownerOf(app)) {
		return apperr.Forbidden("delete this application")
	}

	blobs, err := s.blobs.ListByApplication(ctx, id, "")
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(blobs)+2)
	for _, b := range blobs {
		ids = append(ids, b.ID)
	}
	// icon and file may predate the application_id link
	for _, ref := range []*string{app.IconID, app.AppFileID} {
		if ref != nil && !contains(ids, *ref) {
			ids = append(ids, *ref)
		}
	}

	if err := s.apps.Delete(ctx, id); err != nil {
		return notFound(err, "application")
	}
	s.discard(ctx, ids)

	s.caching.Invalidator.ApplicationDeleted(ctx, id)
	s.logger.InfoContext(ctx, "application deleted", "application_id", id, "by", req.UserID)
	return nil
}

func (s *applicationService) Download(ctx context.Context, id int64) (*Download, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "application")
	}
	if app.AppFileID == nil && app.DownloadURL == "" {
		return nil, apperr.NotFound("download")
	}

	var file *Blob
	if app.AppFileID != nil {
		file, err = s.images.Open(ctx, *app.AppFileID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.apps.IncrementDownloads(ctx, id); err != nil {
		if file != nil {
			file.Content.Close()
		}
		return nil, notFound(err, "application")
	}
	app.DownloadCount++
	metrics.Download()
	s.caching.Invalidator.Application(ctx, id, ownerOf(app))
	return &Download{Application: app, File: file}, nil
}

func (s *applicationService) Popular(ctx context.Context, limit int) ([]dto.ApplicationSummary, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return cache.GetOrCompute(ctx, s.caching.Cache, cache.PopularKey(limit), s.caching.Options, func(ctx context.Context) ([]dto.ApplicationSummary, error) {
		apps, err := s.apps.Popular(ctx, limit)
		if err != nil {
			return nil, err
		}
		return s.summarize(ctx, apps)
	})
}

func (s *applicationService) Categories(ctx context.Context) ([]dto.NameCount, error) {
	return cache.GetOrCompute(ctx, s.caching.Cache, cache.CategoriesKey(), s.caching.Options, func(ctx context.Context) ([]dto.NameCount, error) {
		rows, err := s.apps.Categories(ctx)
		if err != nil {
			return nil, err
		}
		return toNameCounts(rows), nil
	})
}

func toNameCounts(rows []repository.NameCount) []dto.NameCount {
	out := make([]dto.NameCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.NameCount{Name: r.Name, Count: r.Count})
	}
	return out
}

func ownerOf(app *models.Application) string {
	if app.UserID == nil {
		return ""
	}
	return *app.UserID
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
