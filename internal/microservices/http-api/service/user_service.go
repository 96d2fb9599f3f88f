package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"appgambit/internal/apperr"
	"appgambit/internal/cache"
	"appgambit/internal/imaging"
	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"
)

const (
	maxDisplayNameLength = 100
	profileApplications  = 20
)

type UserService interface {
	// Me returns the caller's own account, email included.
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
	Profile(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID, displayName string) (*dto.UserResponse, error)
	SetProfileImage(ctx context.Context, userID string, up Upload) (*dto.UserResponse, error)
	List(ctx context.Context, search string, page, pageSize int, req Requester) (*dto.Paginated[dto.UserResponse], error)
	SetRole(ctx context.Context, userID, role string, req Requester) error
	Delete(ctx context.Context, userID string, req Requester) error
}

type userService struct {
	users   repository.UserRepository
	apps    repository.ApplicationRepository
	ratings repository.RatingRepository
	stats   repository.StatsRepository
	blobs   repository.BlobRepository
	tokens  repository.RefreshTokenRepository
	images  ImageService
	caching Caching
	logger  *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	apps repository.ApplicationRepository,
	ratings repository.RatingRepository,
	stats repository.StatsRepository,
	blobs repository.BlobRepository,
	tokens repository.RefreshTokenRepository,
	images ImageService,
	caching Caching,
	logger *slog.Logger,
) UserService {
	return &userService{
		users:   users,
		apps:    apps,
		ratings: ratings,
		stats:   stats,
		blobs:   blobs,
		tokens:  tokens,
		images:  images,
		caching: caching,
		logger:  orDefault(logger),
	}
}

func (s *userService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	resp := dto.FromModelToUserResponse(user, true)
	return &resp, nil
}

func (s *userService) Profile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	return cache.GetOrCompute(ctx, s.caching.Cache, cache.UserProfileKey(userID), s.caching.Options, func(ctx context.Context) (*dto.ProfileResponse, error) {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, notFound(err, "user")
		}
		apps, _, err := s.apps.List(ctx, repository.ApplicationFilter{OwnerID: userID, Page: 1, PageSize: profileApplications})
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(apps))
		for _, a := range apps {
			ids = append(ids, a.ID)
		}
		summaries, err := s.ratings.Summaries(ctx, ids)
		if err != nil {
			return nil, err
		}
		appCount, commentCount, ratingCount, err := s.stats.UserActivity(ctx, userID)
		if err != nil {
			return nil, err
		}

		profile := &dto.ProfileResponse{
			User:             dto.FromModelToUserResponse(user, false),
			Applications:     make([]dto.ApplicationSummary, 0, len(apps)),
			ApplicationCount: appCount,
			CommentCount:     commentCount,
			RatingCount:      ratingCount,
		}
		for i := range apps {
			profile.Applications = append(profile.Applications, dto.FromModelToSummary(&apps[i], summaries[apps[i].ID]))
		}
		return profile, nil
	})
}

func (s *userService) UpdateProfile(ctx context.Context, userID, displayName string) (*dto.UserResponse, error) {
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, apperr.Validation("display_name", "display name must be at most %d characters", maxDisplayNameLength)
	}
	if err := s.users.UpdateDisplayName(ctx, userID, displayName); err != nil {
		return nil, notFound(err, "user")
	}
	s.caching.Invalidator.User(ctx, userID)
	return s.Me(ctx, userID)
}

func (s *userService) SetProfileImage(ctx context.Context, userID string, up Upload) (*dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}

	blob, err := s.images.SaveImage(ctx, up, models.KindProfile, imaging.ProfileBounds, BlobOwner{UserID: &user.ID})
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfileImage(ctx, userID, &blob.ID); err != nil {
		if derr := s.images.Delete(ctx, blob.ID); derr != nil {
			s.logger.WarnContext(ctx, "failed to remove unused profile image", "id", blob.ID, "err", derr)
		}
		return nil, notFound(err, "user")
	}
	if user.ProfileImageID != nil {
		if err := s.images.Delete(ctx, *user.ProfileImageID); err != nil {
			s.logger.WarnContext(ctx, "failed to remove old profile image", "id", *user.ProfileImageID, "err", err)
		}
	}

	s.caching.Invalidator.User(ctx, userID)
	return s.Me(ctx, userID)
}

func (s *userService) List(ctx context.Context, search string, page, pageSize int, req Requester) (*dto.Paginated[dto.UserResponse], error) {
	if !req.IsAdmin() {
		return nil, apperr.Forbidden("list users")
	}
	page, pageSize = dto.NormalizePage(page, pageSize)
	users, total, err := s.users.List(ctx, search, page, pageSize)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.FromModelToUserResponse(&users[i], true))
	}
	return dto.NewPaginated(out, total, page, pageSize), nil
}

// SetRole also revokes the user's refresh tokens so the new role applies at
// the next sign in.
func (s *userService) SetRole(ctx context.Context, userID, role string, req Requester) error {
	if !req.IsAdmin() {
		return apperr.Forbidden("change roles")
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return apperr.Validation("role", "role must be %q or %q", models.RoleUser, models.RoleAdmin)
	}
	if userID == req.UserID && role != models.RoleAdmin {
		return apperr.Validation("role", "you cannot remove your own admin role")
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return notFound(err, "user")
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke sessions after role change", "user_id", userID, "err", err)
	}
	s.logger.InfoContext(ctx, "role changed", "user_id", userID, "role", role, "by", req.UserID)
	return nil
}

// Delete removes an account. Owned applications stay, without an owner.
func (s *userService) Delete(ctx context.Context, userID string, req Requester) error {
	if !req.CanModify(userID) {
		return apperr.Forbidden("delete this user")
	}
	blobs, err := s.blobs.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return notFound(err, "user")
	}

	ids := make([]string, 0, len(blobs))
	for _, b := range blobs {
		ids = append(ids, b.ID)
	}
	if len(ids) > 0 {
		if err := s.images.Delete(ctx, ids...); err != nil {
			s.logger.WarnContext(ctx, "failed to remove user blobs", "user_id", userID, "err", err)
		}
	}

	s.caching.Invalidator.User(ctx, userID)
	s.logger.InfoContext(ctx, "user deleted", "user_id", userID, "by", req.UserID)
	return nil
}
