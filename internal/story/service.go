package story

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/ollo/internal/blob"
	"go.uber.org/zap"
)

// DefaultTTL is how long a story stays visible after it is posted.
const DefaultTTL = 24 * time.Hour

var (
	ErrMissingOwner = errors.New("story owner is required")
	ErrInvalidMedia = errors.New("invalid story media")
)

// ObjectNameGenerator generates unique media object names.
type ObjectNameGenerator func() string

// CreateInput carries everything needed to post a story.
// Media and MediaURL are mutually exclusive; both may be empty.
type CreateInput struct {
	OwnerID     string
	Caption     string
	MediaURL    string
	Media       []byte
	ContentType string
}

// Service owns the story lifecycle on the request path.
type Service struct {
	repo       Repository
	blobs      blob.Store
	objectName ObjectNameGenerator
	newID      func() string
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger used for best-effort blob failures.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a story service.
func NewService(repo Repository, blobs blob.Store, objectName ObjectNameGenerator, opts ...ServiceOption) *Service {
	s := &Service{
		repo:       repo,
		blobs:      blobs,
		objectName: objectName,
		newID:      uuid.NewString,
		ttl:        DefaultTTL,
		now:        time.Now,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Story, error) {
	if in.OwnerID == "" {
		return nil, ErrMissingOwner
	}

	mediaRef, err := s.storeMedia(ctx, in)
	if err != nil {
		return nil, err
	}

	created := s.now()
	story := &Story{
		ID:        s.newID(),
		OwnerID:   in.OwnerID,
		Caption:   in.Caption,
		MediaRef:  mediaRef,
		CreatedAt: created,
		ExpiresAt: created.Add(s.ttl),
	}

	if err := s.repo.Save(ctx, story); err != nil {
		if mediaRef != "" && len(in.Media) > 0 {
			s.deleteMedia(ctx, story)
		}

		return nil, err
	}

	return story, nil
}

func (s *Service) ListActive(ctx context.Context, limit int) ([]*Story, error) {
	return s.repo.ListActive(ctx, s.now(), limit)
}

// Delete removes a story owned by ownerID, then its media on a best-effort basis.
// An expired story that the cleanup job has not reached yet reads as ErrNotFound.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	story, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if story.Expired(s.now()) {
		return ErrNotFound
	}

	if story.OwnerID != ownerID {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if story.MediaRef != "" {
		s.deleteMedia(ctx, story)
	}

	return nil
}

func (s *Service) storeMedia(ctx context.Context, in CreateInput) (string, error) {
	switch {
	case len(in.Media) > 0 && in.MediaURL != "":
		return "", fmt.Errorf("%w: send either media or mediaUrl", ErrInvalidMedia)
	case len(in.Media) > 0:
		path := fmt.Sprintf("stories/%s/%s", in.OwnerID, s.objectName())

		if err := s.blobs.Put(ctx, path, in.Media, in.ContentType); err != nil {
			return "", fmt.Errorf("store media: %w", err)
		}

		return path, nil
	case in.MediaURL != "":
		if _, err := blob.ObjectPath(in.MediaURL); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidMedia, err)
		}

		return in.MediaURL, nil
	default:
		return "", nil
	}
}

func (s *Service) deleteMedia(ctx context.Context, story *Story) {
	path, err := blob.ObjectPath(story.MediaRef)
	if err == nil {
		err = s.blobs.Delete(ctx, path)
	}

	if err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Warn("failed to delete story media",
			zap.String("story_id", story.ID),
			zap.String("media_ref", story.MediaRef),
			zap.Error(err),
		)
	}
}
