package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ollo/internal/auth"
	"github.com/serroba/ollo/internal/ratelimit"
	"github.com/serroba/ollo/internal/story"
	"go.uber.org/zap"
)

// StoryHandler handles story operations.
type StoryHandler struct {
	service *story.Service
	logger  *zap.Logger
}

// NewStoryHandler creates a new story handler.
func NewStoryHandler(service *story.Service, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		service: service,
		logger:  logger,
	}
}

func (h *StoryHandler) CreateStory(ctx context.Context, req *CreateStoryRequest) (*CreateStoryResponse, error) {
	caller := auth.CallerFromContext(ctx)
	if caller.UID == "" {
		return nil, errUnauthenticated()
	}

	created, err := h.service.Create(ctx, story.CreateInput{
		OwnerID:     caller.UID,
		Caption:     req.Body.Caption,
		MediaURL:    req.Body.MediaURL,
		Media:       req.Body.Media,
		ContentType: req.Body.ContentType,
	})
	if err != nil {
		if errors.Is(err, story.ErrInvalidMedia) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		h.logger.Error("failed to create story", zap.String("uid", caller.UID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to save story")
	}

	resp := &CreateStoryResponse{}
	resp.Location = "/stories/" + created.ID
	resp.Body = toBody(created)

	return resp, nil
}

func (h *StoryHandler) ListStories(ctx context.Context, req *ListStoriesRequest) (*ListStoriesResponse, error) {
	stories, err := h.service.ListActive(ctx, req.Limit)
	if err != nil {
		h.logger.Error("failed to list stories", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to list stories")
	}

	resp := &ListStoriesResponse{}
	resp.Body.Stories = make([]StoryBody, 0, len(stories))

	for _, s := range stories {
		resp.Body.Stories = append(resp.Body.Stories, toBody(s))
	}

	return resp, nil
}

func (h *StoryHandler) DeleteStory(ctx context.Context, req *DeleteStoryRequest) (*struct{}, error) {
	caller := auth.CallerFromContext(ctx)
	if caller.UID == "" {
		return nil, errUnauthenticated()
	}

	err := h.service.Delete(ctx, caller.UID, req.ID)

	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, story.ErrNotFound):
		return nil, huma.Error404NotFound("story not found")
	case errors.Is(err, story.ErrForbidden):
		return nil, huma.Error403Forbidden("story belongs to another user")
	default:
		h.logger.Error("failed to delete story",
			zap.String("uid", caller.UID),
			zap.String("story_id", req.ID),
			zap.Error(err),
		)

		return nil, huma.Error500InternalServerError("failed to delete story")
	}
}

func errUnauthenticated() error {
	return huma.Error401Unauthorized("authentication required",
		&huma.ErrorDetail{Location: "code", Message: string(ratelimit.KindUnauthenticated)})
}

func toBody(s *story.Story) StoryBody {
	return StoryBody{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Caption:   s.Caption,
		MediaRef:  s.MediaRef,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}
