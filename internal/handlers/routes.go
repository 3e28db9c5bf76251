package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ollo/internal/ratelimit"
)

const (
	OperationCreateStory = "createStory"
	OperationDeleteStory = "deleteStory"
)

// RegisterRoutes registers the story routes. Writes are bound to rate limit
// operations through metadata; reads are not limited.
func RegisterRoutes(api huma.API, storyHandler *StoryHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   OperationCreateStory,
		Method:        http.MethodPost,
		Path:          "/stories",
		Summary:       "Post a story",
		Description:   "Creates a story that disappears once its time to live has passed.",
		Tags:          []string{"Stories"},
		DefaultStatus: http.StatusCreated,
		Metadata:      ratelimit.Metadata(ratelimit.EndpointConfig{Operation: OperationCreateStory}),
	}, storyHandler.CreateStory)

	huma.Register(api, huma.Operation{
		OperationID: "listStories",
		Method:      http.MethodGet,
		Path:        "/stories",
		Summary:     "List active stories",
		Description: "Lists stories that have not expired yet, newest first.",
		Tags:        []string{"Stories"},
	}, storyHandler.ListStories)

	huma.Register(api, huma.Operation{
		OperationID:   OperationDeleteStory,
		Method:        http.MethodDelete,
		Path:          "/stories/{id}",
		Summary:       "Delete a story",
		Description:   "Deletes one of the caller's stories and its media.",
		Tags:          []string{"Stories"},
		DefaultStatus: http.StatusNoContent,
		Metadata:      ratelimit.Metadata(ratelimit.EndpointConfig{Operation: OperationDeleteStory}),
	}, storyHandler.DeleteStory)
}
