package handlers

import "time"

// StoryBody is the wire representation of a story.
type StoryBody struct {
	ID        string    `doc:"Story ID"                          example:"6f1c2b0e-8d4a-4f57-9a43-0c2b7e1d9f10" json:"id"`
	OwnerID   string    `doc:"ID of the user who posted it"      example:"U1"                                   json:"ownerId"`
	Caption   string    `doc:"Caption text"                      example:"sunset"                               json:"caption"`
	MediaRef  string    `doc:"Media object path or download URL" example:"stories/U1/V1StGXR8_Z5jdHi6B-myT"     json:"mediaRef,omitempty"`
	CreatedAt time.Time `doc:"When the story was posted"         json:"createdAt"`
	ExpiresAt time.Time `doc:"When the story stops being visible" json:"expiresAt"`
}

// CreateStoryRequest is the request body for posting a story.
type CreateStoryRequest struct {
	Body struct {
		Caption     string `doc:"Caption text"                           json:"caption"               maxLength:"2200"`
		MediaURL    string `doc:"Existing media path or download URL"    json:"mediaUrl,omitempty"`
		Media       []byte `doc:"Inline media, base64 encoded"           json:"media,omitempty"`
		ContentType string `doc:"MIME type of the inline media"          example:"image/jpeg"         json:"contentType,omitempty"`
	}
}

// CreateStoryResponse is the response for a successfully posted story.
type CreateStoryResponse struct {
	Location string `doc:"The story location" header:"Location"`
	Body     StoryBody
}

// ListStoriesRequest is the request for listing active stories.
type ListStoriesRequest struct {
	Limit int `default:"20" doc:"Maximum number of stories" maximum:"100" minimum:"1" query:"limit"`
}

// ListStoriesResponse lists stories that have not expired yet, newest first.
type ListStoriesResponse struct {
	Body struct {
		Stories []StoryBody `json:"stories"`
	}
}

// DeleteStoryRequest is the request for deleting a story.
type DeleteStoryRequest struct {
	ID string `doc:"Story ID" path:"id"`
}
