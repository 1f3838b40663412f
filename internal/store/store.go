// Package store defines the persistence interfaces used by the relay, the
// tool dispatcher and the CRUD handlers.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps validation failures on writes.
	ErrInvalid = errors.New("invalid input")
)

// ProfileStore persists the singleton runner profile.
type ProfileStore interface {
	// GetRunnerProfile returns ErrNotFound when no profile was saved yet.
	GetRunnerProfile(ctx context.Context) (*Profile, error)
	GetOrCreateRunnerProfile(ctx context.Context) (*Profile, error)
	// UpsertRunnerProfile applies upd atomically, creating the row when absent.
	UpsertRunnerProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error)
	AppendCoachNotes(ctx context.Context, notes string) (*Profile, error)
}

// EventStore persists calendar events.
type EventStore interface {
	QueryEvents(ctx context.Context, q EventQuery) ([]Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	CreateEvent(ctx context.Context, ev Event) (*Event, error)
	UpdateEvent(ctx context.Context, ev Event) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// ConversationStore persists chat conversations and their messages.
type ConversationStore interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	CreateConversation(ctx context.Context, title, model string) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, []Message, error)
	RenameConversation(ctx context.Context, id, title string) (*Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, conversationID, role, content string) (*Message, error)
}

// MediaStore keeps the image generation and vision analysis history,
// newest first.
type MediaStore interface {
	ListGeneratedImages(ctx context.Context) ([]GeneratedImage, error)
	SaveGeneratedImage(ctx context.Context, img GeneratedImage) (*GeneratedImage, error)
	ListVisionAnalyses(ctx context.Context) ([]VisionAnalysis, error)
	SaveVisionAnalysis(ctx context.Context, a VisionAnalysis) (*VisionAnalysis, error)
}

// Store is the full persistence surface.
type Store interface {
	ProfileStore
	EventStore
	ConversationStore
	MediaStore
	Close() error
}
