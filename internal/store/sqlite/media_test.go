package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/stridecoach/internal/store"
)

func TestGeneratedImagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	empty, err := s.ListGeneratedImages(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first, err := s.SaveGeneratedImage(ctx, store.GeneratedImage{Prompt: "zapatillas", Model: "m", ImageURL: "https://img/1.png"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	second, err := s.SaveGeneratedImage(ctx, store.GeneratedImage{Prompt: "pista", Model: "m", ImageURL: "data:image/png;base64,AAAA"})
	require.NoError(t, err)

	got, err := s.ListGeneratedImages(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
	assert.Equal(t, "data:image/png;base64,AAAA", got[0].ImageURL)
}

func TestSaveGeneratedImageValidation(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SaveGeneratedImage(context.Background(), store.GeneratedImage{Prompt: "p", Model: "m"})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestVisionAnalysesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.SaveVisionAnalysis(ctx, store.VisionAnalysis{ImageURL: "https://img/a.jpg", Model: "m", Response: "Una pista"})
	require.NoError(t, err)
	latest, err := s.SaveVisionAnalysis(ctx, store.VisionAnalysis{ImageURL: "https://img/b.jpg", Prompt: str("¿Qué ves?"), Model: "m", Response: "Un corredor"})
	require.NoError(t, err)

	got, err := s.ListVisionAnalyses(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, latest.ID, got[0].ID)
	require.NotNil(t, got[0].Prompt)
	assert.Equal(t, "¿Qué ves?", *got[0].Prompt)
	assert.Nil(t, got[1].Prompt)

	_, err = s.SaveVisionAnalysis(ctx, store.VisionAnalysis{ImageURL: "x", Model: "m"})
	assert.ErrorIs(t, err, store.ErrInvalid)
}
