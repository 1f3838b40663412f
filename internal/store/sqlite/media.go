package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/n0madic/stridecoach/internal/store"
)

func (s *Store) ListGeneratedImages(ctx context.Context) ([]store.GeneratedImage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, model, image_url, created_ns
		FROM generated_images ORDER BY created_ns DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list generated images: %w", err)
	}
	defer rows.Close()

	out := []store.GeneratedImage{}
	for rows.Next() {
		var img store.GeneratedImage
		var created int64
		if err := rows.Scan(&img.ID, &img.Prompt, &img.Model, &img.ImageURL, &created); err != nil {
			return nil, fmt.Errorf("scan generated image: %w", err)
		}
		img.CreatedAt = fromNS(created)
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *Store) SaveGeneratedImage(ctx context.Context, img store.GeneratedImage) (*store.GeneratedImage, error) {
	switch {
	case strings.TrimSpace(img.Prompt) == "":
		return nil, fmt.Errorf("%w: prompt is required", store.ErrInvalid)
	case strings.TrimSpace(img.Model) == "":
		return nil, fmt.Errorf("%w: model is required", store.ErrInvalid)
	case strings.TrimSpace(img.ImageURL) == "":
		return nil, fmt.Errorf("%w: imageUrl is required", store.ErrInvalid)
	}
	now := s.nowNS()
	img.ID = uuid.NewString()
	img.CreatedAt = fromNS(now)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_images(id, prompt, model, image_url, created_ns) VALUES(?,?,?,?,?)`,
		img.ID, img.Prompt, img.Model, img.ImageURL, now,
	); err != nil {
		return nil, fmt.Errorf("insert generated image: %w", err)
	}
	return &img, nil
}

func (s *Store) ListVisionAnalyses(ctx context.Context) ([]store.VisionAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, image_url, prompt, model, response, created_ns
		FROM vision_analyses ORDER BY created_ns DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list vision analyses: %w", err)
	}
	defer rows.Close()

	out := []store.VisionAnalysis{}
	for rows.Next() {
		var a store.VisionAnalysis
		var prompt sql.NullString
		var created int64
		if err := rows.Scan(&a.ID, &a.ImageURL, &prompt, &a.Model, &a.Response, &created); err != nil {
			return nil, fmt.Errorf("scan vision analysis: %w", err)
		}
		a.Prompt = stringPtr(prompt)
		a.CreatedAt = fromNS(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SaveVisionAnalysis(ctx context.Context, a store.VisionAnalysis) (*store.VisionAnalysis, error) {
	switch {
	case strings.TrimSpace(a.ImageURL) == "":
		return nil, fmt.Errorf("%w: imageUrl is required", store.ErrInvalid)
	case strings.TrimSpace(a.Model) == "":
		return nil, fmt.Errorf("%w: model is required", store.ErrInvalid)
	case strings.TrimSpace(a.Response) == "":
		return nil, fmt.Errorf("%w: response is required", store.ErrInvalid)
	}
	now := s.nowNS()
	a.ID = uuid.NewString()
	a.CreatedAt = fromNS(now)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO vision_analyses(id, image_url, prompt, model, response, created_ns) VALUES(?,?,?,?,?,?)`,
		a.ID, a.ImageURL, nullable(a.Prompt), a.Model, a.Response, now,
	); err != nil {
		return nil, fmt.Errorf("insert vision analysis: %w", err)
	}
	return &a, nil
}
