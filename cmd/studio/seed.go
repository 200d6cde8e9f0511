// ABOUTME: Sample data seeding for the studio backend.
// ABOUTME: Creates widget types with field schemas, configured widgets, and media.

package main

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/studio/internal/schema"
	"github.com/2389/studio/internal/store"
	"github.com/2389/studio/internal/suggest"
)

func floatPtr(v float64) *float64 { return &v }

func seedData(s *store.Store) error {
	log.Println("Seeding database with sample data...")

	types := []schema.WidgetType{
		{
			ID:   "banner",
			Name: "Banner",
			Fields: []schema.FieldSpec{
				{Name: "title", Display: "Title", Type: "string", Required: true, MaxLen: 80},
				{Name: "subtitle", Display: "Subtitle", Type: "string", Recommended: true, MaxLen: 120},
				{Name: "color", Display: "Color", Type: "select", Options: []string{"red", "blue", "green"}},
				{Name: "visible", Display: "Visible", Type: "bool"},
			},
		},
		{
			ID:   "gallery",
			Name: "Gallery",
			Fields: []schema.FieldSpec{
				{Name: "heading", Display: "Heading", Type: "string", Required: true, MaxLen: 80},
				{Name: "columns", Display: "Columns", Type: "number", Min: floatPtr(1), Max: floatPtr(6)},
				{Name: "caption", Display: "Caption", Type: "text", Recommended: true},
			},
		},
		{
			ID:   "article-list",
			Name: "Article list",
			Fields: []schema.FieldSpec{
				{Name: "source", Display: "Source", Type: "select", Required: true, Options: []string{"latest", "featured", "tagged"}},
				{Name: "limit", Display: "Limit", Type: "number", Min: floatPtr(1), Max: floatPtr(50)},
			},
		},
	}

	widgets := []store.Widget{
		{
			ID: "home-banner", TypeID: "banner", Name: "Home banner",
			Configuration: map[string]any{"title": "Welcome", "subtitle": "Fresh every day", "color": "blue", "visible": true},
		},
		{
			ID: "photo-wall", TypeID: "gallery", Name: "Photo wall",
			Configuration: map[string]any{"heading": "Highlights", "columns": float64(3)},
		},
		{
			ID: "front-articles", TypeID: "article-list", Name: "Front page articles",
			Configuration: map[string]any{"source": "featured", "limit": float64(10)},
		},
	}

	created := 0
	for i := range types {
		if err := s.CreateWidgetType(&types[i]); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				log.Println("Database already contains seed data. Use 'studio reset' to clear and reseed.")
				return nil
			}
			return err
		}
		created++
	}
	for i := range widgets {
		if err := s.CreateWidget(&widgets[i]); err != nil {
			return err
		}
		created++
	}

	sg := suggest.NewSuggester()
	ctx := context.Background()

	sampleAssets := []struct {
		filename  string
		mediaType string
		size      int64
	}{
		{"city_skyline.jpg", "image/jpeg", 482_113},
		{"mountain-trail.jpg", "image/jpeg", 391_277},
		{"launch_teaser.mp4", "video/mp4", 9_204_551},
	}
	for _, sa := range sampleAssets {
		suggestion := sg.Suggest(ctx, sa.filename, sa.mediaType)
		err := s.CreateMediaAsset(&store.MediaAsset{
			ID:        uuid.NewString(),
			Namespace: "assets",
			Filename:  sa.filename,
			Title:     suggestion.Title,
			MediaType: sa.mediaType,
			Size:      sa.size,
			Tags:      suggestion.Tags,
		})
		if err != nil {
			return err
		}
		created++
	}

	pendingSuggestion := sg.Suggest(ctx, "harbor_night.jpg", "image/jpeg")
	err := s.CreatePendingFile(&store.PendingFileRow{
		ID:             uuid.NewString(),
		Namespace:      "assets",
		Filename:       "harbor_night.jpg",
		MediaType:      "image/jpeg",
		Size:           512_004,
		SuggestedTitle: pendingSuggestion.Title,
		SuggestedTags:  pendingSuggestion.Tags,
	})
	if err != nil {
		return err
	}
	created++

	log.Printf("Seeding complete! Created %d records", created)
	return nil
}
