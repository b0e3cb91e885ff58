package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if len(d.Products) != 8 {
		t.Errorf("len(Products) = %d, want 8", len(d.Products))
	}
	if len(d.Categories) != 8 {
		t.Errorf("len(Categories) = %d, want 8", len(d.Categories))
	}

	lamp := d.Products[0]
	if lamp.ID != 1 || lamp.Name != "Minimalist Desk Lamp" || lamp.Price != 89.99 || lamp.Stock != 45 {
		t.Errorf("Products[0] = %+v", lamp)
	}
	if !lamp.IsFeatured || lamp.IsNew {
		t.Errorf("Products[0] featured/new = %v/%v, want true/false", lamp.IsFeatured, lamp.IsNew)
	}
	if lamp.CompareAtPrice == nil || *lamp.CompareAtPrice != 119.99 {
		t.Errorf("Products[0].CompareAtPrice = %v, want 119.99", lamp.CompareAtPrice)
	}
	if lamp.Ratings == nil || lamp.Ratings.Count != 28 {
		t.Errorf("Products[0].Ratings = %+v", lamp.Ratings)
	}
	want := time.Date(2023, 9, 15, 0, 0, 0, 0, time.UTC)
	if !lamp.CreatedAt.Equal(want) {
		t.Errorf("Products[0].CreatedAt = %v, want %v", lamp.CreatedAt, want)
	}
	if len(lamp.Images) != 2 || !strings.HasPrefix(lamp.PrimaryImage(), "https://images.unsplash.com/") {
		t.Errorf("Products[0].Images = %v", lamp.Images)
	}

	speaker := d.Products[4]
	if speaker.CompareAtPrice != nil {
		t.Errorf("Products[4].CompareAtPrice = %v, want nil", *speaker.CompareAtPrice)
	}
	if d.Categories[2].Slug != "home-kitchen" || d.Categories[2].Name != "Home & Kitchen" {
		t.Errorf("Categories[2] = %+v", d.Categories[2])
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{"unknown field", "products:\n  - id: 1\n    colour: red\n", "colour"},
		{"duplicate id", "products:\n  - {id: 1, name: a, slug: a}\n  - {id: 1, name: b, slug: b}\n", "duplicate id 1"},
		{"duplicate slug", "products:\n  - {id: 1, name: a, slug: a}\n  - {id: 2, name: b, slug: a}\n", `duplicate slug "a"`},
		{"negative stock", "products:\n  - {id: 1, name: a, slug: a, stock: -1}\n", "stock must not be negative"},
		{"negative price", "products:\n  - {id: 1, name: a, slug: a, price: -1}\n", "price must be a finite non-negative number"},
		{"nan price", "products:\n  - {id: 1, name: a, slug: a, price: .nan}\n", "price must be a finite non-negative number"},
		{"infinite price", "products:\n  - {id: 1, name: a, slug: a, price: .inf}\n", "price must be a finite non-negative number"},
		{"nan compare-at price", "products:\n  - {id: 1, name: a, slug: a, price: 5, compare_at_price: .nan}\n", "compare_at_price must be a finite"},
		{"missing slug", "products:\n  - {id: 1, name: a}\n", "slug is required"},
		{"category slug", "categories:\n  - {id: 1, name: A}\n", "categories[0]: slug is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Parse() error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	d, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if len(d.Products) != 0 {
		t.Errorf("Parse(nil) returned %d products", len(d.Products))
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := "products:\n  - {id: 10, name: Mug, slug: mug, price: 12.5, stock: 3, category: Home Decor}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(d.Products) != 1 || d.Products[0].Slug != "mug" || d.Products[0].Price != 12.5 {
		t.Errorf("Load() = %+v", d.Products)
	}

	d, err = Load("")
	if err != nil || len(d.Products) != 8 {
		t.Errorf("Load(\"\") = (%d products, %v), want built-in catalog", len(d.Products), err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file expected error")
	}
}
