package qdrant

import (
	"errors"
	"testing"
)

func TestResolveConfigFromEnv(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "activity_catalog")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.URL != "http://qdrant:6333" {
		t.Fatalf("URL: %q", cfg.URL)
	}
	if cfg.Collection != "activity_catalog" {
		t.Fatalf("Collection: %q", cfg.Collection)
	}
	if cfg.VectorDim != 1536 {
		t.Fatalf("VectorDim: %d", cfg.VectorDim)
	}
}

func TestResolveConfigFromEnvDefaultsCollection(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.Collection != "activity_catalog" {
		t.Fatalf("default collection: %q", cfg.Collection)
	}
}

func TestResolveConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		dim      string
		wantCode ConfigErrorCode
	}{
		{"missing url", "", "1536", ConfigErrorMissingURL},
		{"invalid url", "not a url", "1536", ConfigErrorInvalidURL},
		{"missing dim", "http://qdrant:6333", "", ConfigErrorMissingVectorDim},
		{"invalid dim", "http://qdrant:6333", "beaucoup", ConfigErrorInvalidVectorDim},
		{"negative dim", "http://qdrant:6333", "-3", ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.url)
			t.Setenv("QDRANT_COLLECTION", "activity_catalog")
			t.Setenv("QDRANT_VECTOR_DIM", tc.dim)

			_, err := ResolveConfigFromEnv()
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cerr.Code != tc.wantCode {
				t.Fatalf("code: want=%s got=%s", tc.wantCode, cerr.Code)
			}
		})
	}
}
