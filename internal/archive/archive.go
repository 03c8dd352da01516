package archive

import (
	"bytes"
	"fmt"

	storage "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

// Config locates the object-storage bucket for transcript artifacts.
type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// Storage uploads end-of-call transcript artifacts to Supabase storage.
type Storage struct {
	client *supabase.Client
	bucket string
}

// New constructs the storage client. It returns an error instead of a client
// when the configuration is incomplete so callers can fall back to a no-op.
func New(cfg Config) (*Storage, error) {
	if cfg.URL == "" || cfg.ServiceRoleKey == "" {
		return nil, fmt.Errorf("missing storage configuration: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "transcripts"
	}
	return &Storage{client: client, bucket: bucket}, nil
}

// Upload stores one artifact under key.
func (s *Storage) Upload(key, contentType string, data []byte) error {
	_, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data),
		storage.FileOptions{ContentType: &contentType})
	if err != nil {
		return fmt.Errorf("failed to upload transcript artifact: %w", err)
	}
	return nil
}
