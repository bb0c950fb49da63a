package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/signing"
)

// Object is a stored blob with the headers it is served with.
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// BlobStore keeps image renditions in memory and hands out HMAC signed URLs
// under baseURL, which the API serves from /media.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
	signer  *signing.Signer
}

// NewBlobStore constructs a BlobStore.
func NewBlobStore(baseURL string, signer *signing.Signer) *BlobStore {
	return &BlobStore{
		objects: make(map[string]Object),
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
	}
}

// Put stores data under key and returns its unsigned URL.
func (b *BlobStore) Put(_ context.Context, key string, data []byte, contentType, cacheControl string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = Object{
		Data:         append([]byte(nil), data...),
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	return b.URL(key), nil
}

// URL returns the unsigned URL of key.
func (b *BlobStore) URL(key string) string {
	return b.baseURL + "/" + key
}

// Get returns the bytes stored under key.
func (b *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	obj, ok := b.Object(key)
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
	}
	return obj.Data, nil
}

// Object returns the stored object for key.
func (b *BlobStore) Object(key string) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[key]
	return obj, ok
}

// SignedURL returns a time-limited URL for key.
func (b *BlobStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if _, ok := b.Object(key); !ok {
		return "", fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
	}
	return b.signer.SignURL(b.baseURL, key, ttl), nil
}

// Verify checks the expires and signature query values of a signed URL.
func (b *BlobStore) Verify(key, expires, signature string) bool {
	return b.signer.Validate(key, expires, signature)
}
