package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// failingKV returns the same error from every operation.
type failingKV struct {
	err error
}

func (f failingKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return f.err
}

func (f failingKV) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, f.err
}

func (f failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, f.err
}

func (f failingKV) Del(ctx context.Context, keys ...string) error {
	return f.err
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
