package report

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/types"
)

type memStore struct {
	data         map[string][]byte
	contentTypes map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (s *memStore) Read(ctx context.Context, key string) ([]byte, error) {
	b, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("no object %s", key)
	}
	return b, nil
}

func (s *memStore) Write(ctx context.Context, key string, data []byte, contentType string) error {
	s.data[key] = data
	s.contentTypes[key] = contentType
	return nil
}

func TestExportMirrorsSnapshotToBucket(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := newMemStore()
	h := NewHandler(log, store, nil, nil, nil)

	row := &types.Report{
		ID:      uuid.New(),
		BrandID: uuid.New(),
		ScoreID: uuid.New(),
		Payload: types.MustJSON(map[string]any{"overall": 73}),
	}
	h.export(context.Background(), row)

	key := exportKey(row.BrandID, row.ID)
	if key != fmt.Sprintf("reports/%s/%s.json", row.BrandID, row.ID) {
		t.Fatalf("unexpected export key: %s", key)
	}
	got, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("exported object missing: %v", err)
	}
	if string(got) != string(row.Payload) {
		t.Fatalf("export must mirror the persisted payload, got %s", got)
	}
	if store.contentTypes[key] != "application/json" {
		t.Fatalf("content type: %s", store.contentTypes[key])
	}
}

func TestExportWithoutStoreIsNoop(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewHandler(log, nil, nil, nil, nil)
	h.export(context.Background(), &types.Report{ID: uuid.New(), BrandID: uuid.New()})
}
