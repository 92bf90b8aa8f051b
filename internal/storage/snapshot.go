package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opentelekomcloud-infra/giji/internal/model"
)

// Archive stores one JSON snapshot per import run so a run's full
// outcome can be inspected after the history tables are pruned.
type Archive struct {
	store ObjectStore
}

// NewArchive wraps an object store with the snapshot key scheme.
func NewArchive(store ObjectStore) *Archive {
	return &Archive{store: store}
}

// RunKey returns the object key for a run snapshot.
func RunKey(profile, runID string) string {
	return fmt.Sprintf("runs/%s/%s.json", profile, runID)
}

// PutRun marshals the snapshot and uploads it, returning the object key.
func (a *Archive) PutRun(ctx context.Context, snap *model.RunSnapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := RunKey(snap.Run.Profile, snap.Run.ID)
	if _, err := a.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", fmt.Errorf("upload snapshot %s: %w", key, err)
	}
	return key, nil
}

// GetRun downloads and decodes a run snapshot.
func (a *Archive) GetRun(ctx context.Context, profile, runID string) (*model.RunSnapshot, error) {
	key := RunKey(profile, runID)
	rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download snapshot %s: %w", key, err)
	}
	defer rc.Close()

	var snap model.RunSnapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return &snap, nil
}

// PresignRun returns a time-limited download URL for a run snapshot.
func (a *Archive) PresignRun(ctx context.Context, profile, runID string, expiry time.Duration) (string, error) {
	return a.store.PresignGet(ctx, RunKey(profile, runID), expiry)
}
