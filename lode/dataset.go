package lode

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoRecordsFound is returned when a query matches nothing.
var ErrNoRecordsFound = errors.New("no capture records found")

// NewReadDataset opens a dataset with the layout and codec of the write path.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewReadDatasetFS opens a read dataset over filesystem storage.
func NewReadDatasetFS(dataset, rootPath string) (lode.Dataset, error) {
	return NewReadDataset(dataset, lode.NewFSFactory(rootPath))
}

// NewReadDatasetS3 opens a read dataset over S3 storage.
func NewReadDatasetS3(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := NewS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewReadDataset(dataset, factory)
}

// Query selects stored records. Empty fields match everything.
type Query struct {
	SessionID string
	CaptureID string
	Kind      string
}

func (q Query) matches(r StoredRecord) bool {
	return (q.SessionID == "" || r.SessionID == q.SessionID) &&
		(q.CaptureID == "" || r.CaptureID == q.CaptureID) &&
		(q.Kind == "" || r.RecordKind == q.Kind)
}

// QueryRecords reads every stored record matching q, oldest snapshot first
// and in write order within a snapshot.
//
// Manifest paths are a coarse pre-filter; record fields are authoritative.
func QueryRecords(ctx context.Context, ds lode.Dataset, q Query) ([]StoredRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, string(ds.ID())+"/snapshots")
	}

	var out []StoredRecord
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "session_id", q.SessionID) ||
			!snapshotMatchesFilter(snap, "record_kind", q.Kind) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if r := fromRecordMap(m); q.matches(r) {
				out = append(out, r)
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoRecordsFound
	}
	return out, nil
}

// snapshotMatchesFilter reports whether any file of snap lies in the
// key=value partition. An empty value matches.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue matches an exact key=value path segment, so that
// session_id=a does not match session_id=ab.
func matchesPartitionValue(path, key, value string) bool {
	return slices.Contains(strings.Split(path, "/"), key+"="+value)
}
