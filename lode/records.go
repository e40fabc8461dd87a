package lode

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/pithecene-io/physlink/types"
)

// StoredRecord is the read-side view of a persisted capture record.
type StoredRecord struct {
	RecordKind   string `json:"record_kind"`
	CaptureID    string `json:"capture_id"`
	SessionID    string `json:"session_id"`
	Seq          int64  `json:"seq"`
	Ts           string `json:"ts"`
	Count        int    `json:"count"`
	Day          string `json:"day"`
	Source       string `json:"source"`
	Payload      any    `json:"payload"`
	Checksum     string `json:"checksum,omitempty"`
	ChecksumAlgo string `json:"checksum_algo,omitempty"`
}

// toRecordMap converts rec to the map form the Hive layout partitions on.
func toRecordMap(rec *types.CaptureRecord, cfg Config) (map[string]any, error) {
	m := map[string]any{
		"record_kind": string(rec.Kind),
		"capture_id":  rec.CaptureID,
		"session_id":  rec.SessionID,
		"seq":         rec.Seq,
		"ts":          rec.Ts,
		"count":       rec.Count,
		"payload":     rec.Payload,
		"day":         cfg.Day,
		"source":      cfg.Source,
	}
	if cfg.Checksum {
		encoded, err := json.Marshal(rec.Payload)
		if err != nil {
			return nil, err
		}
		m["checksum"] = computeMD5(encoded)
		m["checksum_algo"] = "md5"
	}
	return m, nil
}

// fromRecordMap reads back a record written by toRecordMap. Numbers
// decoded from JSONL arrive as float64.
func fromRecordMap(m map[string]any) StoredRecord {
	return StoredRecord{
		RecordKind:   toString(m["record_kind"]),
		CaptureID:    toString(m["capture_id"]),
		SessionID:    toString(m["session_id"]),
		Seq:          int64(toFloat(m["seq"])),
		Ts:           toString(m["ts"]),
		Count:        int(toFloat(m["count"])),
		Day:          toString(m["day"]),
		Source:       toString(m["source"]),
		Payload:      m["payload"],
		Checksum:     toString(m["checksum"]),
		ChecksumAlgo: toString(m["checksum_algo"]),
	}
}

func computeMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
