// Package usage provides request usage tracking for the CopilotBridge
// server. Counters are persisted in a bbolt database so statistics survive
// restarts, and a snapshot of the stored counters is exposed through the
// management API.
package usage

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	bolt "go.etcd.io/bbolt"
)

const requestsBucket = "requests"

// Statistics records per-path request counters in a bbolt database.
// A nil *Statistics is valid and records nothing, so callers never need
// to branch on whether usage tracking is configured.
type Statistics struct {
	mu sync.Mutex
	db *bolt.DB
}

// Open opens (or creates) the statistics database at the given path.
func Open(path string) (*Statistics, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, errBucket := tx.CreateBucketIfNotExists([]byte(requestsBucket))
		return errBucket
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize usage database: %w", err)
	}

	return &Statistics{db: db}, nil
}

// Close releases the underlying database.
func (s *Statistics) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record increments the counters for one completed request. Failures are
// logged and swallowed; usage tracking never affects request handling.
func (s *Statistics) Record(method, path string, status, bytesOut int) {
	if s == nil || s.db == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(requestsBucket))
		key := fmt.Sprintf("%s %s", method, path)

		var rec record
		if raw := bucket.Get([]byte(key)); raw != nil {
			rec = decodeRecord(raw)
		}
		rec.Count++
		rec.BytesOut += int64(bytesOut)
		if status >= 400 {
			rec.Errors++
		}
		rec.LastSeen = time.Now().UTC().Format(time.RFC3339)

		return bucket.Put([]byte(key), rec.encode())
	})
	if err != nil {
		log.Warnf("usage statistics: failed to record request: %v", err)
	}
}

// Snapshot returns all stored counters as a JSON document keyed by
// "METHOD path". Bucket keys may contain dots, so they are escaped before
// being used as JSON paths.
func (s *Statistics) Snapshot() ([]byte, error) {
	if s == nil || s.db == nil {
		return []byte("{}"), nil
	}

	out := []byte("{}")
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(requestsBucket))
		return bucket.ForEach(func(k, v []byte) error {
			key := strings.ReplaceAll(string(k), ".", `\.`)
			var errSet error
			out, errSet = sjson.SetRawBytes(out, key, v)
			return errSet
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot usage statistics: %w", err)
	}

	return out, nil
}

// Middleware returns a Gin middleware that records usage for every request
// after the handler chain completes.
func (s *Statistics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.Record(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.Writer.Size())
	}
}

// record is the stored per-key counter set.
type record struct {
	Count    int64
	Errors   int64
	BytesOut int64
	LastSeen string
}

// encode renders the record as a small JSON object. sjson keeps the
// encoding allocation-light and the output directly embeddable in the
// snapshot document.
func (r record) encode() []byte {
	out := []byte("{}")
	out, _ = sjson.SetBytes(out, "count", r.Count)
	out, _ = sjson.SetBytes(out, "errors", r.Errors)
	out, _ = sjson.SetBytes(out, "bytes_out", r.BytesOut)
	out, _ = sjson.SetBytes(out, "last_seen", r.LastSeen)
	return out
}

func decodeRecord(raw []byte) record {
	return record{
		Count:    gjson.GetBytes(raw, "count").Int(),
		Errors:   gjson.GetBytes(raw, "errors").Int(),
		BytesOut: gjson.GetBytes(raw, "bytes_out").Int(),
		LastSeen: gjson.GetBytes(raw, "last_seen").String(),
	}
}
