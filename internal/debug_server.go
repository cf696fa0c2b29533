package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const defaultInspectLimit = 200

type InspectRow struct {
	Key       string `json:"key"`
	Kind      string `json:"kind"`
	Room      string `json:"room,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	EntityID  string `json:"entityId,omitempty"`
	Detail    string `json:"detail"`
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() any

// NewDebugServer serves live counters on /debug/stats and a read-only view of
// the store keys on /debug/keys?prefix=msg:r1:&limit=50.
func NewDebugServer(db *badger.DB, port int, mapper RowMapper, stats StatsProvider) *http.Server {
	if mapper == nil {
		mapper = DefaultMapper
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /debug/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stats())
	})

	mux.HandleFunc("GET /debug/keys", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		limit := defaultInspectLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		rows, err := Scan(db, prefix, limit, mapper)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, rows)
	})

	return &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Scan reads at most limit keys under prefix.
func Scan(db *badger.DB, prefix string, limit int, mapper RowMapper) ([]InspectRow, error) {
	rows := []InspectRow{}
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && len(rows) < limit; it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				rows = append(rows, mapper(string(item.Key()), val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// DefaultMapper splits a store key into its parts.
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:    key,
		Kind:   parts[0],
		Detail: "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
	switch row.Kind {
	case "msg":
		if len(parts) >= 4 {
			row.Room = parts[1]
			if tsNano, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
				row.Timestamp = time.Unix(0, tsNano).UTC().Format(time.RFC3339)
			}
			row.EntityID = parts[3]
		}
	case "chat":
		if len(parts) >= 2 {
			row.Room = parts[1]
		}
	case "member":
		if len(parts) >= 3 {
			row.Room, row.EntityID = parts[1], parts[2]
		}
	case "user":
		if len(parts) >= 2 {
			row.EntityID = parts[1]
			row.Detail = string(val)
		}
	case "msgid":
		if len(parts) >= 2 {
			row.EntityID = parts[1]
			row.Detail = string(val)
		}
	}
	return row
}
