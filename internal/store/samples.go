package store

import (
	"context"
	"database/sql"
	"time"

	"dockmon/internal/models"
)

// SampleStore is the append-only metric sample persistence.
type SampleStore struct {
	db *sql.DB
}

func NewSampleStore(db *sql.DB) *SampleStore {
	return &SampleStore{db: db}
}

// Append inserts one immutable sample row.
func (s *SampleStore) Append(ctx context.Context, m models.MetricSample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metric_samples
			(resource_id, ts, cpu_percent, memory_usage, memory_limit, memory_percent,
			 net_rx, net_tx, block_read, block_write)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.ResourceID, m.Timestamp.UTC(), m.CPUPercent, m.MemoryUsage, m.MemoryLimit,
		m.MemoryPercent, m.NetRxBytes, m.NetTxBytes, m.BlockRead, m.BlockWrite)
	return err
}

// Query returns up to limit samples for one container newer than since,
// newest first. A zero since means no lower bound; limit <= 0 falls back
// to 100.
func (s *SampleStore) Query(ctx context.Context, resourceID string, since time.Time, limit int) ([]models.MetricSample, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT resource_id, ts, cpu_percent, memory_usage, memory_limit, memory_percent,
			net_rx, net_tx, block_read, block_write
		 FROM metric_samples
		 WHERE resource_id = ? AND ts > ?
		 ORDER BY ts DESC
		 LIMIT ?`,
		resourceID, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MetricSample
	for rows.Next() {
		var m models.MetricSample
		if err := rows.Scan(&m.ResourceID, &m.Timestamp, &m.CPUPercent, &m.MemoryUsage,
			&m.MemoryLimit, &m.MemoryPercent, &m.NetRxBytes, &m.NetTxBytes,
			&m.BlockRead, &m.BlockWrite); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
