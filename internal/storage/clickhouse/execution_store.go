package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using ClickHouse.
type ExecutionStore struct {
	conn *Conn
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(conn *Conn) *ExecutionStore {
	return &ExecutionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

const executionColumns = `
	execution_id, instance_id, network, tx_hash, tx_index,
	valid_from, valid_to, payload, status, http_status, error, submitted_at
`

// Insert adds a record. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionStore) Insert(ctx context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.ExecutionID == "" {
		return storage.ErrInvalidInput
	}

	// MergeTree does not enforce uniqueness
	exists, err := s.exists(ctx, r.ExecutionID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `INSERT INTO executions (` + executionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err = s.conn.Exec(ctx, query,
		r.ExecutionID, r.InstanceID, string(r.Network), r.TxHash, r.TxIndex,
		r.ValidFrom, r.ValidTo, r.Payload, string(r.Status), int32(r.HTTPStatus), r.Error, r.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByTxRef retrieves all attempts for an order output, ordered by submitted_at ASC.
func (s *ExecutionStore) GetByTxRef(ctx context.Context, txHash string, txIndex uint64) ([]*domain.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE tx_hash = ? AND tx_index = ?
		ORDER BY submitted_at ASC, execution_id ASC
	`

	rows, err := s.conn.Query(ctx, query, txHash, txIndex)
	if err != nil {
		return nil, fmt.Errorf("query by tx ref: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// GetByInstance retrieves all attempts of an instance, ordered by submitted_at ASC.
func (s *ExecutionStore) GetByInstance(ctx context.Context, instanceID string) ([]*domain.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE instance_id = ?
		ORDER BY submitted_at ASC, execution_id ASC
	`

	rows, err := s.conn.Query(ctx, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("query by instance: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

func (s *ExecutionStore) exists(ctx context.Context, executionID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM executions WHERE execution_id = ?`, executionID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanExecutions(rows driver.Rows) ([]*domain.ExecutionRecord, error) {
	var result []*domain.ExecutionRecord
	for rows.Next() {
		var (
			r          domain.ExecutionRecord
			network    string
			status     string
			httpStatus int32
		)
		err := rows.Scan(
			&r.ExecutionID, &r.InstanceID, &network, &r.TxHash, &r.TxIndex,
			&r.ValidFrom, &r.ValidTo, &r.Payload, &status, &httpStatus, &r.Error, &r.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		r.Network = domain.Network(network)
		r.Status = domain.ExecutionStatus(status)
		r.HTTPStatus = int(httpStatus)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return result, nil
}
