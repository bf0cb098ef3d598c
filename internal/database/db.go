package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// UpsertMetricBatch writes all records of one calculation request in a
// single transaction. Records are applied in order, so a duplicate
// (user_id, data_type, date) key inside one batch resolves to the last
// occurrence (last write wins).
func (db *DB) UpsertMetricBatch(ctx context.Context, records []MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_records (user_id, data_type, date, value, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, data_type, date) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.UserID, r.DataType, r.Date, r.Value); err != nil {
			return fmt.Errorf("failed to upsert metric (user=%d type=%s date=%s): %w",
				r.UserID, r.DataType, r.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metric batch: %w", err)
	}

	return nil
}

// MetricsForTypes retrieves every stored record for the user whose data type
// is one of the two given types. Rows come back unordered; grouping and
// sorting is the reconstructor's job.
func (db *DB) MetricsForTypes(ctx context.Context, userID int64, typeA, typeB string) ([]MetricRecord, error) {
	query := `
		SELECT id, user_id, data_type, date, value, updated_at
		FROM metric_records
		WHERE user_id = $1 AND data_type IN ($2, $3)
	`

	rows, err := db.QueryContext(ctx, query, userID, typeA, typeB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []MetricRecord
	for rows.Next() {
		var r MetricRecord
		if err := rows.Scan(
			&r.ID,
			&r.UserID,
			&r.DataType,
			&r.Date,
			&r.Value,
			&r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric record: %w", err)
		}
		r.Date = r.Date.UTC()
		records = append(records, r)
	}

	return records, rows.Err()
}

// GetCorrelation retrieves the stored correlation for a user and an
// unordered pair of data types. Returns nil when no correlation has been
// computed for that pair.
func (db *DB) GetCorrelation(ctx context.Context, userID int64, typeA, typeB string) (*CorrelationRecord, error) {
	first, second := CanonicalPair(typeA, typeB)

	query := `
		SELECT id, user_id, x_data_type, y_data_type, correlation, p_value, sample_days, computed_at
		FROM correlations
		WHERE user_id = $1 AND x_data_type = $2 AND y_data_type = $3
	`

	var rec CorrelationRecord
	err := db.QueryRowContext(ctx, query, userID, first, second).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.XDataType,
		&rec.YDataType,
		&rec.Correlation,
		&rec.PValue,
		&rec.SampleDays,
		&rec.ComputedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// UpsertCorrelation inserts or overwrites the correlation for the record's
// (user, pair) key. Pair order in the input does not matter.
func (db *DB) UpsertCorrelation(ctx context.Context, rec *CorrelationRecord) error {
	first, second := CanonicalPair(rec.XDataType, rec.YDataType)

	if rec.ComputedAt.IsZero() {
		rec.ComputedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO correlations (user_id, x_data_type, y_data_type, correlation, p_value, sample_days, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, x_data_type, y_data_type) DO UPDATE
		SET correlation = EXCLUDED.correlation,
		    p_value = EXCLUDED.p_value,
		    sample_days = EXCLUDED.sample_days,
		    computed_at = EXCLUDED.computed_at
		RETURNING id
	`

	return db.QueryRowContext(ctx, query,
		rec.UserID,
		first,
		second,
		rec.Correlation,
		rec.PValue,
		rec.SampleDays,
		rec.ComputedAt,
	).Scan(&rec.ID)
}
