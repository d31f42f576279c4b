// Package storage persists live-search history in PostgreSQL, caches complete
// results in Redis and indexes itineraries in Elasticsearch.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"escapade/internal/common/database"
	"escapade/internal/common/errors"
	"escapade/internal/common/logger"
	"escapade/internal/models"
)

const (
	tableSearchLog     = "search_live_log"
	tableSearchResults = "search_live_results"
	tableSearchData    = "search_live_data"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS search_live_log (
		search_id   BIGSERIAL PRIMARY KEY,
		user_id     BIGINT,
		created     TIMESTAMPTZ NOT NULL DEFAULT now(),
		search_json JSONB NOT NULL,
		search_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS search_live_results (
		results_id       BIGSERIAL PRIMARY KEY,
		search_id        BIGINT NOT NULL REFERENCES search_live_log (search_id),
		user_id          BIGINT,
		result_timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
		results_json     JSONB NOT NULL,
		search_name      TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS search_live_data (` + dataColumnsDDL() + `)`,
	`CREATE INDEX IF NOT EXISTS idx_search_live_log_user ON search_live_log (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_search_live_data_search ON search_live_data (search_id)`,
}

// dataColumnsDDL declares the id columns followed by one TEXT column per flat itinerary field.
func dataColumnsDDL() string {
	cols := []string{
		"results_id BIGINT REFERENCES search_live_results (results_id)",
		"search_id BIGINT NOT NULL",
		"user_id BIGINT",
		"itinerary_timestamp TIMESTAMPTZ NOT NULL DEFAULT now()",
	}
	for _, c := range models.FlatColumns {
		cols = append(cols, c+" TEXT")
	}
	return strings.Join(cols, ", ")
}

// SearchRepository reads and writes the search_live_* tables.
type SearchRepository struct {
	db  *database.PostgresClient
	log logger.Logger
}

func NewSearchRepository(db *database.PostgresClient, log logger.Logger) *SearchRepository {
	return &SearchRepository{db: db, log: log}
}

// EnsureSchema creates the tables and indexes when missing.
func (r *SearchRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return errors.NewQueryExecutionFailedError("ensure_schema", err)
		}
	}
	return nil
}

// LogSearch stores the submitted queries and returns the new search id.
// userID 0 is stored as NULL for anonymous searches.
func (r *SearchRepository) LogSearch(ctx context.Context, userID int64, name string, queries []models.SearchQuery) (int64, error) {
	payload, err := json.Marshal(queries)
	if err != nil {
		return 0, fmt.Errorf("marshal queries: %w", err)
	}

	var searchID int64
	err = r.db.QueryRow(ctx,
		`INSERT INTO search_live_log (user_id, search_json, search_name) VALUES ($1, $2, $3) RETURNING search_id`,
		nullableID(userID), string(payload), nullableString(name),
	).Scan(&searchID)
	if err != nil {
		return 0, errors.NewDatabaseInsertFailedError(tableSearchLog, err)
	}
	return searchID, nil
}

// LogResults stores the aggregate returned by a fan-out, raw snapshots included.
func (r *SearchRepository) LogResults(ctx context.Context, userID, searchID int64, name string, results []models.PipelineResult) (int64, error) {
	payload, err := json.Marshal(results)
	if err != nil {
		return 0, fmt.Errorf("marshal results: %w", err)
	}

	var resultsID int64
	err = r.db.QueryRow(ctx,
		`INSERT INTO search_live_results (search_id, user_id, results_json, search_name) VALUES ($1, $2, $3, $4) RETURNING results_id`,
		searchID, nullableID(userID), string(payload), nullableString(name),
	).Scan(&resultsID)
	if err != nil {
		return 0, errors.NewDatabaseInsertFailedError(tableSearchResults, err)
	}
	return resultsID, nil
}

// LogItineraries writes one search_live_data row per itinerary in a single transaction.
// One-way and round-trip itineraries can be mixed; empty fields are stored as NULL.
func (r *SearchRepository) LogItineraries(ctx context.Context, userID, searchID, resultsID int64, itineraries []models.Itinerary) (int, error) {
	if len(itineraries) == 0 {
		return 0, nil
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertDataSQL())
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, it := range itineraries {
			args := []interface{}{nullableID(resultsID), searchID, nullableID(userID)}
			for _, v := range it.Flatten().Values() {
				args = append(args, nullableString(v))
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.NewDatabaseInsertFailedError(tableSearchData, err)
	}

	r.log.Debug("Itineraries stored", map[string]interface{}{
		"searchId":  searchID,
		"resultsId": resultsID,
		"count":     len(itineraries),
	})
	return len(itineraries), nil
}

func insertDataSQL() string {
	cols := append([]string{"results_id", "search_id", "user_id"}, models.FlatColumns...)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO search_live_data (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// GetUserSearchHistory lists a user's searches, newest first.
func (r *SearchRepository) GetUserSearchHistory(ctx context.Context, userID int64) ([]models.SearchLogEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT search_id, user_id, created, search_json, search_name FROM search_live_log WHERE user_id = $1 ORDER BY created DESC, search_id DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("user_search_history", err)
	}
	defer rows.Close()

	history := []models.SearchLogEntry{}
	for rows.Next() {
		var (
			entry   models.SearchLogEntry
			user    sql.NullInt64
			payload []byte
			name    sql.NullString
		)
		if err := rows.Scan(&entry.SearchID, &user, &entry.Created, &payload, &name); err != nil {
			return nil, errors.NewQueryExecutionFailedError("user_search_history", err)
		}
		if user.Valid {
			id := user.Int64
			entry.UserID = &id
		}
		entry.Name = name.String
		if err := json.Unmarshal(payload, &entry.Queries); err != nil {
			return nil, errors.NewQueryExecutionFailedError("user_search_history", err)
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("user_search_history", err)
	}
	return history, nil
}

// GetSearchQuery returns the queries logged under searchID.
func (r *SearchRepository) GetSearchQuery(ctx context.Context, searchID int64) ([]models.SearchQuery, error) {
	var payload []byte
	err := r.db.QueryRow(ctx, `SELECT search_json FROM search_live_log WHERE search_id = $1`, searchID).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewSearchNotFoundError(searchID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("search_query", err)
	}

	var queries []models.SearchQuery
	if err := json.Unmarshal(payload, &queries); err != nil {
		return nil, errors.NewQueryExecutionFailedError("search_query", err)
	}
	return queries, nil
}

// GetSearchResult returns the most recent aggregate stored for searchID.
func (r *SearchRepository) GetSearchResult(ctx context.Context, searchID int64) ([]models.PipelineResult, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT results_json FROM search_live_results WHERE search_id = $1 ORDER BY results_id DESC LIMIT 1`,
		searchID,
	).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewSearchNotFoundError(searchID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("search_result", err)
	}

	var results []models.PipelineResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, errors.NewQueryExecutionFailedError("search_result", err)
	}
	return results, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
