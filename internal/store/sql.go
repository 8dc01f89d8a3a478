package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

// SQLStore persists cache entries, transcripts, leads and projects in SQLite
// or Postgres. Every query is written with "?" placeholders and rebound for
// the active driver.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

func NewSQLStore(driver, dataSourceName string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite3" {
		// One writer at a time; concurrent increments queue instead of failing with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewSQLStoreFromDB(db, driver, logger)
	if err = store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSQLStoreFromDB wraps an already opened handle without touching the schema.
func NewSQLStoreFromDB(db *sql.DB, driver string, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, driver: driver, logger: logger}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	schema := `
    CREATE TABLE IF NOT EXISTS chat_cache (
        id TEXT PRIMARY KEY,
        question TEXT NOT NULL,
        answer TEXT NOT NULL,
        embedding TEXT, -- JSON array of float32, NULL when absent
        helpful_count INTEGER NOT NULL DEFAULT 0,
        unhelpful_count INTEGER NOT NULL DEFAULT 0,
        hit_count INTEGER NOT NULL DEFAULT 0,
        is_semantic BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMP NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_chat_cache_question ON chat_cache (question);

    CREATE TABLE IF NOT EXISTS chat_logs (
        id TEXT PRIMARY KEY,
        session_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'model')),
        content TEXT NOT NULL,
        metadata TEXT,
        created_at TIMESTAMP NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_chat_logs_session ON chat_logs (session_id);

    CREATE TABLE IF NOT EXISTS leads (
        id TEXT PRIMARY KEY,
        full_name TEXT,
        contact_email TEXT,
        contact_no TEXT NOT NULL,
        status TEXT NOT NULL,
        interest TEXT,
        source TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL
    );

    CREATE TABLE IF NOT EXISTS projects (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL,
        category TEXT,
        status TEXT,
        address_line1 TEXT,
        city TEXT,
        district TEXT,
        state TEXT,
        pincode TEXT,
        description TEXT,
        created_at TIMESTAMP NOT NULL
    );
    `
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// rebind rewrites "?" placeholders to "$1..$n" for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Cache entry methods

const cacheEntryColumns = "id, question, answer, embedding, helpful_count, unhelpful_count, hit_count, is_semantic, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scanCacheEntry(row rowScanner) (*CacheEntry, error) {
	var entry CacheEntry
	var embeddingJSON sql.NullString
	if err := row.Scan(&entry.ID, &entry.Question, &entry.Answer, &embeddingJSON,
		&entry.HelpfulCount, &entry.UnhelpfulCount, &entry.HitCount, &entry.IsSemantic, &entry.CreatedAt); err != nil {
		return nil, err
	}
	if embeddingJSON.Valid && embeddingJSON.String != "" {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &entry.Embedding); err != nil {
			s.logger.Warn("failed to unmarshal cache embedding, treating entry as unembedded",
				zap.String("cacheId", entry.ID), zap.Error(err))
			entry.Embedding = nil
		}
	}
	return &entry, nil
}

// FindCacheEntryByQuestion returns the oldest entry whose question equals the
// given text exactly, or nil when there is none.
func (s *SQLStore) FindCacheEntryByQuestion(ctx context.Context, question string) (*CacheEntry, error) {
	query := s.rebind("SELECT " + cacheEntryColumns + " FROM chat_cache WHERE question = ? ORDER BY created_at ASC, id ASC LIMIT 1")
	entry, err := s.scanCacheEntry(s.db.QueryRowContext(ctx, query, question))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query cache entry: %w", err)
	}
	return entry, nil
}

func (s *SQLStore) GetCacheEntry(ctx context.Context, id string) (*CacheEntry, error) {
	query := s.rebind("SELECT " + cacheEntryColumns + " FROM chat_cache WHERE id = ?")
	entry, err := s.scanCacheEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return entry, nil
}

// ListEmbeddedCacheEntries returns every entry carrying an embedding, in
// creation order.
func (s *SQLStore) ListEmbeddedCacheEntries(ctx context.Context) ([]CacheEntry, error) {
	query := "SELECT " + cacheEntryColumns + " FROM chat_cache WHERE embedding IS NOT NULL ORDER BY created_at ASC, id ASC"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []CacheEntry
	for rows.Next() {
		entry, err := s.scanCacheEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache entry row: %w", err)
		}
		if len(entry.Embedding) == 0 {
			continue
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache entries: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) CreateCacheEntry(ctx context.Context, entry *CacheEntry) error {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()

	var embeddingJSON sql.NullString
	if len(entry.Embedding) > 0 {
		b, err := json.Marshal(entry.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		embeddingJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := s.rebind("INSERT INTO chat_cache (" + cacheEntryColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query, entry.ID, entry.Question, entry.Answer, embeddingJSON,
		entry.HelpfulCount, entry.UnhelpfulCount, entry.HitCount, entry.IsSemantic, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute cache entry insert: %w", err)
	}
	return nil
}

const (
	incrementHelpfulQuery   = "UPDATE chat_cache SET helpful_count = helpful_count + 1 WHERE id = ?"
	incrementUnhelpfulQuery = "UPDATE chat_cache SET unhelpful_count = unhelpful_count + 1 WHERE id = ?"
	incrementHitQuery       = "UPDATE chat_cache SET hit_count = hit_count + 1 WHERE id = ?"
)

// IncrementFeedback bumps the helpful or unhelpful counter in a single
// UPDATE so concurrent votes are never lost, then returns the updated row.
func (s *SQLStore) IncrementFeedback(ctx context.Context, id string, helpful bool) (*CacheEntry, error) {
	query := incrementUnhelpfulQuery
	if helpful {
		query = incrementHelpfulQuery
	}
	if err := s.execCounter(ctx, query, id); err != nil {
		return nil, err
	}
	return s.GetCacheEntry(ctx, id)
}

func (s *SQLStore) IncrementHitCount(ctx context.Context, id string) error {
	return s.execCounter(ctx, incrementHitQuery, id)
}

func (s *SQLStore) execCounter(ctx context.Context, query, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(query), id)
	if err != nil {
		return fmt.Errorf("failed to execute counter update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Transcript methods

func (s *SQLStore) CreateTranscriptTurn(ctx context.Context, turn *TranscriptTurn) error {
	turn.ID = uuid.NewString()
	turn.CreatedAt = time.Now().UTC()

	var metadata sql.NullString
	if len(turn.Metadata) > 0 {
		b, err := json.Marshal(turn.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal turn metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	query := s.rebind("INSERT INTO chat_logs (id, session_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query, turn.ID, turn.SessionID, turn.Role, turn.Content, metadata, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute chat log insert: %w", err)
	}
	return nil
}

func (s *SQLStore) ListTranscript(ctx context.Context, sessionID string) ([]TranscriptTurn, error) {
	query := s.rebind("SELECT id, session_id, role, content, metadata, created_at FROM chat_logs WHERE session_id = ? ORDER BY created_at ASC, id ASC")
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat logs: %w", err)
	}
	defer rows.Close()

	var turns []TranscriptTurn
	for rows.Next() {
		var turn TranscriptTurn
		var metadata sql.NullString
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Role, &turn.Content, &metadata, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat log row: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &turn.Metadata); err != nil {
				s.logger.Warn("failed to unmarshal chat log metadata, dropping it",
					zap.String("turnId", turn.ID), zap.Error(err))
				turn.Metadata = nil
			}
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Lead methods

func (s *SQLStore) CreateLead(ctx context.Context, lead *Lead) error {
	lead.ID = uuid.NewString()
	lead.CreatedAt = time.Now().UTC()

	query := s.rebind("INSERT INTO leads (id, full_name, contact_email, contact_no, status, interest, source, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query, lead.ID, lead.FullName, lead.ContactEmail, lead.ContactNo,
		lead.Status, lead.Interest, lead.Source, lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute lead insert: %w", err)
	}
	return nil
}

func (s *SQLStore) ListLeadsByContactNo(ctx context.Context, contactNo string) ([]Lead, error) {
	query := s.rebind("SELECT id, full_name, contact_email, contact_no, status, interest, source, created_at FROM leads WHERE contact_no = ? ORDER BY created_at ASC")
	rows, err := s.db.QueryContext(ctx, query, contactNo)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var lead Lead
		var fullName, email, interest sql.NullString
		if err := rows.Scan(&lead.ID, &fullName, &email, &lead.ContactNo, &lead.Status, &interest, &lead.Source, &lead.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		lead.FullName, lead.ContactEmail, lead.Interest = fullName.String, email.String, interest.String
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// Project methods

const projectColumns = "id, title, category, status, address_line1, city, district, state, pincode, description, created_at"

// ListProjects returns projects with the given status, or every project when
// status is empty.
func (s *SQLStore) ListProjects(ctx context.Context, status string) ([]Project, error) {
	query := "SELECT " + projectColumns + " FROM projects"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var category, pstatus, addr, city, district, state, pincode, description sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &category, &pstatus, &addr, &city, &district, &state, &pincode, &description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		p.Category, p.Status, p.AddressLine1 = category.String, pstatus.String, addr.String
		p.City, p.District, p.State = city.String, district.String, state.String
		p.Pincode, p.Description = pincode.String, description.String
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpsertProject inserts a project or overwrites the one with the same id.
func (s *SQLStore) UpsertProject(ctx context.Context, p *Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := s.rebind(`INSERT INTO projects (` + projectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            title = excluded.title, category = excluded.category, status = excluded.status,
            address_line1 = excluded.address_line1, city = excluded.city, district = excluded.district,
            state = excluded.state, pincode = excluded.pincode, description = excluded.description`)
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Title, p.Category, p.Status, p.AddressLine1,
		p.City, p.District, p.State, p.Pincode, p.Description, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert project %q: %w", p.Title, err)
	}
	return nil
}
