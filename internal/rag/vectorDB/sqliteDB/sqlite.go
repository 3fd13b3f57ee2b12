package sqliteDB

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kb_chunks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT    NOT NULL,
	page        INTEGER NOT NULL,
	chunk_order INTEGER NOT NULL,
	content     TEXT    NOT NULL,
	vector      BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_kb_chunks_source ON kb_chunks(source);
`

// Store keeps chunks in a single SQLite table; rowid order is insertion order.
type Store struct {
	db     *sql.DB
	logger *logger_i.Logger
}

// NewStore opens (or creates) the database at path. ":memory:" is accepted.
func NewStore(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one connection: writers serialize and :memory: stays a single database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &Store{db: db, logger: logger_i.NewLogger("sqlite_chunk_store")}, nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func (s *Store) InsertMany(ctx context.Context, chunks []commonModels.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO kb_chunks (source, page, chunk_order, content, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		blob, err := encodeVector(c.Vector)
		if err != nil {
			return 0, fmt.Errorf("chunk %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, c.Metadata.Source, c.Metadata.Page, c.Order, c.Content, blob); err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("Inserted chunks", "count", len(chunks))
	return len(chunks), nil
}

func (s *Store) FindAll(ctx context.Context) ([]commonModels.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, page, chunk_order, content, vector FROM kb_chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	out := []commonModels.Chunk{}
	for rows.Next() {
		var (
			c    commonModels.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.Metadata.Source, &c.Metadata.Page, &c.Order, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if c.Vector, err = decodeVector(blob); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteByDocumentId(ctx context.Context, documentId string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kb_chunks WHERE source = ?`, documentId)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// encodeVector stores float32 values little-endian.
func encodeVector(vector []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		return nil, fmt.Errorf("encode vector: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data length: %d", len(data))
	}
	vector := make([]float32, len(data)/4)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &vector); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return vector, nil
}
