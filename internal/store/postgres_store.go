package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore is the sole Storer implementation: a pooled connection to
// an external Postgres database with the pgvector extension enabled.
type PostgresStore struct {
	pool         *pgxpool.Pool
	log          *zap.Logger
	embeddingDim int
}

var _ Storer = (*PostgresStore)(nil)

// NewPostgresStore opens a pgxpool against dsn. It does not run Migrate;
// callers are expected to call Migrate explicitly during startup (§7:
// schema errors are fatal at startup, not hidden inside a constructor).
func NewPostgresStore(ctx context.Context, dsn string, embeddingDim int, log *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrTransport, err)
	}
	// pgxpool.New validates the DSN but doesn't eagerly dial; Ping forces
	// the connection attempt now so a genuinely unreachable database
	// surfaces as ErrTransport here, not as an ErrSchema from inside the
	// first Migrate call.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrTransport, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{pool: pool, log: log, embeddingDim: embeddingDim}, nil
}

func vectorTypeName(dim int) string {
	return "vector(" + strconv.Itoa(dim) + ")"
}

// Migrate is idempotent: safe to call on every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(schemaTemplate, vectorColumnType(s.embeddingDim))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: migrate: %v", ErrSchema, err)
	}
	if _, err := s.pool.Exec(ctx, liveFactUniqueIndex); err != nil {
		return fmt.Errorf("%w: migrate (live fact index): %v", ErrSchema, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func now() int64 { return time.Now().UnixMilli() }

// serializeEmbedding renders a float32 slice as the pgvector text literal
// format ("[v1,v2,...]") pgx sends as a plain string parameter.
func serializeEmbedding(v []float32) *string {
	if len(v) == 0 {
		return nil
	}
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	out := "[" + strings.Join(parts, ",") + "]"
	return &out
}

func parseEmbedding(raw *string) []float32 {
	if raw == nil || *raw == "" {
		return nil
	}
	trimmed := strings.Trim(*raw, "[]")
	if trimmed == "" {
		return nil
	}
	fields := strings.Split(trimmed, ",")
	out := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			continue
		}
		out = append(out, float32(v))
	}
	return out
}

func marshalJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// --- items -----------------------------------------------------------

func (s *PostgresStore) UpsertItems(ctx context.Context, items []*Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrTransport, err)
	}
	defer tx.Rollback(ctx)

	ts := now()
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.Tags = DedupeTags(it.Tags)
		if it.MemoryType == "" {
			it.MemoryType = MemoryTypeDefault
		}
		if it.Salience == 0 {
			it.Salience = DefaultSalience
		}
		if it.CreatedAt == 0 {
			it.CreatedAt = ts
		}
		if it.LastAccessedAt == 0 {
			it.LastAccessedAt = it.CreatedAt
		}
		emb := serializeEmbedding(it.Embedding)

		_, err := tx.Exec(ctx, `
			INSERT INTO chats (
				id, kind, title, summary, content, tags, source, file_name, assets,
				created_at, updated_at, embedding, memory_type, salience,
				recall_count, last_accessed_at, decay_metadata
			) VALUES (
				$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
			)
			ON CONFLICT (id) DO UPDATE SET
				kind = excluded.kind,
				title = excluded.title,
				summary = excluded.summary,
				content = excluded.content,
				tags = excluded.tags,
				source = excluded.source,
				file_name = excluded.file_name,
				assets = excluded.assets,
				updated_at = excluded.updated_at,
				embedding = excluded.embedding,
				memory_type = excluded.memory_type
		`,
			it.ID, string(it.Kind), it.Title, it.Summary, it.Content,
			marshalJSON(it.Tags), it.Source, nullableString(it.FileName), marshalJSON(it.Assets),
			it.CreatedAt, ts, emb, string(it.MemoryType), it.Salience,
			it.RecallCount, it.LastAccessedAt, marshalJSON(it.DecayMetadata),
		)
		if err != nil {
			return fmt.Errorf("%w: upsert item %s: %v", ErrTransport, it.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrTransport, err)
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

const itemColumns = `id, kind, title, summary, content, tags, source, file_name, assets,
	created_at, updated_at, embedding, memory_type, salience, recall_count,
	last_accessed_at, decay_metadata`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	var kind, memType, decayMeta, tagsJSON, assetsJSON string
	var emb *string
	var fileNameNull *string
	if err := row.Scan(
		&it.ID, &kind, &it.Title, &it.Summary, &it.Content, &tagsJSON, &it.Source,
		&fileNameNull, &assetsJSON, &it.CreatedAt, &it.UpdatedAt, &emb, &memType,
		&it.Salience, &it.RecallCount, &it.LastAccessedAt, &decayMeta,
	); err != nil {
		return nil, err
	}
	it.Kind = Kind(kind)
	it.MemoryType = MemoryType(memType)
	if fileNameNull != nil {
		it.FileName = *fileNameNull
	}
	_ = json.Unmarshal([]byte(tagsJSON), &it.Tags)
	_ = json.Unmarshal([]byte(assetsJSON), &it.Assets)
	_ = json.Unmarshal([]byte(decayMeta), &it.DecayMetadata)
	it.Embedding = parseEmbedding(emb)
	return &it, nil
}

func (s *PostgresStore) LoadItems(ctx context.Context) ([]*Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM chats ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: load items: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan item: %v", ErrTransport, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM chats WHERE id = $1`, id)
	it, err := scanItem(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: item %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get item: %v", ErrTransport, err)
	}
	return it, nil
}

func (s *PostgresStore) DeleteItem(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: delete item: %v", ErrTransport, err)
	}
	return nil
}

// --- facts -------------------------------------------------------------

func (s *PostgresStore) SaveFacts(ctx context.Context, chatID string, extracted []ExtractedFact) error {
	if len(extracted) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrTransport, err)
	}
	defer tx.Rollback(ctx)

	ts := now()
	for _, f := range extracted {
		var existingID string
		err := tx.QueryRow(ctx, `
			SELECT id FROM facts WHERE subject = $1 AND predicate = $2 AND valid_to IS NULL
		`, f.Subject, f.Predicate).Scan(&existingID)
		if err == nil {
			if _, err := tx.Exec(ctx, `UPDATE facts SET valid_to = $1 WHERE id = $2`, ts, existingID); err != nil {
				return fmt.Errorf("%w: close prior fact: %v", ErrTransport, err)
			}
		} else if err != pgx.ErrNoRows {
			return fmt.Errorf("%w: lookup live fact: %v", ErrTransport, err)
		}

		var dupCount int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM facts WHERE chat_id = $1 AND subject = $2 AND predicate = $3 AND object = $4 AND valid_to IS NULL
		`, chatID, f.Subject, f.Predicate, f.Object).Scan(&dupCount); err != nil {
			return fmt.Errorf("%w: dup check: %v", ErrTransport, err)
		}
		if dupCount > 0 {
			continue
		}

		id := uuid.NewString()
		_, err = tx.Exec(ctx, `
			INSERT INTO facts (
				id, chat_id, subject, predicate, object, confidence, salience,
				valid_from, valid_to, created_at, last_accessed_at, recall_count, decay_metadata
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL,$9,$9,0,$10)
		`, id, chatID, f.Subject, f.Predicate, f.Object, f.Confidence, DefaultFactSalience,
			ts, ts, marshalJSON(DecayMetadata{}))
		if err != nil {
			return fmt.Errorf("%w: insert fact: %v", ErrTransport, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrTransport, err)
	}
	return nil
}

const factColumns = `id, chat_id, subject, predicate, object, confidence, salience,
	valid_from, valid_to, created_at, last_accessed_at, recall_count, decay_metadata`

func scanFact(row pgx.Row) (*Fact, error) {
	var f Fact
	var decayMeta string
	var validTo *int64
	if err := row.Scan(
		&f.ID, &f.ChatID, &f.Subject, &f.Predicate, &f.Object, &f.Confidence, &f.Salience,
		&f.ValidFrom, &validTo, &f.CreatedAt, &f.LastAccessedAt, &f.RecallCount, &decayMeta,
	); err != nil {
		return nil, err
	}
	f.ValidTo = validTo
	_ = json.Unmarshal([]byte(decayMeta), &f.DecayMetadata)
	return &f, nil
}

func (s *PostgresStore) LoadFacts(ctx context.Context, chatID string) ([]*Fact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+factColumns+` FROM facts
		WHERE chat_id = $1 AND valid_to IS NULL
		ORDER BY salience DESC, created_at DESC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: load facts: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []*Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan fact: %v", ErrTransport, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- rehearsal (boost / view) -------------------------------------------

func (s *PostgresStore) BoostSalience(ctx context.Context, id string) error {
	ts := now()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrTransport, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE chats SET
			salience = LEAST(salience + 0.05, 1.0),
			recall_count = recall_count + 1,
			last_accessed_at = $2
		WHERE id = $1
	`, id, ts)
	if err != nil {
		return fmt.Errorf("%w: boost item: %v", ErrTransport, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %s", ErrNotFound, id)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE facts SET
			salience = LEAST(salience + 0.03, 1.0),
			last_accessed_at = $2
		WHERE chat_id = $1 AND valid_to IS NULL
	`, id, ts); err != nil {
		return fmt.Errorf("%w: boost facts: %v", ErrTransport, err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) TrackView(ctx context.Context, id string) error {
	ts := now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE chats SET recall_count = recall_count + 1, last_accessed_at = $2
		WHERE id = $1
	`, id, ts)
	if err != nil {
		return fmt.Errorf("%w: track view: %v", ErrTransport, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	return nil
}

// --- links ---------------------------------------------------------------

func (s *PostgresStore) AddLink(ctx context.Context, from, to, linkType string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO links (from_id, to_id, type, created_at) VALUES ($1,$2,$3,$4)
		ON CONFLICT (from_id, to_id) DO UPDATE SET type = excluded.type
	`, from, to, nullableString(linkType), now())
	if err != nil {
		return fmt.Errorf("%w: add link: %v", ErrTransport, err)
	}
	return nil
}

func (s *PostgresStore) RemoveLink(ctx context.Context, a, b string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM links WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
	`, a, b)
	if err != nil {
		return fmt.Errorf("%w: remove link: %v", ErrTransport, err)
	}
	return nil
}

func (s *PostgresStore) ListLinks(ctx context.Context) ([]*Link, error) {
	rows, err := s.pool.Query(ctx, `SELECT from_id, to_id, type, created_at FROM links`)
	if err != nil {
		return nil, fmt.Errorf("%w: list links: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []*Link
	for rows.Next() {
		var l Link
		var t *string
		if err := rows.Scan(&l.FromID, &l.ToID, &t, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan link: %v", ErrTransport, err)
		}
		if t != nil {
			l.Type = *t
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// --- search ---------------------------------------------------------------

func filterClause(f Filters, startArg int) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	n := startArg
	if f.MemoryType != "" {
		clauses = append(clauses, fmt.Sprintf("memory_type = $%d", n))
		args = append(args, string(f.MemoryType.Normalize()))
		n++
	}
	if f.MinSalience != nil {
		clauses = append(clauses, fmt.Sprintf("salience >= $%d", n))
		args = append(args, *f.MinSalience)
		n++
	}
	if f.ExcludeID != "" {
		clauses = append(clauses, fmt.Sprintf("id <> $%d", n))
		args = append(args, f.ExcludeID)
		n++
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func (s *PostgresStore) VectorKNN(ctx context.Context, query []float32, k int, filters Filters) ([]*Item, error) {
	emb := serializeEmbedding(query)
	if emb == nil {
		return nil, fmt.Errorf("%w: empty query vector", ErrTransport)
	}
	where, fargs := filterClause(filters, 3)
	args := append([]interface{}{*emb, k}, fargs...)

	q := `SELECT ` + itemColumns + ` FROM chats
		WHERE embedding IS NOT NULL` + where + `
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector knn: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan knn row: %v", ErrTransport, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) KeywordSearch(ctx context.Context, pattern string, filters Filters) ([]*Item, error) {
	where, fargs := filterClause(filters, 2)
	args := append([]interface{}{"%" + strings.ToLower(pattern) + "%"}, fargs...)

	q := `SELECT ` + itemColumns + ` FROM chats
		WHERE (
			LOWER(title) LIKE $1 OR
			LOWER(summary) LIKE $1 OR
			LOWER(tags::text) LIKE $1
		)` + where + `
		ORDER BY created_at DESC
		LIMIT 10`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan search row: %v", ErrTransport, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT tags FROM chats`)
	if err != nil {
		return nil, fmt.Errorf("%w: list tags: %v", ErrTransport, err)
	}
	defer rows.Close()

	set := map[string]bool{}
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, fmt.Errorf("%w: scan tags: %v", ErrTransport, err)
		}
		var tags []string
		_ = json.Unmarshal([]byte(tagsJSON), &tags)
		for _, t := range tags {
			set[t] = true
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sortStrings(out)
	return out, rows.Err()
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

func (s *PostgresStore) ListRecent(ctx context.Context, count int) ([]*Item, error) {
	if count < 1 {
		count = 1
	}
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM chats ORDER BY created_at DESC LIMIT $1`, count)
	if err != nil {
		return nil, fmt.Errorf("%w: list recent: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan recent row: %v", ErrTransport, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// --- decay scheduler support ------------------------------------------

func (s *PostgresStore) ScanItemsForDecay(ctx context.Context, cursor string, batchSize int, intervalMs int64, at int64) ([]*Item, error) {
	q := `SELECT ` + itemColumns + ` FROM chats
		WHERE salience > 0.1
			AND (decay_metadata->>'lastDecayRun' IS NULL OR $1 - (decay_metadata->>'lastDecayRun')::bigint > $2)
			AND id > $3
		ORDER BY id ASC
		LIMIT $4`
	rows, err := s.pool.Query(ctx, q, at, intervalMs, cursor, batchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: scan items for decay: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan decay item: %v", ErrTransport, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ScanFactsForDecay(ctx context.Context, cursor string, batchSize int, intervalMs int64, at int64) ([]*Fact, error) {
	q := `SELECT ` + factColumns + ` FROM facts
		WHERE salience > 0.1 AND valid_to IS NULL
			AND (decay_metadata->>'lastDecayRun' IS NULL OR $1 - (decay_metadata->>'lastDecayRun')::bigint > $2)
			AND id > $3
		ORDER BY id ASC
		LIMIT $4`
	rows, err := s.pool.Query(ctx, q, at, intervalMs, cursor, batchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: scan facts for decay: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []*Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan decay fact: %v", ErrTransport, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateItemSalience(ctx context.Context, id string, newSalience float64, entry DecayHistoryEntry, lastDecayRun int64) error {
	meta, err := s.loadDecayMetadata(ctx, "chats", id)
	if err != nil {
		return err
	}
	meta.AppendHistory(entry)
	meta.LastDecayRun = &lastDecayRun

	_, err = s.pool.Exec(ctx, `UPDATE chats SET salience = $1, decay_metadata = $2 WHERE id = $3`,
		newSalience, marshalJSON(meta), id)
	if err != nil {
		return fmt.Errorf("%w: update item salience: %v", ErrTransport, err)
	}
	return nil
}

func (s *PostgresStore) UpdateFactSalience(ctx context.Context, id string, newSalience float64, entry DecayHistoryEntry, lastDecayRun int64) error {
	meta, err := s.loadDecayMetadata(ctx, "facts", id)
	if err != nil {
		return err
	}
	meta.AppendHistory(entry)
	meta.LastDecayRun = &lastDecayRun

	_, err = s.pool.Exec(ctx, `UPDATE facts SET salience = $1, decay_metadata = $2 WHERE id = $3`,
		newSalience, marshalJSON(meta), id)
	if err != nil {
		return fmt.Errorf("%w: update fact salience: %v", ErrTransport, err)
	}
	return nil
}

func (s *PostgresStore) loadDecayMetadata(ctx context.Context, table, id string) (DecayMetadata, error) {
	var raw string
	q := fmt.Sprintf(`SELECT decay_metadata FROM %s WHERE id = $1`, table)
	if err := s.pool.QueryRow(ctx, q, id).Scan(&raw); err != nil {
		return DecayMetadata{}, fmt.Errorf("%w: load decay metadata: %v", ErrTransport, err)
	}
	var meta DecayMetadata
	_ = json.Unmarshal([]byte(raw), &meta)
	return meta, nil
}

func (s *PostgresStore) AllLiveSalienceValues(ctx context.Context) ([]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT salience FROM chats
		UNION ALL
		SELECT salience FROM facts WHERE valid_to IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: all live salience: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%w: scan salience: %v", ErrTransport, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertDecayRunMetric(ctx context.Context, m *DecayRunMetric) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO salience_decay_metrics (
			run_timestamp, items_processed, items_decayed, error_count,
			average_decay_amount, memory_entropy, environmental_context, processing_duration_ms
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, m.RunTimestamp, m.ItemsProcessed, m.ItemsDecayed, m.ErrorCount,
		m.AverageDecayAmount, m.MemoryEntropy, m.EnvironmentalContext, m.ProcessingDurationMs)
	if err != nil {
		return fmt.Errorf("%w: insert decay run metric: %v", ErrTransport, err)
	}
	return nil
}

func (s *PostgresStore) RecentDecayMetrics(ctx context.Context, limit int) ([]*DecayRunMetric, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_timestamp, items_processed, items_decayed, error_count,
			average_decay_amount, memory_entropy, environmental_context, processing_duration_ms
		FROM salience_decay_metrics
		ORDER BY run_timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent decay metrics: %v", ErrTransport, err)
	}
	defer rows.Close()

	var out []*DecayRunMetric
	for rows.Next() {
		var m DecayRunMetric
		if err := rows.Scan(&m.RunTimestamp, &m.ItemsProcessed, &m.ItemsDecayed, &m.ErrorCount,
			&m.AverageDecayAmount, &m.MemoryEntropy, &m.EnvironmentalContext, &m.ProcessingDurationMs); err != nil {
			return nil, fmt.Errorf("%w: scan decay metric: %v", ErrTransport, err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PruneDecayMetrics(ctx context.Context, olderThanMs int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM salience_decay_metrics WHERE run_timestamp < $1`, olderThanMs); err != nil {
		return fmt.Errorf("%w: prune decay metrics: %v", ErrTransport, err)
	}
	return nil
}
