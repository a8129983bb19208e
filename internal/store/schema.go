package store

// schemaTemplate is the idempotent DDL run by PostgresStore.Migrate. Every
// statement uses IF NOT EXISTS so repeated calls are safe.
//
// The %[1]s placeholder is substituted (via vectorColumnType) with
// vector(D) for the configured embedding dimension, or plain vector when
// no dimension is pinned.
const schemaTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS chats (
	id               TEXT PRIMARY KEY,
	kind             TEXT NOT NULL DEFAULT 'chat',
	title            TEXT NOT NULL DEFAULT '',
	summary          TEXT NOT NULL DEFAULT '',
	content          TEXT NOT NULL DEFAULT '',
	tags             JSONB NOT NULL DEFAULT '[]',
	source           TEXT NOT NULL DEFAULT '',
	file_name        TEXT,
	assets           JSONB NOT NULL DEFAULT '[]',
	created_at       BIGINT NOT NULL,
	updated_at       BIGINT NOT NULL,
	embedding        %[1]s,
	memory_type      TEXT NOT NULL DEFAULT 'default',
	salience         DOUBLE PRECISION NOT NULL DEFAULT 0.4,
	recall_count     INTEGER NOT NULL DEFAULT 0,
	last_accessed_at BIGINT NOT NULL,
	decay_metadata   JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS facts (
	id               TEXT PRIMARY KEY,
	chat_id          TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	subject          TEXT NOT NULL,
	predicate        TEXT NOT NULL,
	object           TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	salience         DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	valid_from       BIGINT NOT NULL,
	valid_to         BIGINT,
	created_at       BIGINT NOT NULL,
	last_accessed_at BIGINT NOT NULL,
	recall_count     INTEGER NOT NULL DEFAULT 0,
	decay_metadata   JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS links (
	from_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	to_id      TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	type       TEXT,
	created_at BIGINT NOT NULL,
	PRIMARY KEY (from_id, to_id)
);

CREATE TABLE IF NOT EXISTS salience_decay_metrics (
	run_timestamp          BIGINT NOT NULL,
	items_processed        INTEGER NOT NULL,
	items_decayed          INTEGER NOT NULL,
	error_count            INTEGER NOT NULL,
	average_decay_amount   DOUBLE PRECISION NOT NULL,
	memory_entropy         DOUBLE PRECISION NOT NULL,
	environmental_context  TEXT NOT NULL,
	processing_duration_ms BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS chats_created_at_idx ON chats (created_at DESC);
CREATE INDEX IF NOT EXISTS chats_source_idx ON chats (source);
CREATE INDEX IF NOT EXISTS chats_kind_idx ON chats (kind);
CREATE INDEX IF NOT EXISTS chats_last_accessed_salient_idx ON chats (last_accessed_at) WHERE salience > 0.1;
CREATE INDEX IF NOT EXISTS facts_subject_idx ON facts (subject);
CREATE INDEX IF NOT EXISTS facts_predicate_idx ON facts (predicate);
CREATE INDEX IF NOT EXISTS facts_chat_id_idx ON facts (chat_id);
CREATE INDEX IF NOT EXISTS facts_last_accessed_salient_idx ON facts (last_accessed_at) WHERE salience > 0.1;
CREATE INDEX IF NOT EXISTS decay_metrics_run_ts_idx ON salience_decay_metrics (run_timestamp DESC);
CREATE INDEX IF NOT EXISTS chats_embedding_cosine_idx ON chats USING hnsw (embedding vector_cosine_ops);
`

// liveFactUniqueIndex enforces the "at most one live fact per
// (subject, predicate)" invariant at the database level as a backstop to
// the application-level close-then-insert logic in SaveFacts.
const liveFactUniqueIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS facts_live_subject_predicate_idx
	ON facts (subject, predicate) WHERE valid_to IS NULL;
`

func vectorColumnType(dim int) string {
	if dim <= 0 {
		return "vector"
	}
	return vectorTypeName(dim)
}
