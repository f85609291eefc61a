package pgstore

// schema is applied on Open. Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS didchain_keys (
	identity_id TEXT  NOT NULL,
	location    TEXT  NOT NULL,
	key_type    TEXT  NOT NULL,
	fragment    TEXT  NOT NULL,
	key_hash    TEXT  NOT NULL,
	private_key BYTEA NOT NULL,
	PRIMARY KEY (identity_id, location)
);

CREATE TABLE IF NOT EXISTS didchain_documents (
	identity_id TEXT        PRIMARY KEY,
	document    JSONB       NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS didchain_chain_states (
	identity_id                 TEXT PRIMARY KEY,
	last_integration_message_id TEXT NOT NULL,
	last_diff_message_id        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS didchain_index (
	did         TEXT PRIMARY KEY,
	identity_id TEXT NOT NULL UNIQUE
);
`
