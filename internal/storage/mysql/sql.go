package mysql

// schemaSQL is applied statement by statement by EnsureIndexes.
var schemaSQL = []string{`
CREATE TABLE IF NOT EXISTS listings (
  id          CHAR(36)     NOT NULL,
  kind        VARCHAR(64)  NOT NULL,
  property_id VARCHAR(64)  NOT NULL,
  seq         BIGINT       NOT NULL DEFAULT 0,
  version     INT          NOT NULL DEFAULT 0,
  metadata    JSON         NOT NULL,
  attributes  JSON         NOT NULL,
  created_at  DATETIME(3)  NOT NULL,
  updated_at  DATETIME(3)  NULL,
  PRIMARY KEY (id),
  UNIQUE KEY uq_listings_kind_property_id (kind, property_id),
  KEY ix_listings_kind_seq (kind, seq),
  KEY ix_listings_kind_created (kind, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, `
CREATE TABLE IF NOT EXISTS id_sequences (
  prefix VARCHAR(32) NOT NULL,
  seq    BIGINT      NOT NULL,
  PRIMARY KEY (prefix)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// fallback ids are stored with seq 0, so MAX ignores them naturally
const maxSeqSQL = `SELECT COALESCE(MAX(seq), 0) FROM listings WHERE kind = ?`

const existsSQL = `SELECT 1 FROM listings WHERE kind = ? AND property_id = ? LIMIT 1`

const insertListingSQL = `
INSERT INTO listings
  (id, kind, property_id, seq, version, metadata, attributes, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

// identity columns (id, property_id, seq, version) are never updated
const replaceListingSQL = `
UPDATE listings
SET metadata = ?, attributes = ?, updated_at = ?
WHERE id = ? AND kind = ?
`

const deleteListingSQL = `DELETE FROM listings WHERE id = ? AND kind = ?`

const selectListingCols = `SELECT id, property_id, seq, version, metadata, attributes FROM listings `

const getListingSQL = selectListingCols + `WHERE id = ? AND kind = ?`

const getByPropertyIDSQL = selectListingCols + `WHERE property_id = ? AND kind = ?`

const countListingsSQL = `SELECT COUNT(*) FROM listings WHERE kind = ?`

const listListingsSQL = selectListingCols + `
WHERE kind = ?
ORDER BY created_at DESC, seq DESC
LIMIT ? OFFSET ?`

// -----------------------------------------------------------------------------
// SEQUENCES
// -----------------------------------------------------------------------------

// LAST_INSERT_ID(expr) makes the new value come back in the OK packet of
// this same statement, so the increment and the read are one atomic step.
const nextSeqSQL = `
INSERT INTO id_sequences (prefix, seq) VALUES (?, LAST_INSERT_ID(1))
ON DUPLICATE KEY UPDATE seq = LAST_INSERT_ID(seq + 1)
`

const currentSeqSQL = `SELECT seq FROM id_sequences WHERE prefix = ?`

const seedSeqSQL = `
INSERT INTO id_sequences (prefix, seq) VALUES (?, ?)
ON DUPLICATE KEY UPDATE seq = GREATEST(seq, VALUES(seq))
`
