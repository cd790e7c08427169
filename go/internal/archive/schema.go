package archive

// Schema creates the archive tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS auction_results (
    auction_id        TEXT PRIMARY KEY,
    organizer_id      TEXT        NOT NULL,
    end_reason        TEXT        NOT NULL,
    started_at        TIMESTAMPTZ NOT NULL,
    ended_at          TIMESTAMPTZ NOT NULL,
    leading_identity  TEXT,
    leading_bid       BIGINT,
    archived_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auction_participants (
    auction_id   TEXT    NOT NULL REFERENCES auction_results (auction_id) ON DELETE CASCADE,
    seat         INTEGER NOT NULL,
    identity     TEXT    NOT NULL,
    final_bid    BIGINT  NOT NULL,
    terms        JSONB,
    PRIMARY KEY (auction_id, seat)
);
`
