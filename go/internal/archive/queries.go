package archive

import (
	"context"
	"database/sql"
	"time"

	"github.com/sqlc-dev/pqtype"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type AuctionResultRow struct {
	AuctionID       string
	OrganizerID     string
	EndReason       string
	StartedAt       time.Time
	EndedAt         time.Time
	LeadingIdentity sql.NullString
	LeadingBid      sql.NullInt64
	ArchivedAt      time.Time
}

const insertAuctionResult = `-- name: InsertAuctionResult :exec
INSERT INTO auction_results (
    auction_id, organizer_id, end_reason, started_at, ended_at, leading_identity, leading_bid
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (auction_id) DO NOTHING
`

type InsertAuctionResultParams struct {
	AuctionID       string
	OrganizerID     string
	EndReason       string
	StartedAt       time.Time
	EndedAt         time.Time
	LeadingIdentity sql.NullString
	LeadingBid      sql.NullInt64
}

func (q *Queries) InsertAuctionResult(ctx context.Context, arg InsertAuctionResultParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertAuctionResult,
		arg.AuctionID,
		arg.OrganizerID,
		arg.EndReason,
		arg.StartedAt,
		arg.EndedAt,
		arg.LeadingIdentity,
		arg.LeadingBid,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertAuctionParticipant = `-- name: InsertAuctionParticipant :exec
INSERT INTO auction_participants (
    auction_id, seat, identity, final_bid, terms
) VALUES ($1, $2, $3, $4, $5)
`

type InsertAuctionParticipantParams struct {
	AuctionID string
	Seat      int32
	Identity  string
	FinalBid  int64
	Terms     pqtype.NullRawMessage
}

func (q *Queries) InsertAuctionParticipant(ctx context.Context, arg InsertAuctionParticipantParams) error {
	_, err := q.db.ExecContext(ctx, insertAuctionParticipant,
		arg.AuctionID,
		arg.Seat,
		arg.Identity,
		arg.FinalBid,
		arg.Terms,
	)
	return err
}

const listAuctionResults = `-- name: ListAuctionResults :many
SELECT auction_id, organizer_id, end_reason, started_at, ended_at, leading_identity, leading_bid, archived_at
FROM auction_results
ORDER BY ended_at DESC
LIMIT $1
`

func (q *Queries) ListAuctionResults(ctx context.Context, limit int32) ([]AuctionResultRow, error) {
	rows, err := q.db.QueryContext(ctx, listAuctionResults, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuctionResultRow
	for rows.Next() {
		var i AuctionResultRow
		if err := rows.Scan(
			&i.AuctionID,
			&i.OrganizerID,
			&i.EndReason,
			&i.StartedAt,
			&i.EndedAt,
			&i.LeadingIdentity,
			&i.LeadingBid,
			&i.ArchivedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
