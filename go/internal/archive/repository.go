package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/sqlutil"
)

// Standing is one participant's final position in an ended auction
type Standing struct {
	Seat     int             `json:"seat"`
	Identity string          `json:"identity"`
	Bid      int64           `json:"bid"`
	Terms    json.RawMessage `json:"terms,omitempty"`
}

// Result is the archived outcome of an ended auction
type Result struct {
	AuctionID    string     `json:"auction_id"`
	OrganizerID  string     `json:"organizer_id"`
	Reason       string     `json:"reason"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      time.Time  `json:"ended_at"`
	Leading      *Standing  `json:"leading,omitempty"`
	Participants []Standing `json:"participants"`
}

// Repository writes auction results to Postgres
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveResult stores a result and its standings in one transaction. Saving
// the same auction twice is a no-op.
func (r *Repository) SaveResult(ctx context.Context, res Result) error {
	params := InsertAuctionResultParams{
		AuctionID:   res.AuctionID,
		OrganizerID: res.OrganizerID,
		EndReason:   res.Reason,
		StartedAt:   res.StartedAt,
		EndedAt:     res.EndedAt,
	}
	if res.Leading != nil {
		params.LeadingIdentity = sqlutil.ToSqlString(res.Leading.Identity)
		params.LeadingBid = sqlutil.ToSqlInt64(&res.Leading.Bid)
	}

	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) *Queries { return New(tx) }, func(q *Queries) error {
		n, err := q.InsertAuctionResult(ctx, params)
		if err != nil {
			return fmt.Errorf("insert auction result: %w", err)
		}
		if n == 0 {
			log.Debug().Str("auction_id", res.AuctionID).Msg("auction already archived")
			return nil
		}
		for _, s := range res.Participants {
			if err := q.InsertAuctionParticipant(ctx, InsertAuctionParticipantParams{
				AuctionID: res.AuctionID,
				Seat:      int32(s.Seat),
				Identity:  s.Identity,
				FinalBid:  s.Bid,
				Terms:     sqlutil.ToNullRawMessage(s.Terms),
			}); err != nil {
				return fmt.Errorf("insert participant %d: %w", s.Seat, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to archive auction %s: %w", res.AuctionID, err)
	}
	return nil
}

// ListResults returns the most recently ended auctions, without standings
func (r *Repository) ListResults(ctx context.Context, limit int32) ([]Result, error) {
	rows, err := New(r.db).ListAuctionResults(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list auction results: %w", err)
	}
	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		res := Result{
			AuctionID:   row.AuctionID,
			OrganizerID: row.OrganizerID,
			Reason:      row.EndReason,
			StartedAt:   row.StartedAt,
			EndedAt:     row.EndedAt,
		}
		if bid := sqlutil.FromSqlInt64(row.LeadingBid); bid != nil {
			res.Leading = &Standing{
				Identity: sqlutil.FromSqlString(row.LeadingIdentity, ""),
				Bid:      *bid,
			}
		}
		out = append(out, res)
	}
	return out, nil
}
