package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"vehicle-auction/internal/auctionerrors"
	model "vehicle-auction/internal/models"
)

// MySQL server error numbers the store translates into domain errors
const (
	errDuplicateEntry   = 1062
	errLockWaitTimeout  = 1205
	errDeadlock         = 1213
	errForeignKeyParent = 1452
)

var auctionColumns = []string{
	"id", "seller_id", "title", "make", "model", "year", "body_type", "description",
	"starting_price", "current_price", "reserve_price", "end_time",
	"is_paused", "is_closed", "is_sold", "sold_to_user_id", "created_at",
}

var bidColumns = []string{"id", "auction_id", "bidder_id", "amount", "placed_at"}

var winnerColumns = []string{"id", "auction_id", "user_id", "final_price", "created_at"}

// sqlRunner is satisfied by both *sql.DB and *sql.Tx
type sqlRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// MySQLRepo is the relational implementation of AuctionDB and WatchlistDB.
// Bid acceptance relies on SELECT ... FOR UPDATE on the auction row, so the
// auction row is the serialization point per auction.
type MySQLRepo struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

// NewMySQLRepo wraps an open MySQL connection pool
func NewMySQLRepo(db *sql.DB) *MySQLRepo {
	return &MySQLRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// WithTx runs fn inside a database transaction
func (r *MySQLRepo) WithTx(ctx context.Context, fn func(tx AuctionTx) error) (err error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapMySQLError(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&mysqlTx{run: sqlTx, sb: r.sb}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", mapMySQLError(err))
	}
	return nil
}

// CreateAuction inserts a new auction row
func (r *MySQLRepo) CreateAuction(ctx context.Context, a model.Auction) error {
	query, args, err := r.sb.
		Insert("auctions").
		Columns(auctionColumns...).
		Values(
			a.AuctionID, a.SellerID, a.Title, a.Make, a.Model, a.Year, a.BodyType, a.Description,
			a.StartingPrice, a.CurrentPrice, nullDecimal(a.ReservePrice), a.EndTime.UTC(),
			a.IsPaused, a.IsClosed, a.IsSold, nullString(a.SoldToUserID), a.CreatedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create auction: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create auction %s: %w", a.AuctionID, mapMySQLError(err))
	}
	return nil
}

// GetAuction returns a single auction
func (r *MySQLRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	return getAuction(ctx, r.db, r.sb, auctionID, false)
}

// ListAuctions returns auctions matching the filter, newest first
func (r *MySQLRepo) ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error) {
	q := r.sb.Select(auctionColumns...).From("auctions").OrderBy("created_at DESC", "id DESC")

	switch filter.Status {
	case model.StatusOpen, model.StatusActive:
		q = q.Where(squirrel.Eq{"is_closed": false, "is_sold": false, "is_paused": false}).
			Where(squirrel.Gt{"end_time": filter.Now.UTC()})
	case model.StatusPaused:
		q = q.Where(squirrel.Eq{"is_closed": false, "is_sold": false, "is_paused": true})
	case model.StatusEnded:
		q = q.Where(squirrel.Eq{"is_closed": false, "is_sold": false, "is_paused": false}).
			Where(squirrel.LtOrEq{"end_time": filter.Now.UTC()})
	case model.StatusClosed:
		q = q.Where(squirrel.Eq{"is_closed": true})
	case model.StatusSold:
		q = q.Where(squirrel.Eq{"is_sold": true})
	}
	if filter.SellerID != "" {
		q = q.Where(squirrel.Eq{"seller_id": filter.SellerID})
	}
	if filter.Search != "" {
		like := "%" + likeEscaper.Replace(filter.Search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.Like{"title": like},
			squirrel.Like{"make": like},
			squirrel.Like{"model": like},
		})
	}
	return queryAuctions(ctx, r.db, q)
}

// ListDueAuctionIDs returns unclosed auctions whose deadline is at or before now
func (r *MySQLRepo) ListDueAuctionIDs(ctx context.Context, now time.Time) ([]string, error) {
	query, args, err := r.sb.
		Select("id").
		From("auctions").
		Where(squirrel.Eq{"is_closed": false}).
		Where(squirrel.LtOrEq{"end_time": now.UTC()}).
		OrderBy("end_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due auctions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list due auctions: %w", mapMySQLError(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due auction: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteAuction removes the auction and its dependents in one transaction
func (r *MySQLRepo) DeleteAuction(ctx context.Context, auctionID string) (err error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapMySQLError(err))
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	for _, table := range []string{"watchlist", "winners", "bids"} {
		query, args, buildErr := r.sb.Delete(table).Where(squirrel.Eq{"auction_id": auctionID}).ToSql()
		if buildErr != nil {
			return fmt.Errorf("build delete %s: %w", table, buildErr)
		}
		if _, err = sqlTx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete %s of auction %s: %w", table, auctionID, mapMySQLError(err))
		}
	}

	query, args, err := r.sb.Delete("auctions").Where(squirrel.Eq{"id": auctionID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete auction: %w", err)
	}
	res, err := sqlTx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete auction %s: %w", auctionID, mapMySQLError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("delete auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", mapMySQLError(err))
	}
	return nil
}

// GetBidsByAuction returns all bids for an auction, newest first
func (r *MySQLRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if _, err := r.GetAuction(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("get bids: %w", err)
	}
	return r.ListBids(ctx, model.BidFilter{AuctionID: auctionID})
}

// CountBids returns how many bids an auction holds
func (r *MySQLRepo) CountBids(ctx context.Context, auctionID string) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From("bids").Where(squirrel.Eq{"auction_id": auctionID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count bids: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bids for auction %s: %w", auctionID, mapMySQLError(err))
	}
	return n, nil
}

// ListBids returns bids matching the filter, newest first
func (r *MySQLRepo) ListBids(ctx context.Context, filter model.BidFilter) ([]model.Bid, error) {
	q := r.sb.Select(bidColumns...).From("bids").OrderBy("placed_at DESC", "seq DESC")
	if filter.AuctionID != "" {
		q = q.Where(squirrel.Eq{"auction_id": filter.AuctionID})
	}
	if filter.BidderID != "" {
		q = q.Where(squirrel.Eq{"bidder_id": filter.BidderID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bids: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", mapMySQLError(err))
	}
	defer rows.Close()

	bids := []model.Bid{}
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// GetAuctionsByBidder returns every auction the user has bid on
func (r *MySQLRepo) GetAuctionsByBidder(ctx context.Context, userID string) ([]model.Auction, error) {
	q := r.sb.Select(auctionColumns...).
		From("auctions").
		Where(squirrel.Expr("id IN (SELECT DISTINCT auction_id FROM bids WHERE bidder_id = ?)", userID)).
		OrderBy("created_at DESC", "id DESC")
	return queryAuctions(ctx, r.db, q)
}

// GetWinner returns the winner record of a sold auction
func (r *MySQLRepo) GetWinner(ctx context.Context, auctionID string) (model.Winner, error) {
	return getWinner(ctx, r.db, r.sb, auctionID)
}

// Ping verifies the connection pool
func (r *MySQLRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AddToWatchlist records that a user follows an auction
func (r *MySQLRepo) AddToWatchlist(ctx context.Context, userID, auctionID string, addedAt time.Time) error {
	query, args, err := r.sb.
		Insert("watchlist").
		Columns("user_id", "auction_id", "added_at").
		Values(userID, auctionID, addedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build add watchlist: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == errDuplicateEntry {
			return fmt.Errorf("watch auction %s: %w", auctionID, auctionerrors.ErrAlreadyWatching)
		}
		return fmt.Errorf("watch auction %s: %w", auctionID, mapMySQLError(err))
	}
	return nil
}

// RemoveFromWatchlist drops an auction from a user's watchlist
func (r *MySQLRepo) RemoveFromWatchlist(ctx context.Context, userID, auctionID string) error {
	query, args, err := r.sb.
		Delete("watchlist").
		Where(squirrel.Eq{"user_id": userID, "auction_id": auctionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove watchlist: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("unwatch auction %s: %w", auctionID, mapMySQLError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unwatch auction %s: %w", auctionID, auctionerrors.ErrNotWatching)
	}
	return nil
}

// GetWatchlist returns a user's watched auctions, most recently added first
func (r *MySQLRepo) GetWatchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error) {
	cols := []string{"w.user_id", "w.added_at"}
	for _, c := range auctionColumns {
		cols = append(cols, "a."+c)
	}
	query, args, err := r.sb.
		Select(cols...).
		From("watchlist w").
		Join("auctions a ON a.id = w.auction_id").
		Where(squirrel.Eq{"w.user_id": userID}).
		OrderBy("w.added_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build watchlist: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get watchlist: %w", mapMySQLError(err))
	}
	defer rows.Close()

	entries := []model.WatchlistEntry{}
	for rows.Next() {
		var e model.WatchlistEntry
		a, err := scanAuction(rows, &e.UserID, &e.AddedAt)
		if err != nil {
			return nil, fmt.Errorf("scan watchlist entry: %w", err)
		}
		e.AuctionID = a.AuctionID
		e.Auction = a
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// IsWatching reports whether the user follows the auction
func (r *MySQLRepo) IsWatching(ctx context.Context, userID, auctionID string) (bool, error) {
	query, args, err := r.sb.
		Select("COUNT(*)").
		From("watchlist").
		Where(squirrel.Eq{"user_id": userID, "auction_id": auctionID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build is watching: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("is watching: %w", mapMySQLError(err))
	}
	return n > 0, nil
}

// mysqlTx implements AuctionTx on top of *sql.Tx
type mysqlTx struct {
	run sqlRunner
	sb  squirrel.StatementBuilderType
}

func (tx *mysqlTx) LockAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	return getAuction(ctx, tx.run, tx.sb, auctionID, true)
}

func (tx *mysqlTx) SaveAuctionState(ctx context.Context, a model.Auction) error {
	query, args, err := tx.sb.
		Update("auctions").
		Set("current_price", a.CurrentPrice).
		Set("end_time", a.EndTime.UTC()).
		Set("is_paused", a.IsPaused).
		Set("is_closed", a.IsClosed).
		Set("is_sold", a.IsSold).
		Set("sold_to_user_id", nullString(a.SoldToUserID)).
		Where(squirrel.Eq{"id": a.AuctionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save auction: %w", err)
	}
	if _, err := tx.run.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save auction %s: %w", a.AuctionID, mapMySQLError(err))
	}
	return nil
}

func (tx *mysqlTx) SaveListing(ctx context.Context, a model.Auction) error {
	query, args, err := tx.sb.
		Update("auctions").
		Set("title", a.Title).
		Set("make", a.Make).
		Set("model", a.Model).
		Set("year", a.Year).
		Set("body_type", a.BodyType).
		Set("description", a.Description).
		Set("starting_price", a.StartingPrice).
		Set("current_price", a.CurrentPrice).
		Set("reserve_price", nullDecimal(a.ReservePrice)).
		Where(squirrel.Eq{"id": a.AuctionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save listing: %w", err)
	}
	if _, err := tx.run.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save listing %s: %w", a.AuctionID, mapMySQLError(err))
	}
	return nil
}

func (tx *mysqlTx) InsertBid(ctx context.Context, b model.Bid) error {
	query, args, err := tx.sb.
		Insert("bids").
		Columns(bidColumns...).
		Values(b.BidID, b.AuctionID, b.BidderID, b.Amount, b.PlacedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert bid: %w", err)
	}
	if _, err := tx.run.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record bid for auction %s: %w", b.AuctionID, mapMySQLError(err))
	}
	return nil
}

func (tx *mysqlTx) GetBid(ctx context.Context, bidID string) (model.Bid, error) {
	query, args, err := tx.sb.Select(bidColumns...).From("bids").Where(squirrel.Eq{"id": bidID}).ToSql()
	if err != nil {
		return model.Bid{}, fmt.Errorf("build get bid: %w", err)
	}
	b, err := scanBid(tx.run.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, mapMySQLError(err))
	}
	return b, nil
}

func (tx *mysqlTx) DeleteBid(ctx context.Context, bidID string) error {
	query, args, err := tx.sb.Delete("bids").Where(squirrel.Eq{"id": bidID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete bid: %w", err)
	}
	res, err := tx.run.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete bid %s: %w", bidID, mapMySQLError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
	}
	return nil
}

func (tx *mysqlTx) LeadingBid(ctx context.Context, auctionID string) (model.Bid, error) {
	query, args, err := tx.sb.
		Select(bidColumns...).
		From("bids").
		Where(squirrel.Eq{"auction_id": auctionID}).
		OrderBy("amount DESC", "placed_at ASC", "seq ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return model.Bid{}, fmt.Errorf("build leading bid: %w", err)
	}
	b, err := scanBid(tx.run.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("leading bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("leading bid for auction %s: %w", auctionID, mapMySQLError(err))
	}
	return b, nil
}

func (tx *mysqlTx) GetWinner(ctx context.Context, auctionID string) (model.Winner, error) {
	return getWinner(ctx, tx.run, tx.sb, auctionID)
}

func (tx *mysqlTx) InsertWinner(ctx context.Context, w model.Winner) error {
	query, args, err := tx.sb.
		Insert("winners").
		Columns(winnerColumns...).
		Values(w.WinnerID, w.AuctionID, w.UserID, w.FinalPrice, w.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert winner: %w", err)
	}
	if _, err := tx.run.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert winner for auction %s: %w", w.AuctionID, mapMySQLError(err))
	}
	return nil
}

func getAuction(ctx context.Context, run sqlRunner, sb squirrel.StatementBuilderType, auctionID string, forUpdate bool) (model.Auction, error) {
	q := sb.Select(auctionColumns...).From("auctions").Where(squirrel.Eq{"id": auctionID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.Auction{}, fmt.Errorf("build get auction: %w", err)
	}
	a, err := scanAuction(run.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, mapMySQLError(err))
	}
	return a, nil
}

func getWinner(ctx context.Context, run sqlRunner, sb squirrel.StatementBuilderType, auctionID string) (model.Winner, error) {
	query, args, err := sb.Select(winnerColumns...).From("winners").Where(squirrel.Eq{"auction_id": auctionID}).ToSql()
	if err != nil {
		return model.Winner{}, fmt.Errorf("build get winner: %w", err)
	}
	var w model.Winner
	err = run.QueryRowContext(ctx, query, args...).Scan(&w.WinnerID, &w.AuctionID, &w.UserID, &w.FinalPrice, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, auctionerrors.ErrWinnerNotFound)
	}
	if err != nil {
		return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, mapMySQLError(err))
	}
	return w, nil
}

func queryAuctions(ctx context.Context, run sqlRunner, q squirrel.SelectBuilder) ([]model.Auction, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list auctions: %w", err)
	}
	rows, err := run.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", mapMySQLError(err))
	}
	defer rows.Close()

	auctions := []model.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

// scanAuction reads auctionColumns, preceded by any extra leading destinations
func scanAuction(s rowScanner, leading ...any) (model.Auction, error) {
	var (
		a       model.Auction
		reserve decimal.NullDecimal
		soldTo  sql.NullString
	)
	dest := append(leading,
		&a.AuctionID, &a.SellerID, &a.Title, &a.Make, &a.Model, &a.Year, &a.BodyType, &a.Description,
		&a.StartingPrice, &a.CurrentPrice, &reserve, &a.EndTime,
		&a.IsPaused, &a.IsClosed, &a.IsSold, &soldTo, &a.CreatedAt,
	)
	if err := s.Scan(dest...); err != nil {
		return model.Auction{}, err
	}
	if reserve.Valid {
		a.ReservePrice = &reserve.Decimal
	}
	if soldTo.Valid {
		a.SoldToUserID = &soldTo.String
	}
	return a, nil
}

func scanBid(s rowScanner) (model.Bid, error) {
	var b model.Bid
	err := s.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.PlacedAt)
	return b, err
}

// mapMySQLError turns lock contention and constraint violations into domain errors
func mapMySQLError(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDeadlock, errLockWaitTimeout:
		return fmt.Errorf("%w: %s", auctionerrors.ErrConflict, me.Message)
	case errDuplicateEntry:
		return fmt.Errorf("%w: %s", auctionerrors.ErrConflict, me.Message)
	case errForeignKeyParent:
		return fmt.Errorf("%w: %s", auctionerrors.ErrAuctionNotFound, me.Message)
	}
	return err
}

// likeEscaper makes user text match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
