package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/common"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

const routerQueueTable = "router_queue"

// sqliteTimeLayout is fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var routerQueueColumns = []string{
	"id", "serial_number", "default_ssid", "default_pass", "sim_id", "target_ssid", "status", "created_at",
}

type RouterQueueRepository interface {
	Save(ctx context.Context, rec entity.RouterRecord) (entity.RouterRecord, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]entity.RouterRecord, error)
}

type routerQueueRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRouterQueueRepository(db *DB, logger *slog.Logger) RouterQueueRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &routerQueueRepository{db: db, logger: logger}
}

// Save inserts a finished record. ID, Status and CreatedAt are filled in when empty.
func (r *routerQueueRepository) Save(ctx context.Context, rec entity.RouterRecord) (entity.RouterRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = string(constants.RecordStatusPending)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query, args := entsql.Dialect(r.db.Dialect).
		Insert(routerQueueTable).
		Columns(routerQueueColumns...).
		Values(
			rec.ID.String(), rec.SerialNumber, rec.DefaultSSID, rec.DefaultPassword,
			rec.SimID, rec.TargetSSID, rec.Status, r.timeArg(rec.CreatedAt),
		).
		Query()

	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("router_queue insert failed", "record_id", rec.ID, "error", err)
		return entity.RouterRecord{}, errors.Join(common.ErrDatabase, err)
	}
	r.logger.Info("router_queue record saved", "record_id", rec.ID, "serial_number", rec.SerialNumber, "status", rec.Status)
	return rec, nil
}

// ListByStatus returns records with the given status, oldest first.
func (r *routerQueueRepository) ListByStatus(ctx context.Context, status string, limit int) ([]entity.RouterRecord, error) {
	b := entsql.Dialect(r.db.Dialect)
	sel := b.Select(routerQueueColumns...).
		From(b.Table(routerQueueTable)).
		Where(entsql.EQ("status", status)).
		OrderBy("created_at", "id")
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("router_queue list failed", "status", status, "error", err)
		return nil, errors.Join(common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.RouterRecord
	for rows.Next() {
		var (
			rec       entity.RouterRecord
			id        string
			createdAt any
		)
		if err := rows.Scan(&id, &rec.SerialNumber, &rec.DefaultSSID, &rec.DefaultPassword,
			&rec.SimID, &rec.TargetSSID, &rec.Status, &createdAt); err != nil {
			return nil, errors.Join(common.ErrDatabase, err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("router_queue: bad id %q: %w", id, err)
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("router_queue: bad created_at for %s: %w", id, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(common.ErrDatabase, err)
	}
	return out, nil
}

// timeArg stores timestamps natively on Postgres and as RFC 3339 text on SQLite.
func (r *routerQueueRepository) timeArg(t time.Time) any {
	if r.db.Dialect == dialect.Postgres {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
}
