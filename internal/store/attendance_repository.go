package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/dailykey"
	"github.com/xelth-com/geoattend/internal/models"
	"gorm.io/gorm"
)

const newestFirst = "check_in_date_time DESC, seq DESC, id DESC"

// AttendanceRepository stores check-ins in PostgreSQL
type AttendanceRepository struct {
	db   *gorm.DB
	feed *Feed
	opts Options
}

// NewAttendanceRepository creates a repository. db must have the feed hooks
// registered (see RegisterFeedHooks) for subscriptions to see writes.
func NewAttendanceRepository(db *gorm.DB, feed *Feed, opts Options) *AttendanceRepository {
	return &AttendanceRepository{db: db, feed: feed, opts: opts.withDefaults()}
}

// WriteCheckIn inserts an open record. The worker's day is serialized with a
// transaction-scoped advisory lock, and the partial unique index on open
// daily keys rejects whatever slips past it.
func (r *AttendanceRepository) WriteCheckIn(ctx context.Context, workerID, worksite string, now time.Time) (string, error) {
	if workerID == "" || worksite == "" {
		return "", errors.New("worker id and worksite are required")
	}
	key := dailykey.Build(workerID, now, r.opts.Location)
	row := models.CheckIn{
		UserID:          workerID,
		Worksite:        worksite,
		CheckInDateTime: now.UTC(),
		CheckInKey:      key,
	}

	ctx, p := withPending(ctx)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
			return fmt.Errorf("lock daily key: %w", err)
		}
		var open int64
		if err := tx.Model(&models.CheckIn{}).
			Where("daily_key = ? AND check_out_date_time IS NULL", key).
			Count(&open).Error; err != nil {
			return fmt.Errorf("count open records: %w", err)
		}
		if open > 0 {
			return attendance.ErrOpenRecordExists
		}
		return tx.Create(&row).Error
	})
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "", attendance.ErrOpenRecordExists
	case errors.Is(err, attendance.ErrOpenRecordExists):
		return "", err
	case err != nil:
		return "", fmt.Errorf("write check-in: %w", err)
	}

	p.flush(r.feed)
	return row.ID, nil
}

// WriteCheckOut closes an open record. Closing a record that is already
// closed or no longer exists changes nothing and reports Closed=false.
func (r *AttendanceRepository) WriteCheckOut(ctx context.Context, recordID string, now time.Time) (attendance.CloseResult, error) {
	if _, err := uuid.Parse(recordID); err != nil {
		log.Printf("⚠️  Store: check-out of unknown record %q ignored", recordID)
		return attendance.CloseResult{Closed: false}, nil
	}

	var row models.CheckIn
	if err := r.db.WithContext(ctx).First(&row, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️  Store: check-out of missing record %s ignored", recordID)
			return attendance.CloseResult{Closed: false}, nil
		}
		return attendance.CloseResult{}, fmt.Errorf("load check-in: %w", err)
	}
	if row.CheckOutDateTime != nil {
		return attendance.CloseResult{Closed: false}, nil
	}

	res := r.db.WithContext(ctx).Model(&row).
		Where("check_out_date_time IS NULL").
		Update("check_out_date_time", now.UTC())
	if res.Error != nil {
		return attendance.CloseResult{}, fmt.Errorf("write check-out: %w", res.Error)
	}
	return attendance.CloseResult{Closed: res.RowsAffected > 0}, nil
}

// SubscribeToday follows the daily key of the day the subscription starts
func (r *AttendanceRepository) SubscribeToday(workerID string, onUpdate func(attendance.TodaySnapshot)) (func(), error) {
	if onUpdate == nil {
		return nil, errors.New("nil snapshot callback")
	}
	key := dailykey.Build(workerID, r.opts.Now(), r.opts.Location)
	filter := func(c Change) bool { return c.Collection == CheckIns && c.Key == key }
	return r.feed.subscribe(filter, func(Change) {
		records, err := r.query(context.Background(), func(db *gorm.DB) *gorm.DB {
			return db.Where("daily_key = ?", key)
		})
		if err != nil {
			log.Printf("🔴 Store: today's records for %s unavailable: %v", key, err)
			return
		}
		onUpdate(attendance.DeriveToday(key, records))
	}, true), nil
}

func (r *AttendanceRepository) SubscribeAll(onUpdate func([]attendance.Record)) (func(), error) {
	if onUpdate == nil {
		return nil, errors.New("nil records callback")
	}
	filter := func(c Change) bool { return c.Collection == CheckIns }
	return r.feed.subscribe(filter, func(Change) {
		records, err := r.List(context.Background())
		if err != nil {
			log.Printf("🔴 Store: attendance records unavailable: %v", err)
			return
		}
		onUpdate(records)
	}, true), nil
}

func (r *AttendanceRepository) List(ctx context.Context) ([]attendance.Record, error) {
	return r.query(ctx, nil)
}

func (r *AttendanceRepository) ListRange(ctx context.Context, from, to time.Time) ([]attendance.Record, error) {
	return r.query(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("check_in_date_time >= ? AND check_in_date_time < ?", from.UTC(), to.UTC())
	})
}

func (r *AttendanceRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.CheckIn{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count check-ins: %w", err)
	}
	return n, nil
}

func (r *AttendanceRepository) Insert(ctx context.Context, records []attendance.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]models.CheckIn, len(records))
	for i, rec := range records {
		rows[i] = fromRecord(rec, r.opts.Location)
	}

	ctx, p := withPending(ctx)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, 200).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert check-ins: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert check-ins: %w", err)
	}
	p.flush(r.feed)
	return nil
}

func (r *AttendanceRepository) query(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]attendance.Record, error) {
	db := r.db.WithContext(ctx).Model(&models.CheckIn{})
	if scope != nil {
		db = scope(db)
	}
	var rows []models.CheckIn
	if err := db.Order(newestFirst).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query check-ins: %w", err)
	}
	out := make([]attendance.Record, len(rows))
	for i, row := range rows {
		out[i] = toRecord(row)
	}
	return out, nil
}

func toRecord(row models.CheckIn) attendance.Record {
	return attendance.Record{
		ID:           row.ID,
		WorkerID:     row.UserID,
		Worksite:     row.Worksite,
		CheckInTime:  row.CheckInDateTime,
		CheckOutTime: row.CheckOutDateTime,
		DailyKey:     row.CheckInKey,
		Seq:          row.Seq,
	}
}

func fromRecord(rec attendance.Record, loc *time.Location) models.CheckIn {
	row := models.CheckIn{
		ID:              rec.ID,
		UserID:          rec.WorkerID,
		Worksite:        rec.Worksite,
		CheckInDateTime: rec.CheckInTime.UTC(),
		CheckInKey:      rec.DailyKey,
	}
	if rec.CheckOutTime != nil {
		out := rec.CheckOutTime.UTC()
		row.CheckOutDateTime = &out
	}
	if row.CheckInKey == "" {
		row.CheckInKey = dailykey.Build(rec.WorkerID, rec.CheckInTime, loc)
	}
	return row
}
