package store

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/xelth-com/geoattend/internal/models"
	"gorm.io/gorm"
)

type pendingKey struct{}

// pending holds changes made inside an explicit transaction until it commits
type pending struct {
	mu      sync.Mutex
	changes []Change
}

func withPending(ctx context.Context) (context.Context, *pending) {
	p := &pending{}
	return context.WithValue(ctx, pendingKey{}, p), p
}

func (p *pending) add(changes []Change) {
	p.mu.Lock()
	p.changes = append(p.changes, changes...)
	p.mu.Unlock()
}

func (p *pending) flush(feed *Feed) {
	p.mu.Lock()
	changes := p.changes
	p.changes = nil
	p.mu.Unlock()
	feed.Publish(changes...)
}

// RegisterFeedHooks publishes committed creates, updates and deletes of
// FeedEntity models on feed. The callbacks run after GORM's own transaction
// has committed; writes inside an explicit transaction are collected on the
// context and published by the repository once that transaction commits.
func RegisterFeedHooks(db *gorm.DB, feed *Feed) error {
	publish := func(kind ChangeKind) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			if tx.Error != nil || tx.Statement.Schema == nil || tx.RowsAffected == 0 {
				return
			}

			entities := feedEntities(tx)
			if len(entities) == 0 {
				log.Printf("⏭️ FeedHook: Skipping %s (not FeedEntity)", tx.Statement.Schema.Table)
				return
			}

			changes := make([]Change, 0, len(entities))
			for _, e := range entities {
				// Skip if the id is empty (updates without a loaded model)
				if e.FeedID() == "" {
					continue
				}
				changes = append(changes, Change{
					Collection: e.FeedCollection(),
					Kind:       kind,
					ID:         e.FeedID(),
					Key:        e.FeedKey(),
				})
			}

			if p, ok := tx.Statement.Context.Value(pendingKey{}).(*pending); ok {
				p.add(changes)
				return
			}
			feed.Publish(changes...)
		}
	}

	cb := db.Callback()
	if err := cb.Create().After("gorm:commit_or_rollback_transaction").
		Register("geoattend:feed_create", publish(ChildAdded)); err != nil {
		return fmt.Errorf("register create hook: %w", err)
	}
	if err := cb.Update().After("gorm:commit_or_rollback_transaction").
		Register("geoattend:feed_update", publish(ChildChanged)); err != nil {
		return fmt.Errorf("register update hook: %w", err)
	}
	if err := cb.Delete().After("gorm:commit_or_rollback_transaction").
		Register("geoattend:feed_delete", publish(ChildRemoved)); err != nil {
		return fmt.Errorf("register delete hook: %w", err)
	}

	log.Println("🪝 FeedHook: create/update/delete callbacks registered")
	return nil
}

// feedEntities finds the written models, either a single one or a batch
func feedEntities(tx *gorm.DB) []models.FeedEntity {
	if tx.Statement.Model != nil {
		if e, ok := tx.Statement.Model.(models.FeedEntity); ok {
			return []models.FeedEntity{e}
		}
	}

	val := tx.Statement.ReflectValue
	if !val.IsValid() {
		return nil
	}
	for val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]models.FeedEntity, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			if e := asFeedEntity(val.Index(i)); e != nil {
				out = append(out, e)
			}
		}
		return out
	case reflect.Struct:
		if e := asFeedEntity(val); e != nil {
			return []models.FeedEntity{e}
		}
	}
	return nil
}

func asFeedEntity(val reflect.Value) models.FeedEntity {
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.CanAddr() {
		if e, ok := val.Addr().Interface().(models.FeedEntity); ok {
			return e
		}
	}
	if val.CanInterface() {
		if e, ok := val.Interface().(models.FeedEntity); ok {
			return e
		}
	}
	return nil
}
