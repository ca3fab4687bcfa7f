package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-storefront-backend/internal/domain"
)

// SQL is a Store backed by the kv_entries table. Apply runs inside a single
// database transaction.
type SQL struct {
	db *gorm.DB
}

// NewSQL wraps db. The kv_entries table must already be migrated.
func NewSQL(db *gorm.DB) *SQL { return &SQL{db: db} }

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var row domain.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Value, nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	return upsert(s.db.WithContext(ctx), key, value)
}

func (s *SQL) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&domain.KVEntry{}).Error
}

func (s *SQL) Apply(ctx context.Context, b *Batch) error {
	ops := b.Ops()
	if len(ops) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if op.Value == nil {
				if err := tx.Where("key = ?", op.Key).Delete(&domain.KVEntry{}).Error; err != nil {
					return err
				}
				continue
			}
			if err := upsert(tx, op.Key, op.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQL) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	q := s.db.WithContext(ctx).Model(&domain.KVEntry{})
	if prefix != "" {
		q = q.Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}
	if err := q.Order("key").Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	// SQLite LIKE folds ASCII case.
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func upsert(db *gorm.DB, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	row := domain.KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
