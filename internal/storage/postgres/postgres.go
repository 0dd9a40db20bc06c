// Package postgres implements the storage contract on PostgreSQL: a
// key-value table through GORM for the blob operations and LISTEN/NOTIFY
// through lib/pq for the pub/sub side-channel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/harshithlanka3/chore-cycle-backend/internal/logger"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
)

// Record is one key-value row.
type Record struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value []byte `gorm:"column:value;not null"`
}

// TableName overrides the table name used by GORM.
func (Record) TableName() string {
	return "kv_records"
}

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	db  *gorm.DB
	dsn string
}

// Connect opens the database, verifies connectivity, and migrates the
// key-value table.
func Connect(dsn string, debug bool) (*Store, error) {
	log := logger.Database()

	mode := gormLogger.Silent
	if debug {
		mode = gormLogger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(mode),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_records: %w", err)
	}

	log.Info("Connected to PostgreSQL storage")
	return &Store{db: db, dsn: dsn}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get returns the value stored under key or storage.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var record Record
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return record.Value, nil
}

// Set upserts the value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	record := Record{Key: key, Value: value}
	err := s.db.WithContext(ctx).
		Exec("INSERT INTO kv_records (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value", record.Key, record.Value).
		Error
	if err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

// Delete removes key and reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&Record{}, "key = ?", key)
	if result.Error != nil {
		return false, fmt.Errorf("postgres delete %s: %w", key, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ScanPrefix returns every value whose key starts with prefix.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Where("key LIKE ?", likePrefix(prefix)).
		Order("key").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("postgres scan %s*: %w", prefix, err)
	}
	values := make([][]byte, 0, len(records))
	for _, record := range records {
		values = append(values, record.Value)
	}
	return values, nil
}

// Publish raises a NOTIFY with the payload on the given channel. Payloads
// are bounded by PostgreSQL's 8000-byte notification limit, which chore
// snapshots stay well under.
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	err := s.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", channel, string(payload)).Error
	if err != nil {
		return fmt.Errorf("postgres notify on %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a dedicated LISTEN connection and streams notification
// payloads in arrival order until ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	log := logger.Database()

	listener := pq.NewListener(s.dsn, listenerMinReconnect, listenerMaxReconnect,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				log.Warn("PostgreSQL listener event", "event", event, "error", err)
			}
		})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("postgres listen on %s: %w", channel, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case notification, ok := <-listener.Notify:
				if !ok {
					return
				}
				if notification == nil {
					// Reconnect marker; events sent while disconnected are lost.
					continue
				}
				select {
				case out <- []byte(notification.Extra):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// likePrefix escapes LIKE metacharacters so the prefix matches literally.
func likePrefix(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+2)
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '%', '_', '\\':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, prefix[i])
	}
	return string(escaped) + "%"
}
