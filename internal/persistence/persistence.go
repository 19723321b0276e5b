package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/markusressel/boiler2go/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketMinimumSetpoint = "minimumSetpoint"
	BucketDevice          = "device"
	BucketControl         = "control"
)

// KeyValueStore persists JSON encoded values in named buckets.
// Load returns os.ErrNotExist if the bucket or key does not exist.
type KeyValueStore interface {
	Init() error

	Load(bucket string, key string, out interface{}) error
	Save(bucket string, key string, value interface{}) error
	Delete(bucket string, key string) error
	Keys(bucket string) ([]string, error)
}

type boltStore struct {
	dbPath string
}

func NewBoltStore(dbPath string) KeyValueStore {
	return &boltStore{
		dbPath: dbPath,
	}
}

func (p boltStore) Init() (err error) {
	// get parent path of dbPath
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p boltStore) open() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Save stores the JSON representation of the given value
func (p boltStore) Save(bucket string, key string, value interface{}) error {
	db, err := p.open()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return b.Put([]byte(key), data)
	})
}

// Load decodes the stored value into out, corrupt entries are deleted
func (p boltStore) Load(bucket string, key string, out interface{}) error {
	db, err := p.open()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	corrupt := false
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return os.ErrNotExist
		}
		v := b.Get([]byte(key))
		if v == nil {
			return os.ErrNotExist
		}

		err := json.Unmarshal(v, out)
		if err != nil {
			// if we cannot read the saved data, delete it
			ui.Warning("Unable to unmarshal saved data for %s/%s: %v", bucket, key, err)
			corrupt = true
			err := b.Delete([]byte(key))
			if err != nil {
				ui.Error("Unable to delete corrupt data key %s/%s: %v", bucket, key, err)
			}
			return nil
		}

		return nil
	})
	if err == nil && corrupt {
		return os.ErrNotExist
	}
	return err
}

func (p boltStore) Delete(bucket string, key string) error {
	db, err := p.open()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			// no bucket yet
			return nil
		}
		if b.Get([]byte(key)) == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (p boltStore) Keys(bucket string) ([]string, error) {
	db, err := p.open()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var keys []string
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
