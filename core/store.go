package core

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash"
	bolt "go.etcd.io/bbolt"
)

var (
	slotsBucket = []byte("slots")

	notesKey       = []byte("notes")
	notesDigestKey = []byte("notes.digest")
	userIDKey      = []byte("user_id")
)

// Store is the durable local slot for the note collection and the
// user identifier.
type Store struct {
	HomePath string
	db       *bolt.DB
}

func OpenStore(home string) (*Store, error) {
	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(filepath.Join(home, "notes.db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(slotsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	return &Store{
		home,
		db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// HasSnapshot reports whether a note collection was ever saved.
func (s *Store) HasSnapshot() (bool, error) {
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(slotsBucket).Get(notesKey) != nil
		return nil
	})

	return found, err
}

// Load returns the stored collection, or an empty one if nothing was saved.
func (s *Store) Load() ([]Note, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(slotsBucket).Get(notesKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	if data == nil {
		return []Note{}, nil
	}

	return decodeSnapshot(data)
}

// Save overwrites the stored collection. Saving an empty collection does
// nothing so that an unloaded session cannot clobber persisted notes.
func (s *Store) Save(notes []Note) error {
	if len(notes) == 0 {
		return nil
	}

	data, err := encodeSnapshot(notes)
	if err != nil {
		return err
	}

	digest := make([]byte, 8)
	binary.LittleEndian.PutUint64(digest, xxhash.Sum64(data))

	unchanged := false
	err = s.db.View(func(tx *bolt.Tx) error {
		slots := tx.Bucket(slotsBucket)
		unchanged = bytes.Equal(slots.Get(notesDigestKey), digest) && slots.Get(notesKey) != nil
		return nil
	})
	if err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	if unchanged {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		slots := tx.Bucket(slotsBucket)

		if err := slots.Put(notesKey, data); err != nil {
			return fmt.Errorf("save notes: %w", err)
		}

		return slots.Put(notesDigestKey, digest)
	})
}

// UserID returns the persisted scoping credential, or "" before registration.
func (s *Store) UserID() string {
	var id string

	_ = s.db.View(func(tx *bolt.Tx) error {
		id = string(tx.Bucket(slotsBucket).Get(userIDKey))
		return nil
	})

	return id
}

func (s *Store) SetUserID(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(slotsBucket).Put(userIDKey, []byte(id))
	})
}

func encodeSnapshot(notes []Note) ([]byte, error) {
	stored := make([]storedNote, len(notes))
	for i, n := range notes {
		stored[i] = toStored(n)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}

	return data, nil
}

func decodeSnapshot(data []byte) ([]Note, error) {
	var stored []storedNote

	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	notes := make([]Note, 0, len(stored))
	for _, sn := range stored {
		n, err := sn.toNote()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}

		notes = append(notes, n)
	}

	return notes, nil
}
