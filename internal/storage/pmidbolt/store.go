package pmidbolt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/krishnaIndia/routing/internal/codec"
	"github.com/krishnaIndia/routing/internal/name"
	"github.com/krishnaIndia/routing/internal/types"
)

const (
	bMeta  = "meta"
	bPeers = "peers"
	kSelf  = "self"

	defaultTO = 2 * time.Second
)

var (
	ErrNoIdentity = errors.New("pmidbolt: no identity stored")
	ErrCorrupt    = errors.New("pmidbolt: corrupt record")
)

// Store keeps this node's Pmid and the PublicPmids peers announced to it.
// Values are stored in the wire encoding.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a BoltDB database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("pmidbolt: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: defaultTO})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{bMeta, bPeers} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// PutSelf replaces the stored identity.
func (s *Store) PutSelf(p *types.Pmid) error {
	if err := p.Validate(); err != nil {
		return err
	}
	val, err := codec.Encode(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bMeta)).Put([]byte(kSelf), val)
	})
}

func (s *Store) Self() (*types.Pmid, error) {
	var raw []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		// bolt values are only valid inside the tx
		if v := tx.Bucket([]byte(bMeta)).Get([]byte(kSelf)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNoIdentity
	}
	p, err := codec.Decode[types.Pmid](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: self: %w", ErrCorrupt, err)
	}
	return &p, nil
}

// PutPeer records an announced identity under its name. It reports whether
// the name was new.
func (s *Store) PutPeer(pub types.PublicPmid) (bool, error) {
	val, err := codec.Encode(pub)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = s.db.Update(func(tx *bolt.Tx) error {
		peers := tx.Bucket([]byte(bPeers))
		inserted = peers.Get(pub.Name[:]) == nil
		return peers.Put(pub.Name[:], val)
	})
	return inserted, err
}

func (s *Store) Peer(n name.NameType) (types.PublicPmid, bool, error) {
	var raw []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bPeers)).Get(n[:]); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return types.PublicPmid{}, false, err
	}
	if raw == nil {
		return types.PublicPmid{}, false, nil
	}
	pub, err := codec.Decode[types.PublicPmid](raw)
	if err != nil {
		return types.PublicPmid{}, false, fmt.Errorf("%w: peer %s: %w", ErrCorrupt, n, err)
	}
	return pub, true, nil
}

// Peers calls fn for every stored peer in name order. Corrupt records are
// skipped so one bad value does not hide the rest.
func (s *Store) Peers(fn func(types.PublicPmid) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bPeers)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			pub, err := codec.Decode[types.PublicPmid](v)
			if err != nil {
				continue
			}
			if err := fn(pub); err != nil {
				return err
			}
		}
		return nil
	})
}

// PeerNames lists the names of all stored peers.
func (s *Store) PeerNames() ([]name.NameType, error) {
	var out []name.NameType
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bPeers)).ForEach(func(k, _ []byte) error {
			n, err := name.FromBytes(k)
			if err != nil {
				return nil
			}
			out = append(out, n)
			return nil
		})
	})
	return out, err
}

func (s *Store) RemovePeer(n name.NameType) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bPeers)).Delete(n[:])
	})
}
