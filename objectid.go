package bson

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// ObjectID is a 12-byte identifier: a 4-byte big-endian creation time in
// seconds, a 5-byte random value and a 3-byte big-endian counter.
type ObjectID [12]byte

func (ObjectID) Type() Type { return TypeObjectID }
func (ObjectID) isValue()   {}

// ObjectIDFromBytes returns the ObjectID held in b, which must be exactly 12
// bytes long.
func ObjectIDFromBytes(b []byte) (ObjectID, error) {
	var id ObjectID
	if len(b) != len(id) {
		return id, constructionErrorf("object id", "need 12 bytes, got %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ObjectIDFromHex parses the 24-character hex form of an ObjectID.
func ObjectIDFromHex(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != 2*len(id) {
		return id, constructionErrorf("object id", "hex form must be 24 characters, got %d", len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, constructionErrorf("object id", "%v", err)
	}
	return id, nil
}

// Hex returns the 24-character lowercase hex form of id.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id ObjectID) String() string {
	return `ObjectID("` + id.Hex() + `")`
}

// Timestamp returns the creation time stored in id.
func (id ObjectID) Timestamp() time.Time {
	return time.Unix(int64(binary.BigEndian.Uint32(id[0:4])), 0).UTC()
}

// IsZero reports whether id is all zero bytes.
func (id ObjectID) IsZero() bool {
	return id == ObjectID{}
}

// An ObjectIDGenerator produces unique ObjectIDs. It is safe for
// concurrent use. Each generator draws its own random process component,
// so two generators never share a counter sequence.
type ObjectIDGenerator struct {
	now     func() time.Time
	process [5]byte
	counter atomic.Uint32
}

// NewObjectIDGenerator returns a generator seeded from crypto/rand. The
// now function supplies the timestamp component; nil means time.Now.
func NewObjectIDGenerator(now func() time.Time) (*ObjectIDGenerator, error) {
	if now == nil {
		now = time.Now
	}
	g := &ObjectIDGenerator{now: now}
	var seed [4]byte
	if _, err := rand.Read(g.process[:]); err != nil {
		return nil, fmt.Errorf("bson: seeding object id generator: %w", err)
	}
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("bson: seeding object id generator: %w", err)
	}
	g.counter.Store(binary.BigEndian.Uint32(seed[:]))
	return g, nil
}

// New returns the next ObjectID.
func (g *ObjectIDGenerator) New() ObjectID {
	var id ObjectID
	binary.BigEndian.PutUint32(id[0:4], uint32(g.now().Unix()))
	copy(id[4:9], g.process[:])
	n := g.counter.Add(1)
	id[9] = byte(n >> 16)
	id[10] = byte(n >> 8)
	id[11] = byte(n)
	return id
}
