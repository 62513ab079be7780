// Package keyframe keeps opaque simulation snapshots indexed by search depth
// so a search can rewind to any previously visited tic without replaying
// from the start.
package keyframe

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Capturer is the simulation-side capability the store relies on. Restoring
// the bytes returned by CaptureState must reproduce every piece of state
// that affects future determinism, including the RNG index and tic counter.
type Capturer interface {
	CaptureState() ([]byte, error)
	RestoreState(data []byte) error
}

var (
	ErrInvalidSlot = errors.New("keyframe: slot out of range")
	ErrEmptySlot   = errors.New("keyframe: slot has no frame")
)

// Option configures a Store.
type Option func(*Store)

// WithCompression stores frames zstd-compressed.
func WithCompression() Option {
	return func(s *Store) {
		s.compress = true
	}
}

type frame struct {
	data  []byte
	valid bool
}

// Store holds one key frame per depth slot.
type Store struct {
	src      Capturer
	slots    []frame
	compress bool

	enc *zstd.Encoder
	dec *zstd.Decoder

	captures int
	restores int
}

// NewStore creates a store with the given number of slots.
func NewStore(src Capturer, slots int, opts ...Option) (*Store, error) {
	if src == nil {
		return nil, errors.New("keyframe: nil capturer")
	}
	if slots <= 0 {
		return nil, fmt.Errorf("keyframe: invalid slot count %d", slots)
	}

	s := &Store{
		src:   src,
		slots: make([]frame, slots),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("keyframe: zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			_ = enc.Close()
			return nil, fmt.Errorf("keyframe: zstd decoder: %w", err)
		}
		s.enc = enc
		s.dec = dec
	}

	return s, nil
}

// Capture snapshots the simulation into slot i, replacing what was there.
func (s *Store) Capture(i int) error {
	if i < 0 || i >= len(s.slots) {
		return ErrInvalidSlot
	}

	data, err := s.src.CaptureState()
	if err != nil {
		return fmt.Errorf("keyframe: capture slot %d: %w", i, err)
	}
	if s.compress {
		data = s.enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	}

	s.slots[i] = frame{data: data, valid: true}
	s.captures++
	return nil
}

// Restore rewinds the simulation to the frame in slot i. Deeper slots are
// left in place; the caller overwrites them as it steps forward again.
func (s *Store) Restore(i int) error {
	if i < 0 || i >= len(s.slots) {
		return ErrInvalidSlot
	}
	f := s.slots[i]
	if !f.valid {
		return ErrEmptySlot
	}

	data := f.data
	if s.compress {
		var err error
		data, err = s.dec.DecodeAll(f.data, nil)
		if err != nil {
			return fmt.Errorf("keyframe: decompress slot %d: %w", i, err)
		}
	}

	if err := s.src.RestoreState(data); err != nil {
		return fmt.Errorf("keyframe: restore slot %d: %w", i, err)
	}
	s.restores++
	return nil
}

// Has reports whether slot i holds a frame.
func (s *Store) Has(i int) bool {
	return i >= 0 && i < len(s.slots) && s.slots[i].valid
}

// Reset drops every frame.
func (s *Store) Reset() {
	for i := range s.slots {
		s.slots[i] = frame{}
	}
}

// Size returns the number of bytes held across all slots.
func (s *Store) Size() int {
	n := 0
	for _, f := range s.slots {
		n += len(f.data)
	}
	return n
}

// Stats returns capture and restore counts since creation.
func (s *Store) Stats() (captures, restores int) {
	return s.captures, s.restores
}

// Close releases the codec resources.
func (s *Store) Close() error {
	s.Reset()
	if s.dec != nil {
		s.dec.Close()
	}
	if s.enc != nil {
		return s.enc.Close()
	}
	return nil
}
