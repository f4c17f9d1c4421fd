/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package rng implements the deterministic pseudo-random stream shared by
// both peers. Two independent processes seeded with the same material draw
// an identical sequence without ever exchanging a value at runtime.
package rng

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	log "github.com/sirupsen/logrus"
)

// Stream is a deterministic pseudo-random sequence. The zero value is not
// usable; construct one with NewStream or NewEpisodeStream.
//
// The underlying generator is math/rand/v2's PCG: a fixed, documented
// algorithm with byte-exact 128-bit seeding, so two processes built from the
// same binary and given the same seed material produce the same stream.
// No third-party deterministic PRNG is wired here (see DESIGN.md): none of
// the available libraries targets reproducible, non-cryptographic sequences,
// and PCG is the standard-library primitive built for exactly this.
type Stream struct {
	r     *rand.Rand
	label string
	draws uint64
}

// NewStream seeds a stream deterministically from arbitrary seed material.
// The material is hashed down to the 128 bits PCG requires with FNV-1a,
// chosen over crypto hashes because this is not a security boundary: the
// only requirement is that identical input bytes produce identical output
// on every platform, which FNV already guarantees and does so cheaply.
func NewStream(label string, seedMaterial ...[]byte) *Stream {
	hi, lo := fnv128(seedMaterial)
	return &Stream{
		r:     rand.New(rand.NewPCG(hi, lo)),
		label: label,
	}
}

// NewEpisodeStream reseeds a per-episode shared stream from
// (session seed, episode index): both peers must derive this stream
// identically for every episode regardless of what the previous episode
// consumed from it.
func NewEpisodeStream(sessionSeed string, episodeIndex int) *Stream {
	idx := make([]byte, 8)
	binary.BigEndian.PutUint64(idx, uint64(episodeIndex))
	return NewStream(fmt.Sprintf("episode[%d]", episodeIndex), []byte(sessionSeed), idx)
}

// NewSelectionStream seeds the episode-selection stream once per process
// from the session seed alone, consumed once per episode, in order, to pick
// the episode type.
func NewSelectionStream(sessionSeed string) *Stream {
	return NewStream("selection", []byte(sessionSeed))
}

// NextFloat returns the next value in [0,1). This is the single call unit
// every other primitive is defined in terms of.
func (s *Stream) NextFloat() float64 {
	s.draws++
	v := s.r.Float64()
	log.Debugf("rng[%s]: draw #%d -> %v", s.label, s.draws, v)
	return v
}

// NextInt returns an integer in [lo, hi), defined as
// lo + floor(NextFloat() * (hi - lo)).
func (s *Stream) NextInt(lo, hi int) int {
	if hi <= lo {
		panic(fmt.Sprintf("rng: NextInt range invalid: lo=%d hi=%d", lo, hi))
	}
	return lo + int(s.NextFloat()*float64(hi-lo))
}

// NextFloatRange returns a float64 in [lo, hi).
func (s *Stream) NextFloatRange(lo, hi float64) float64 {
	return lo + s.NextFloat()*(hi-lo)
}

// Choice picks arr[NextInt(0, len(arr))]. Panics on an empty slice, which is
// always a caller bug (an empty filtered catalogue is handled one layer up).
func Choice[T any](s *Stream, arr []T) T {
	return arr[s.NextInt(0, len(arr))]
}

// Draws reports how many values have been consumed from this stream so far.
// Used by tests asserting lockstep consumption between independent peers.
func (s *Stream) Draws() uint64 {
	return s.draws
}

// fnv128 hashes the concatenation of the given byte slices into two 64-bit
// words via FNV-1a, run twice with different offset basis constants so the
// two halves are independent.
func fnv128(parts [][]byte) (uint64, uint64) {
	const (
		offset1 uint64 = 14695981039346656037
		offset2 uint64 = 2166136261 ^ 0xffffffffffffffff
		prime   uint64 = 1099511628211
	)
	h1, h2 := offset1, offset2
	for _, p := range parts {
		for _, b := range p {
			h1 ^= uint64(b)
			h1 *= prime
			h2 ^= uint64(b)
			h2 *= prime
		}
		// separator byte so ("ab","c") and ("a","bc") hash differently
		h1 ^= 0xff
		h1 *= prime
		h2 ^= 0xff
		h2 *= prime
	}
	return h1, h2
}
