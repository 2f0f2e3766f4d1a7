// Copyright 2026 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dnscache

import (
	"slices"
	"time"

	"github.com/bufbuild/dnscache/internal"
)

// Status describes how far along an [Entry] is in its resolution
// lifecycle. The entry records whatever status it is given and performs no
// transition validation: the legality of a given sequence of statuses is
// the concern of the code driving resolution, not of the entry.
type Status int

const (
	// StatusUnresolved is the initial status of a new entry: no resolution
	// has completed for it yet.
	StatusUnresolved Status = iota

	// StatusResolving indicates that a resolution round is in flight.
	StatusResolving

	// StatusResolved indicates that a resolution round has completed and
	// its results were stored.
	StatusResolved
)

// String returns a short name for the status, for logs and test output.
func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusResolving:
		return "resolving"
	case StatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Family identifies an IP address family. Its numeric value is the IP
// version, so it can be stored and compared directly.
type Family int

const (
	// FamilyIPv4 is the IPv4 address family.
	FamilyIPv4 Family = 4

	// FamilyIPv6 is the IPv6 address family.
	FamilyIPv6 Family = 6
)

// Network returns the network string understood by [net.Resolver] lookup
// functions for this family: "ip4" or "ip6", or "ip" for an
// unrecognized family value.
func (f Family) Network() string {
	switch f {
	case FamilyIPv4:
		return "ip4"
	case FamilyIPv6:
		return "ip6"
	default:
		return "ip"
	}
}

// Record is one raw DNS answer as produced by a resolver: an IP address
// literal and the TTL the authority attached to it. Records are the input
// to [Entry.SetAddresses]; the entry enriches them into [ResolvedAddress]
// values when it stores them.
type Record struct {
	// Address is an IPv4 or IPv6 address literal.
	Address string

	// TTL is how long the answer remains valid, from the moment it was
	// received. A zero or negative TTL produces an address that is already
	// expired when stored.
	TTL time.Duration
}

// ResolvedAddress is one stored DNS answer, enriched with the metadata the
// cache computed when the answer was ingested. It is a plain value type:
// every read path hands out copies, so callers can never mutate the
// cache's internal state through a returned address.
type ResolvedAddress struct {
	// Address is the IPv4 or IPv6 address literal, copied verbatim from
	// the ingested record.
	Address string

	// TTL is the time-to-live reported by the resolver. It is never
	// recomputed after ingestion.
	TTL time.Duration

	// ExpireTime is the absolute time at which this answer expires. It is
	// computed exactly once, when the addresses were stored, as the
	// wall-clock time then current plus TTL.
	ExpireTime time.Time

	// Family is the address family of the entry that stored this address.
	Family Family
}

// Entry caches the most recent resolution results for one (hostname,
// family) pair. It tracks a resolution status, the resolved addresses with
// their expiration times, a round-robin cursor over those addresses, and a
// registry of callbacks to run after the next resolution completes.
//
// An entry is a passive store: it never performs resolution, never invokes
// the callbacks it holds, and never returns an error. Expired or missing
// data reads as empty, which callers should treat as "re-resolve now".
//
// Entry is not safe for concurrent use. Callers that share an entry across
// goroutines must serialize access externally; [Cache] does exactly that
// for the entries it tracks.
type Entry struct {
	clock     internal.Clock
	family    Family
	status    Status
	addresses []ResolvedAddress
	callbacks []func()
	next      int
}

// NewEntry returns an empty entry for the given address family. The family
// is fixed for the entry's lifetime and is stamped onto every address the
// entry stores. The new entry has status [StatusUnresolved], no addresses,
// and no callbacks.
func NewEntry(family Family) *Entry {
	return &Entry{
		clock:  internal.NewRealClock(),
		family: family,
	}
}

// Family returns the address family the entry was created with.
func (e *Entry) Family() Family {
	return e.family
}

// Status returns the current resolution status.
func (e *Entry) Status() Status {
	return e.status
}

// SetStatus records the given status. No validation is performed: the
// entry accepts any status in any order.
func (e *Entry) SetStatus(status Status) {
	e.status = status
}

// SetAddresses replaces the stored address list with the given records.
// Each record's expiration time is computed now, as the current time plus
// the record's TTL, and each stored address is stamped with the entry's
// family. The previous list is discarded wholesale (no merging), and the
// round-robin rotation restarts at the first record. The entry's status is
// not changed; callers that want to mark the entry resolved must call
// [Entry.SetStatus] separately.
func (e *Entry) SetAddresses(records []Record) {
	now := e.clock.Now()
	addresses := make([]ResolvedAddress, len(records))
	for i, record := range records {
		addresses[i] = ResolvedAddress{
			Address:    record.Address,
			TTL:        record.TTL,
			ExpireTime: now.Add(record.TTL),
			Family:     e.family,
		}
	}
	e.addresses = addresses
	e.next = 0
}

// Addresses returns a copy of the stored address list, in the order the
// addresses were stored. If the entry holds no addresses, or if ANY stored
// address has expired, it returns nil: a resolution batch shares one
// discovery time and is refreshed as a unit, so a partially expired batch
// reads as entirely stale rather than being filtered per address.
//
// The returned slice is independent of the entry's internal state;
// mutating it has no effect on subsequent reads.
func (e *Entry) Addresses() []ResolvedAddress {
	if e.stale(e.clock.Now()) {
		return nil
	}
	return slices.Clone(e.addresses)
}

// NextAddress returns one stored address, rotating through the list in
// round-robin order: over any N consecutive calls, where N is the list
// length and the list is not replaced in between, every address is
// returned exactly once. The first call after [Entry.SetAddresses] returns
// the first stored record.
//
// The second return value is false when there is nothing to return, under
// the same staleness rule as [Entry.Addresses]: an empty list, or any
// expired address, makes the whole entry read as empty.
func (e *Entry) NextAddress() (ResolvedAddress, bool) {
	if e.stale(e.clock.Now()) {
		return ResolvedAddress{}, false
	}
	address := e.addresses[e.next]
	e.next = (e.next + 1) % len(e.addresses)
	return address, true
}

// AddAfterResolvedCallback appends cb to the entry's callback list. The
// entry only stores callbacks; it never invokes them. The code that drives
// resolution is expected to retrieve and run them after a resolution
// round completes, then clear the list.
func (e *Entry) AddAfterResolvedCallback(cb func()) {
	e.callbacks = append(e.callbacks, cb)
}

// AfterResolvedCallbacks returns the registered callbacks in registration
// order. The returned slice is the entry's own list, not a copy; it is
// only valid until the next AddAfterResolvedCallback or
// ClearAfterResolvedCallbacks call.
func (e *Entry) AfterResolvedCallbacks() []func() {
	return e.callbacks
}

// ClearAfterResolvedCallbacks empties the callback list. Callers typically
// invoke this immediately after running the callbacks returned by
// [Entry.AfterResolvedCallbacks].
func (e *Entry) ClearAfterResolvedCallbacks() {
	e.callbacks = nil
}

// stale reports whether the entry's address list should read as empty: it
// holds nothing, or at least one stored address has expired (ExpireTime at
// or before now).
func (e *Entry) stale(now time.Time) bool {
	if len(e.addresses) == 0 {
		return true
	}
	for _, address := range e.addresses {
		if !address.ExpireTime.After(now) {
			return true
		}
	}
	return false
}
