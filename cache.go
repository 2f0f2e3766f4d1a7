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
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Prober is a single-shot name resolution capability. Implementations
// resolve the given hostname once and return the answers with their TTLs.
// The [resolver] subpackage provides implementations backed by
// [net.Resolver] and by raw DNS queries.
//
// [resolver]: https://pkg.go.dev/github.com/bufbuild/dnscache/resolver
type Prober interface {
	// ResolveOnce resolves the given hostname once, returning records of
	// the requested address family in resolver order.
	ResolveOnce(ctx context.Context, hostname string, family Family) ([]Record, error)
}

// Cache owns a set of entries, one per (hostname, family) pair, and
// serializes all access to them. It also drives one-shot resolution rounds
// through a [Prober], storing the results and running any callbacks that
// were registered on the refreshed entry.
//
// Cache never resolves anything on its own schedule. Callers decide when
// to call [Cache.Refresh], typically whenever [Cache.NextAddress] or
// [Cache.Addresses] comes back empty, meaning the cached results have
// expired.
//
// All methods are safe for concurrent use. The entries returned by
// [Cache.Track] and [Cache.Lookup] are shared with the cache: callers that
// invoke methods on them directly, rather than going through the cache,
// take on the entry's serialization requirement themselves.
type Cache struct {
	prober Prober
	group  singleflight.Group

	mu      sync.Mutex
	entries map[cacheKey]*Entry
}

type cacheKey struct {
	hostname string
	family   Family
}

func (k cacheKey) String() string {
	return k.hostname + "/" + strconv.Itoa(int(k.family))
}

// NewCache returns an empty cache that resolves through the given prober.
func NewCache(prober Prober) *Cache {
	return &Cache{
		prober:  prober,
		entries: make(map[cacheKey]*Entry),
	}
}

// Track returns the entry for the given hostname and family, creating a
// new unresolved entry if none is tracked yet.
func (c *Cache) Track(hostname string, family Family) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{hostname: hostname, family: family}
	entry, ok := c.entries[key]
	if !ok {
		entry = NewEntry(family)
		c.entries[key] = entry
	}
	return entry
}

// Lookup returns the tracked entry for the given hostname and family, or
// false if none exists.
func (c *Cache) Lookup(hostname string, family Family) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey{hostname: hostname, family: family}]
	return entry, ok
}

// Remove drops the tracked entry for the given hostname and family, if
// any. It is the cleanup hook for hostnames that are no longer of
// interest; entries are never removed by the cache itself.
func (c *Cache) Remove(hostname string, family Family) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{hostname: hostname, family: family})
}

// OnResolved registers cb to run after the next successful [Cache.Refresh]
// of the given hostname and family, creating the entry if it is not
// tracked yet. Callbacks run once and are discarded.
func (c *Cache) OnResolved(hostname string, family Family, cb func()) {
	entry := c.Track(hostname, family)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.AddAfterResolvedCallback(cb)
}

// Addresses returns a copy of the entry's current address list, or nil if
// the hostname is not tracked or the entry reads as stale. See
// [Entry.Addresses] for the staleness rule.
func (c *Cache) Addresses(hostname string, family Family) []ResolvedAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey{hostname: hostname, family: family}]
	if !ok {
		return nil
	}
	return entry.Addresses()
}

// NextAddress returns one address for the given hostname in round-robin
// order, or false if the hostname is not tracked or its entry reads as
// stale. See [Entry.NextAddress].
func (c *Cache) NextAddress(hostname string, family Family) (ResolvedAddress, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey{hostname: hostname, family: family}]
	if !ok {
		return ResolvedAddress{}, false
	}
	return entry.NextAddress()
}

// Refresh performs one resolution round for the given hostname and family:
// it marks the entry resolving, calls the prober, stores the results
// (replacing whatever was cached), marks the entry resolved, and then runs
// and clears the entry's registered callbacks. It returns the freshly
// stored addresses.
//
// Concurrent refreshes of the same (hostname, family) pair are coalesced:
// one prober call is made and every caller receives its result. On prober
// error the entry's addresses are left untouched, its status is reset to
// [StatusUnresolved], and the error is returned; registered callbacks are
// kept for the next attempt.
func (c *Cache) Refresh(ctx context.Context, hostname string, family Family) ([]ResolvedAddress, error) {
	key := cacheKey{hostname: hostname, family: family}
	result, err, _ := c.group.Do(key.String(), func() (any, error) {
		entry := c.Track(hostname, family)

		c.mu.Lock()
		entry.SetStatus(StatusResolving)
		c.mu.Unlock()

		records, err := c.prober.ResolveOnce(ctx, hostname, family)
		if err != nil {
			c.mu.Lock()
			entry.SetStatus(StatusUnresolved)
			c.mu.Unlock()
			return nil, err
		}

		c.mu.Lock()
		entry.SetAddresses(records)
		entry.SetStatus(StatusResolved)
		callbacks := entry.AfterResolvedCallbacks()
		entry.ClearAfterResolvedCallbacks()
		addresses := entry.Addresses()
		c.mu.Unlock()

		// Callbacks run outside the lock so they may call back into the
		// cache.
		for _, cb := range callbacks {
			cb()
		}
		return addresses, nil
	})
	if err != nil {
		return nil, err
	}
	addresses, _ := result.([]ResolvedAddress)
	return addresses, nil
}
