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

// Package dnscache provides an in-memory cache for DNS address-resolution
// results, intended for clients that periodically re-resolve a hostname and
// spread outbound connections across the resolved addresses.
//
// The central type is [Entry], which stores the most recent resolution for
// one (hostname, address family) pair. Each stored address carries the TTL
// reported by the resolver and an absolute expiration time computed when
// the addresses were stored. [Entry.NextAddress] hands out one address per
// call in round-robin order, and once any address in the stored set has
// expired the entire entry reads as empty, signaling the caller to
// re-resolve. An entry never resolves anything itself and never raises an
// error: stale or missing data simply yields empty results.
//
// Entry performs no internal locking. It is intended to be owned by a
// single goroutine, or accessed through [Cache], which serializes access
// to the entries it tracks. Cache also drives one-shot resolution rounds
// through a caller-supplied [Prober]; implementations backed by
// [net.Resolver] and by a raw DNS query (which preserves real per-record
// TTLs) live in the [resolver] subpackage. Cache never schedules
// resolution on its own: callers decide when to call [Cache.Refresh],
// typically whenever a read comes back empty.
//
// [resolver]: https://pkg.go.dev/github.com/bufbuild/dnscache/resolver
package dnscache
