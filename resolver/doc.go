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

// Package resolver provides implementations of the dnscache.Prober
// interface, the single-shot name resolution capability that feeds a
// dnscache.Cache.
//
// [NewNetProber] resolves through a [net.Resolver]. This is the simplest
// option and uses whatever resolution mechanism the platform provides, but
// net.Resolver does not expose record TTL values, so every record carries
// a fixed default TTL instead.
//
// [NewDNSProber] sends DNS queries directly to a configured server and
// decodes the responses itself, so the true per-record TTLs reach the
// cache. Use it when TTL fidelity matters, such as when upstream operators
// rely on short TTLs to drain traffic.
package resolver
