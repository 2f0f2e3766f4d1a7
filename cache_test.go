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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proberFunc func(ctx context.Context, hostname string, family Family) ([]Record, error)

func (fn proberFunc) ResolveOnce(ctx context.Context, hostname string, family Family) ([]Record, error) {
	return fn(ctx, hostname, family)
}

func TestCacheTrackAndRemove(t *testing.T) {
	t.Parallel()

	cache := NewCache(proberFunc(func(context.Context, string, Family) ([]Record, error) {
		return nil, errors.New("unused")
	}))

	_, ok := cache.Lookup("foo.com", FamilyIPv4)
	assert.False(t, ok)

	entry := cache.Track("foo.com", FamilyIPv4)
	require.NotNil(t, entry)
	assert.Equal(t, StatusUnresolved, entry.Status())
	assert.Equal(t, FamilyIPv4, entry.Family())

	// Tracking again returns the same entry; a different family is a
	// different entry.
	assert.Same(t, entry, cache.Track("foo.com", FamilyIPv4))
	assert.NotSame(t, entry, cache.Track("foo.com", FamilyIPv6))

	found, ok := cache.Lookup("foo.com", FamilyIPv4)
	require.True(t, ok)
	assert.Same(t, entry, found)

	cache.Remove("foo.com", FamilyIPv4)
	_, ok = cache.Lookup("foo.com", FamilyIPv4)
	assert.False(t, ok)
	_, ok = cache.Lookup("foo.com", FamilyIPv6)
	assert.True(t, ok)
}

func TestCacheRefresh(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	cache := NewCache(proberFunc(func(_ context.Context, hostname string, family Family) ([]Record, error) {
		assert.Equal(t, "foo.com", hostname)
		assert.Equal(t, FamilyIPv4, family)
		return []Record{
			{Address: "1.1.1.1", TTL: time.Minute},
			{Address: "1.1.1.2", TTL: time.Minute},
		}, nil
	}))

	addresses, err := cache.Refresh(ctx, "foo.com", FamilyIPv4)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.Equal(t, "1.1.1.1", addresses[0].Address)
	assert.Equal(t, FamilyIPv4, addresses[0].Family)

	entry, ok := cache.Lookup("foo.com", FamilyIPv4)
	require.True(t, ok)
	assert.Equal(t, StatusResolved, entry.Status())

	address, ok := cache.NextAddress("foo.com", FamilyIPv4)
	require.True(t, ok)
	assert.Equal(t, "1.1.1.1", address.Address)
	address, ok = cache.NextAddress("foo.com", FamilyIPv4)
	require.True(t, ok)
	assert.Equal(t, "1.1.1.2", address.Address)

	assert.Len(t, cache.Addresses("foo.com", FamilyIPv4), 2)
}

func TestCacheRefreshError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	probeErr := errors.New("SERVFAIL")
	cache := NewCache(proberFunc(func(context.Context, string, Family) ([]Record, error) {
		return nil, probeErr
	}))

	var called bool
	cache.OnResolved("foo.com", FamilyIPv4, func() { called = true })

	_, err := cache.Refresh(ctx, "foo.com", FamilyIPv4)
	require.ErrorIs(t, err, probeErr)

	entry, ok := cache.Lookup("foo.com", FamilyIPv4)
	require.True(t, ok)
	assert.Equal(t, StatusUnresolved, entry.Status())
	assert.Empty(t, cache.Addresses("foo.com", FamilyIPv4))

	// Callbacks are kept for the next, possibly successful, attempt.
	assert.False(t, called)
	assert.Len(t, entry.AfterResolvedCallbacks(), 1)
}

func TestCacheRefreshRunsCallbacksOnce(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	cache := NewCache(proberFunc(func(context.Context, string, Family) ([]Record, error) {
		return []Record{{Address: "1.1.1.1", TTL: time.Minute}}, nil
	}))

	var calls atomic.Int32
	cache.OnResolved("foo.com", FamilyIPv4, func() { calls.Add(1) })
	cache.OnResolved("foo.com", FamilyIPv4, func() { calls.Add(1) })

	_, err := cache.Refresh(ctx, "foo.com", FamilyIPv4)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	// A second refresh must not run the already-drained callbacks again.
	_, err = cache.Refresh(ctx, "foo.com", FamilyIPv4)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheRefreshCoalesced(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var probes atomic.Int32
	cache := NewCache(proberFunc(func(context.Context, string, Family) ([]Record, error) {
		probes.Add(1)
		started <- struct{}{}
		<-release
		return []Record{{Address: "1.1.1.1", TTL: time.Minute}}, nil
	}))

	var wg sync.WaitGroup
	results := make([][]ResolvedAddress, 2)
	refresh := func(i int) {
		defer wg.Done()
		addresses, err := cache.Refresh(ctx, "foo.com", FamilyIPv4)
		assert.NoError(t, err)
		results[i] = addresses
	}

	wg.Add(1)
	go refresh(0)
	select {
	case <-started:
	case <-ctx.Done():
		t.Fatal("expected call to prober")
	}

	wg.Add(1)
	go refresh(1)
	// Wait a small amount of real time to make sure the second goroutine
	// has had a chance to join the in-flight refresh.
	time.Sleep(50 * time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), probes.Load())
	assert.Equal(t, results[0], results[1])
}
