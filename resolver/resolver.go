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

package resolver

import (
	"context"
	"net"
	"time"

	"github.com/bufbuild/dnscache"
)

const defaultTTL = 5 * time.Minute

// ProberOption is an option used to customize the behavior of a prober
// created by [NewNetProber] or [NewDNSProber].
type ProberOption interface {
	apply(*proberOptions)
}

// WithDefaultTTL configures the TTL attached to records whose real TTL the
// prober cannot observe. This applies to every record produced by a
// [NewNetProber] prober, since net.Resolver does not expose record TTL
// values. A [NewDNSProber] prober reads TTLs off the wire and ignores this
// option. If not specified, a default of 5 minutes is used.
func WithDefaultTTL(ttl time.Duration) ProberOption {
	return proberOptionFunc(func(opts *proberOptions) {
		opts.defaultTTL = ttl
	})
}

// WithDialFunc configures the function a [NewDNSProber] prober uses to
// open the connection to its DNS server. If not specified, a default
// [net.Dialer] is used. This is mainly useful for tests and for routing
// queries through a proxy. Probers created by [NewNetProber] do not use
// this option; customize the dialing of their [net.Resolver] instead.
func WithDialFunc(dial func(ctx context.Context, network, address string) (net.Conn, error)) ProberOption {
	return proberOptionFunc(func(opts *proberOptions) {
		opts.dial = dial
	})
}

type proberOptionFunc func(*proberOptions)

func (f proberOptionFunc) apply(opts *proberOptions) {
	f(opts)
}

type proberOptions struct {
	defaultTTL time.Duration
	dial       func(ctx context.Context, network, address string) (net.Conn, error)
}

func makeProberOptions(options []ProberOption) proberOptions {
	opts := proberOptions{
		defaultTTL: defaultTTL,
		dial:       (&net.Dialer{}).DialContext,
	}
	for _, option := range options {
		option.apply(&opts)
	}
	return opts
}

// NewNetProber returns a prober that resolves through the given
// [net.Resolver]. Pass [net.DefaultResolver] to use the platform's normal
// resolution mechanism. Because net.Resolver does not expose record TTL
// values, every record is given the fixed TTL configured with
// [WithDefaultTTL].
func NewNetProber(res *net.Resolver, options ...ProberOption) dnscache.Prober {
	opts := makeProberOptions(options)
	return &netProber{
		resolver:   res,
		defaultTTL: opts.defaultTTL,
	}
}

type netProber struct {
	resolver   *net.Resolver
	defaultTTL time.Duration
}

func (p *netProber) ResolveOnce(
	ctx context.Context,
	hostname string,
	family dnscache.Family,
) ([]dnscache.Record, error) {
	addresses, err := p.resolver.LookupNetIP(ctx, family.Network(), hostname)
	if err != nil {
		return nil, err
	}
	records := make([]dnscache.Record, len(addresses))
	for i, address := range addresses {
		records[i] = dnscache.Record{
			// Unmap so IPv4 addresses come back in dotted-quad form even
			// when the resolver reports them as IPv4-in-IPv6.
			Address: address.Unmap().String(),
			TTL:     p.defaultTTL,
		}
	}
	return records, nil
}
