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
	"encoding/binary"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/bufbuild/dnscache"
	"golang.org/x/net/dns/dnsmessage"
)

// NewDNSProber returns a prober that sends queries directly to the DNS
// server at the given "host:port" address, over a stream connection with
// standard two-byte length framing. Unlike [NewNetProber], it decodes the
// responses itself and therefore reports the real TTL of each record.
//
// Queries ask for A records for [dnscache.FamilyIPv4] and AAAA records for
// [dnscache.FamilyIPv6]. Other record types in the response, such as CNAME
// records in a chain, are skipped.
func NewDNSProber(server string, options ...ProberOption) dnscache.Prober {
	opts := makeProberOptions(options)
	return &dnsProber{
		server: server,
		dial:   opts.dial,
	}
}

type dnsProber struct {
	server string
	dial   func(ctx context.Context, network, address string) (net.Conn, error)
}

func (p *dnsProber) ResolveOnce(
	ctx context.Context,
	hostname string,
	family dnscache.Family,
) ([]dnscache.Record, error) {
	queryType := dnsmessage.TypeA
	if family == dnscache.FamilyIPv6 {
		queryType = dnsmessage.TypeAAAA
	}
	if !strings.HasSuffix(hostname, ".") {
		hostname += "."
	}
	name, err := dnsmessage.NewName(hostname)
	if err != nil {
		return nil, fmt.Errorf("invalid hostname %q: %w", hostname, err)
	}
	query := dnsmessage.Message{
		Header: dnsmessage.Header{
			ID:               uint16(rand.Uint32()), //nolint:gosec // query IDs need not be crypto-strong
			RecursionDesired: true,
		},
		Questions: []dnsmessage.Question{
			{
				Name:  name,
				Type:  queryType,
				Class: dnsmessage.ClassINET,
			},
		},
	}
	response, err := p.roundTrip(ctx, &query)
	if err != nil {
		return nil, fmt.Errorf("dns query for %q: %w", hostname, err)
	}
	if response.ID != query.ID {
		return nil, fmt.Errorf("dns query for %q: response ID %d does not match query ID %d",
			hostname, response.ID, query.ID)
	}
	if response.RCode != dnsmessage.RCodeSuccess {
		return nil, fmt.Errorf("dns query for %q: server returned %v", hostname, response.RCode)
	}
	var records []dnscache.Record
	for _, answer := range response.Answers {
		var address netip.Addr
		switch body := answer.Body.(type) {
		case *dnsmessage.AResource:
			address = netip.AddrFrom4(body.A)
		case *dnsmessage.AAAAResource:
			address = netip.AddrFrom16(body.AAAA)
		default:
			continue
		}
		records = append(records, dnscache.Record{
			Address: address.String(),
			TTL:     time.Duration(answer.Header.TTL) * time.Second,
		})
	}
	return records, nil
}

func (p *dnsProber) roundTrip(ctx context.Context, query *dnsmessage.Message) (*dnsmessage.Message, error) {
	queryData, err := query.Pack()
	if err != nil {
		return nil, err
	}
	conn, err := p.dial(ctx, "tcp", p.server)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = conn.Close()
	}()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(conn, binary.BigEndian, uint16(len(queryData))); err != nil { //nolint:gosec // DNS messages fit in uint16
		return nil, err
	}
	if _, err := conn.Write(queryData); err != nil {
		return nil, err
	}
	var responseLength uint16
	if err := binary.Read(conn, binary.BigEndian, &responseLength); err != nil {
		return nil, err
	}
	responseData := make([]byte, responseLength)
	if _, err := io.ReadFull(conn, responseData); err != nil {
		return nil, err
	}
	response := &dnsmessage.Message{}
	if err := response.Unpack(responseData); err != nil {
		return nil, err
	}
	return response, nil
}
