// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// localOrigin admits logins whose origin falls in the accepted_ips list.
// It never rejects.
type localOrigin struct {
	accepted *netipx.IPSet
	logger   *slog.Logger
}

func newLocalOrigin(entries []string, logger *slog.Logger) *localOrigin {
	var b netipx.IPSetBuilder
	for _, entry := range entries {
		r, err := ParseOriginEntry(entry)
		if err != nil {
			logger.Warn("ignoring malformed accepted_ips entry", "entry", entry, "error", err)
			continue
		}
		b.AddRange(r)
	}

	set, err := b.IPSet()
	if err != nil {
		logger.Error("cannot build accepted address set", "error", err)
		set = nil
	}
	return &localOrigin{accepted: set, logger: logger}
}

// ParseOriginEntry parses one accepted_ips entry: a CIDR prefix
// ("10.0.0.0/24"), an inclusive range ("10.0.0.1-10.0.0.9") or a single
// address. IPv4-mapped IPv6 addresses are unmapped. A prefix with host bits
// set ("10.0.0.5/24") is malformed.
func ParseOriginEntry(entry string) (netipx.IPRange, error) {
	entry = strings.TrimSpace(entry)
	switch {
	case entry == "":
		return netipx.IPRange{}, fmt.Errorf("empty entry")
	case strings.Contains(entry, "/"):
		p, err := netip.ParsePrefix(entry)
		if err != nil {
			return netipx.IPRange{}, err
		}
		if p != p.Masked() {
			return netipx.IPRange{}, fmt.Errorf("prefix %q has host bits set", entry)
		}
		if p.Addr().Is4In6() && p.Bits() >= 96 {
			p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
		}
		return netipx.RangeOfPrefix(p), nil
	case strings.Contains(entry, "-"):
		r, err := netipx.ParseIPRange(entry)
		if err != nil {
			return netipx.IPRange{}, err
		}
		from, to := r.From().Unmap(), r.To().Unmap()
		r = netipx.IPRangeFrom(from, to)
		if !r.IsValid() {
			return netipx.IPRange{}, fmt.Errorf("invalid range %q", entry)
		}
		return r, nil
	default:
		a, err := netip.ParseAddr(entry)
		if err != nil {
			return netipx.IPRange{}, err
		}
		a = a.Unmap()
		return netipx.IPRangeFrom(a, a), nil
	}
}

func (l *localOrigin) decide(req *Request) Decision {
	if l.accepted == nil || req.Origin == "" {
		return Cancel
	}

	addr, err := netip.ParseAddr(req.Origin)
	if err != nil {
		l.logger.Debug("origin is not an address", "origin", req.Origin)
		return Cancel
	}
	addr = addr.Unmap().WithZone("")

	if l.accepted.Contains(addr) {
		l.logger.Info("origin is in accepted_ips", "origin", addr.String())
		return Accept
	}
	return Cancel
}
