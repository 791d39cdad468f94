// Package resolve turns operator input into scan ready addresses.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/CZERTAINLY/osfp/internal/model"
)

var ErrNoAddress = errors.New("no address found")

// ResolutionError is returned for input which can't be turned into an
// address. Input is the original, untrimmed operator input.
type ResolutionError struct {
	Input string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("invalid target %q: %v", e.Input, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Lookuper is satisfied by *net.Resolver
type Lookuper interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

type Resolver struct {
	lookup Lookuper
}

func New() Resolver {
	return Resolver{lookup: net.DefaultResolver}
}

// WithLookuper replaces the name lookup, mostly for tests.
func (r Resolver) WithLookuper(l Lookuper) Resolver {
	r.lookup = l
	return r
}

// Resolve validates a numeric address or resolves a hostname. IPv4
// addresses are preferred for hostnames with multiple records.
// Empty input is an error, callers are expected to treat it as the end
// of the target list before calling Resolve.
func (r Resolver) Resolve(ctx context.Context, raw string) (model.Target, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return "", &ResolutionError{Input: raw, Err: errors.New("empty input")}
	}

	if addr, err := netip.ParseAddr(input); err == nil {
		return model.Target(addr.Unmap().String()), nil
	}

	if !validHostname(input) {
		return "", &ResolutionError{Input: raw, Err: errors.New("malformed hostname")}
	}

	lookup := r.lookup
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	addrs, err := lookup.LookupNetIP(ctx, "ip", input)
	if err != nil {
		return "", &ResolutionError{Input: raw, Err: err}
	}
	addr, ok := pick(addrs)
	if !ok {
		return "", &ResolutionError{Input: raw, Err: ErrNoAddress}
	}
	return model.Target(addr.String()), nil
}

func pick(addrs []netip.Addr) (netip.Addr, bool) {
	var first netip.Addr
	for _, a := range addrs {
		a = a.Unmap()
		if !a.IsValid() {
			continue
		}
		if a.Is4() {
			return a, true
		}
		if !first.IsValid() {
			first = a
		}
	}
	return first, first.IsValid()
}

// validHostname rejects input which can't be a DNS name, so it never
// reaches the resolver (or nmap's argument list).
func validHostname(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return false
			}
		}
	}
	return true
}
