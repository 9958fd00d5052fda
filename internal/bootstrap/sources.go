package bootstrap

import (
	"context"
	"strings"

	"github.com/krishnaIndia/routing/internal/netx"
)

type PeerSource interface {
	// Discover returns candidate peers to connect to.
	Discover(ctx context.Context) ([]netx.Addr, error)
	Name() string
}

type StaticSource struct {
	Addrs []netx.Addr
	Label string
}

// ParseStatic builds a source from host:port strings, skipping blanks.
func ParseStatic(label string, addrs []string) StaticSource {
	s := StaticSource{Label: label}
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			s.Addrs = append(s.Addrs, netx.Addr(a))
		}
	}
	return s
}

func (s StaticSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "static"
}

func (s StaticSource) Discover(ctx context.Context) ([]netx.Addr, error) {
	return append([]netx.Addr(nil), s.Addrs...), nil
}
