package bootstrap

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krishnaIndia/routing/internal/netx"
	"github.com/krishnaIndia/routing/internal/types"
)

// Connector is the part of a node bootstrap drives.
type Connector interface {
	ConnectTo(ctx context.Context, addr netx.Addr) (types.PublicPmid, error)
}

type Config struct {
	MaxConnectPerRound int
	PerAddrTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxConnectPerRound: 12,
		PerAddrTimeout:     2 * time.Second,
	}
}

// RunOnce gathers candidates from sources and dials them. It returns the
// identities that answered.
func RunOnce(ctx context.Context, c Connector, cfg Config, logger *logrus.Entry, sources ...PeerSource) []types.PublicPmid {
	cands := make([]netx.Addr, 0, 64)

	for _, s := range sources {
		addrs, err := s.Discover(ctx)
		if err != nil {
			logger.WithError(err).WithField("source", s.Name()).Warn("discover failed")
			continue
		}
		cands = append(cands, addrs...)
	}

	// Shuffle to avoid everyone hitting the same bootstrap in the same order.
	rand.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })

	seen := make(map[netx.Addr]struct{}, len(cands))
	var joined []types.PublicPmid
	attempts := 0

	for _, a := range cands {
		if attempts >= cfg.MaxConnectPerRound || ctx.Err() != nil {
			break
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		attempts++

		actx, cancel := context.WithTimeout(ctx, cfg.PerAddrTimeout)
		remote, err := c.ConnectTo(actx, a)
		cancel()
		if err != nil {
			logger.WithError(err).WithField("addr", a).Warn("bootstrap dial failed")
			continue
		}
		joined = append(joined, remote)
	}
	return joined
}
