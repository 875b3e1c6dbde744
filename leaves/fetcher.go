// Package leaves reads the leaves of an on-chain merkle tree page by page.
package leaves

import (
	"context"
	"fmt"

	"github.com/kysee/zk-mixer/types"
	"github.com/rs/zerolog"
)

// PageSize is the number of leaves requested per call.
const PageSize = 511

// Source serves the leaves of tree treeID in the half-open window [from, to).
// An empty result means there are no leaves at or after from.
type Source interface {
	GetLeaves(ctx context.Context, treeID uint32, from, to uint64) ([]types.Leaf, error)
}

type Fetcher struct {
	src Source
	log zerolog.Logger
}

type Option func(*Fetcher)

func WithLogger(log zerolog.Logger) Option {
	return func(f *Fetcher) {
		f.log = log
	}
}

func NewFetcher(src Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		src: src,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchLeaves returns every leaf of the tree in index order. Pages are
// requested one after another until the first empty page. Nothing is cached:
// an error aborts the whole fetch and a new call starts again from index 0.
func (f *Fetcher) FetchLeaves(ctx context.Context, treeID uint32) ([]types.Leaf, error) {
	var ret []types.Leaf
	from, to := uint64(0), uint64(PageSize)
	for {
		page, err := f.src.GetLeaves(ctx, treeID, from, to)
		if err != nil {
			return nil, fmt.Errorf("get leaves of tree %d [%d, %d): %w", treeID, from, to, err)
		}
		if len(page) == 0 {
			break
		}
		f.log.Debug().Uint32("tree", treeID).Uint64("from", from).Int("count", len(page)).Msg("leaf page")
		ret = append(ret, page...)
		from = to
		to += PageSize
	}
	f.log.Debug().Uint32("tree", treeID).Int("leaves", len(ret)).Msg("fetched leaves")
	return ret, nil
}
