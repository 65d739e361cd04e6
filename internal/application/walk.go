package application

import (
	"context"

	"txfeed/internal/domain"
)

// PageFetcher is satisfied by *Pager.
type PageFetcher interface {
	GetPage(ctx context.Context, req PageRequest) (domain.Page, error)
}

// Walk follows the cursor chain from req, handing each page to fn, until the
// cursor runs out or maxPages pages were visited (0 means no limit). It
// returns the number of pages visited.
func Walk(ctx context.Context, fetcher PageFetcher, req PageRequest, maxPages int, fn func(domain.Page) error) (int, error) {
	visited := 0
	seen := make(map[string]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return visited, err
		}
		page, err := fetcher.GetPage(ctx, req)
		if err != nil {
			return visited, err
		}
		visited++
		if err := fn(page); err != nil {
			return visited, err
		}
		if page.Cursor == "" {
			return visited, nil
		}
		if maxPages > 0 && visited >= maxPages {
			return visited, nil
		}
		if _, ok := seen[page.Cursor]; ok {
			return visited, nil
		}
		seen[page.Cursor] = struct{}{}
		req.Cursor = page.Cursor
	}
}
