package probe

import (
	"errors"
	"fmt"
)

// VerifyChannel checks the pages walked for one channel: page numbers run
// 1..n, totalCount and totalPages never change, no id repeats, every page but
// the last is full, hasMore is set exactly on the pages before the last and
// the items add up to totalCount. Violations are joined under
// ErrInconsistent.
func VerifyChannel(name string, pages []Page, pageSize int) error {
	if len(pages) == 0 {
		return fmt.Errorf("%w: %s: no pages", ErrInconsistent, name)
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: "+format, append([]any{name}, args...)...))
	}

	total := pages[0].TotalCount
	wantPages := (total + pageSize - 1) / pageSize
	if pages[0].TotalPages != wantPages {
		fail("totalPages %d, want %d for %d items", pages[0].TotalPages, wantPages, total)
	}

	seen := make(map[string]int, total)
	count := 0
	for i, p := range pages {
		n := i + 1
		if p.CurrentPage != n {
			fail("page %d reports currentPage %d", n, p.CurrentPage)
		}
		if p.TotalCount != total {
			fail("totalCount changed from %d to %d on page %d", total, p.TotalCount, n)
		}
		if p.TotalPages != pages[0].TotalPages {
			fail("totalPages changed from %d to %d on page %d", pages[0].TotalPages, p.TotalPages, n)
		}
		last := i == len(pages)-1
		if p.HasMore == last {
			fail("page %d hasMore=%t", n, p.HasMore)
		}
		if !last && len(p.Items) != pageSize {
			fail("gap: page %d holds %d items, want %d", n, len(p.Items), pageSize)
		}
		for _, it := range p.Items {
			if prev, ok := seen[it.ID]; ok {
				fail("duplicate id %q on pages %d and %d", it.ID, prev, n)
				continue
			}
			seen[it.ID] = n
		}
		count += len(p.Items)
	}
	if count != total {
		fail("walked %d items, totalCount is %d", count, total)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInconsistent, errors.Join(errs...))
}
