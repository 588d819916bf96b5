package board

import "fmt"

// SpreadCount is the number of two-page spreads needed to show pageCount pages.
func SpreadCount(pageCount int) int {
	if pageCount <= 0 {
		return 0
	}
	return (pageCount + 1) / 2
}

// SpreadPages returns the indices of the left and (if any) right page of a
// spread, in left-to-right order.
func SpreadPages(spread, pageCount int) []int {
	left := spread * 2
	if spread < 0 || left >= pageCount {
		return nil
	}
	if left+1 < pageCount {
		return []int{left, left + 1}
	}
	return []int{left}
}

// Spread returns the pages shown in the given spread.
func (d *Document) Spread(index int) []*Page {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var pages []*Page
	for _, i := range SpreadPages(index, len(d.Pages)) {
		pages = append(pages, d.Pages[i])
	}
	return pages
}

// Browser is the spread navigation cursor.
type Browser struct {
	Index int
	Count int
}

func NewBrowser(pageCount int) *Browser {
	return &Browser{Count: SpreadCount(pageCount)}
}

func (b *Browser) HasPrev() bool { return b.Index > 0 }
func (b *Browser) HasNext() bool { return b.Index < b.Count-1 }

// Prev moves one spread back; it reports false at the first spread.
func (b *Browser) Prev() bool {
	if !b.HasPrev() {
		return false
	}
	b.Index--
	return true
}

// Next moves one spread forward; it reports false at the last spread.
func (b *Browser) Next() bool {
	if !b.HasNext() {
		return false
	}
	b.Index++
	return true
}

func (b *Browser) String() string {
	return fmt.Sprintf("Spread %d / %d", b.Index+1, b.Count)
}
