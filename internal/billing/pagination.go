package billing

import "fmt"

// Printable A4 layout dimensions in millimetres. The first page carries the
// document header, customer block and a totals preview, so it holds fewer
// rows than continuation pages.
const (
	A4Height = 297.0
	A4Width  = 210.0

	PageMarginTop    = 10.0
	PageMarginBottom = 10.0

	HeaderHeight           = 42.0
	CustomerSectionHeight  = 34.0
	TotalsSectionHeight    = 46.0
	SignatureSectionHeight = 24.0
	FooterHeight           = 14.0
	ContinuationHeadHeight = 16.0
	LineItemHeight         = 8.0
)

// PageConfig describes the vertical layout budget used to derive page
// capacities. Zero-value fields fall back to the defaults above.
type PageConfig struct {
	PageHeight             float64
	MarginTop              float64
	MarginBottom           float64
	HeaderHeight           float64
	CustomerSectionHeight  float64
	TotalsSectionHeight    float64
	SignatureSectionHeight float64
	FooterHeight           float64
	ContinuationHeadHeight float64
	LineItemHeight         float64
}

// DefaultPageConfig returns the fixed A4 policy used when no template
// settings are configured.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		PageHeight:             A4Height,
		MarginTop:              PageMarginTop,
		MarginBottom:           PageMarginBottom,
		HeaderHeight:           HeaderHeight,
		CustomerSectionHeight:  CustomerSectionHeight,
		TotalsSectionHeight:    TotalsSectionHeight,
		SignatureSectionHeight: SignatureSectionHeight,
		FooterHeight:           FooterHeight,
		ContinuationHeadHeight: ContinuationHeadHeight,
		LineItemHeight:         LineItemHeight,
	}
}

func (c PageConfig) usableHeight() float64 {
	return c.PageHeight - c.MarginTop - c.MarginBottom - c.FooterHeight
}

// ItemsPerFirstPage returns the row capacity of page one, after header,
// customer block and totals preview chrome.
func (c PageConfig) ItemsPerFirstPage() int {
	h := c.usableHeight() - c.HeaderHeight - c.CustomerSectionHeight - c.TotalsSectionHeight - c.SignatureSectionHeight
	return capacity(h, c.LineItemHeight)
}

// ItemsPerSubsequentPage returns the row capacity of continuation pages,
// which only carry a slim continuation header.
func (c PageConfig) ItemsPerSubsequentPage() int {
	h := c.usableHeight() - c.ContinuationHeadHeight
	return capacity(h, c.LineItemHeight)
}

func capacity(height, rowHeight float64) int {
	if rowHeight <= 0 {
		return 1
	}
	n := int(height / rowHeight)
	if n < 1 {
		return 1
	}
	return n
}

// Plan is the capacity decision for one document.
type Plan struct {
	Pages                  int   `json:"pages"`
	ItemsPerFirstPage      int   `json:"items_per_first_page"`
	ItemsPerSubsequentPage int   `json:"items_per_subsequent_page"`
	ItemsPerPage           []int `json:"items_per_page"`
}

// Page is one printable page of line items. Rendering relies on IsLastPage
// to place the signature, totals and terms sections.
type Page struct {
	Items         []LineItem `json:"items"`
	PageNumber    int        `json:"page_number"`
	TotalPages    int        `json:"total_pages"`
	IsFirstPage   bool       `json:"is_first_page"`
	IsLastPage    bool       `json:"is_last_page"`
	IsMiddlePage  bool       `json:"is_middle_page"`
	StartingIndex int        `json:"starting_index"`
}

// CalculatePagination derives the page plan for a given item count. An empty
// document still plans a single page so the renderer has somewhere to put
// the empty-state placeholder.
func CalculatePagination(itemCount int, cfg PageConfig) Plan {
	return PlanForCapacities(itemCount, cfg.ItemsPerFirstPage(), cfg.ItemsPerSubsequentPage())
}

// PlanForCapacities builds a greedy fixed-capacity plan: page one fills to
// its budget before anything moves to page two. Template settings may feed
// explicit capacities here instead of the layout-derived ones.
func PlanForCapacities(itemCount, first, rest int) Plan {
	if first < 1 {
		first = 1
	}
	if rest < 1 {
		rest = 1
	}

	plan := Plan{
		Pages:                  1,
		ItemsPerFirstPage:      first,
		ItemsPerSubsequentPage: rest,
	}

	if itemCount <= first {
		plan.ItemsPerPage = []int{itemCount}
		return plan
	}

	plan.ItemsPerPage = []int{first}
	remaining := itemCount - first
	for remaining > 0 {
		n := remaining
		if n > rest {
			n = rest
		}
		plan.ItemsPerPage = append(plan.ItemsPerPage, n)
		remaining -= n
	}
	plan.Pages = len(plan.ItemsPerPage)
	return plan
}

// SplitItemsIntoPages distributes items across pages per the plan: greedy
// fixed-capacity fill, original order preserved, every item on exactly one
// page. Empty input yields no pages.
func SplitItemsIntoPages(items []LineItem, plan Plan) []Page {
	if len(items) == 0 {
		return []Page{}
	}

	pages := make([]Page, 0, plan.Pages)
	offset := 0
	for i, count := range plan.ItemsPerPage {
		end := offset + count
		if end > len(items) {
			end = len(items)
		}
		pages = append(pages, Page{
			Items:         items[offset:end],
			PageNumber:    i + 1,
			StartingIndex: offset,
			IsFirstPage:   i == 0,
		})
		offset = end
	}

	// Any overflow the plan did not account for spills onto extra
	// continuation pages rather than being dropped.
	for offset < len(items) {
		count := plan.ItemsPerSubsequentPage
		if count < 1 {
			count = len(items) - offset
		}
		end := offset + count
		if end > len(items) {
			end = len(items)
		}
		pages = append(pages, Page{
			Items:         items[offset:end],
			PageNumber:    len(pages) + 1,
			StartingIndex: offset,
		})
		offset = end
	}

	total := len(pages)
	for i := range pages {
		pages[i].TotalPages = total
		pages[i].IsLastPage = i == total-1
		pages[i].IsMiddlePage = i > 0 && i < total-1
	}
	return pages
}

// PaginationSummary renders a short human-readable description of a plan,
// shown in the template settings preview.
func PaginationSummary(plan Plan) string {
	if plan.Pages <= 1 {
		count := 0
		if len(plan.ItemsPerPage) > 0 {
			count = plan.ItemsPerPage[0]
		}
		return fmt.Sprintf("Single page, %d items with customer info and totals", count)
	}

	s := fmt.Sprintf("%d-page document. Page 1: %d items with customer info", plan.Pages, plan.ItemsPerPage[0])
	for i := 1; i < plan.Pages-1; i++ {
		s += fmt.Sprintf("; Page %d: %d items (continued)", i+1, plan.ItemsPerPage[i])
	}
	s += fmt.Sprintf("; Page %d: %d items with totals and signature", plan.Pages, plan.ItemsPerPage[plan.Pages-1])
	return s
}
