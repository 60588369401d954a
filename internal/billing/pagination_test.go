package billing

import (
	"strings"
	"testing"
)

func makeItems(n int) []LineItem {
	items := make([]LineItem, n)
	for i := range items {
		items[i] = LineItem{Name: "Item", Quantity: int64(i + 1), Rate: d("10")}
	}
	return items
}

func TestDefaultPageConfig_Capacities(t *testing.T) {
	cfg := DefaultPageConfig()

	first := cfg.ItemsPerFirstPage()
	rest := cfg.ItemsPerSubsequentPage()

	if first < 1 {
		t.Fatalf("ItemsPerFirstPage() = %d, want >= 1", first)
	}
	if rest <= first {
		t.Errorf("continuation pages should hold more rows than page one: first=%d rest=%d", first, rest)
	}
}

func TestCalculatePagination_Empty(t *testing.T) {
	plan := CalculatePagination(0, DefaultPageConfig())
	if plan.Pages != 1 {
		t.Errorf("Pages = %d, want 1", plan.Pages)
	}
	if len(plan.ItemsPerPage) != 1 || plan.ItemsPerPage[0] != 0 {
		t.Errorf("ItemsPerPage = %v, want [0]", plan.ItemsPerPage)
	}
}

func TestCalculatePagination_SinglePage(t *testing.T) {
	cfg := DefaultPageConfig()
	plan := CalculatePagination(cfg.ItemsPerFirstPage(), cfg)
	if plan.Pages != 1 {
		t.Errorf("Pages = %d, want 1", plan.Pages)
	}
}

func TestCalculatePagination_AccountsForEveryItem(t *testing.T) {
	cfg := DefaultPageConfig()
	for _, n := range []int{1, 5, 25, 100, 500} {
		plan := CalculatePagination(n, cfg)
		total := 0
		for _, count := range plan.ItemsPerPage {
			total += count
		}
		if total != n {
			t.Errorf("n=%d: plan accounts for %d items", n, total)
		}
		if len(plan.ItemsPerPage) != plan.Pages {
			t.Errorf("n=%d: Pages=%d but %d page entries", n, plan.Pages, len(plan.ItemsPerPage))
		}
		if plan.ItemsPerPage[0] > plan.ItemsPerFirstPage {
			t.Errorf("n=%d: first page overfull", n)
		}
		for i := 1; i < plan.Pages; i++ {
			if plan.ItemsPerPage[i] > plan.ItemsPerSubsequentPage {
				t.Errorf("n=%d: page %d overfull", n, i+1)
			}
		}
	}
}

func TestPlanForCapacities_GreedyFill(t *testing.T) {
	// 25 items at 10 first / 15 subsequent: exactly two pages
	plan := PlanForCapacities(25, 10, 15)
	if plan.Pages != 2 {
		t.Fatalf("Pages = %d, want 2", plan.Pages)
	}
	if plan.ItemsPerPage[0] != 10 || plan.ItemsPerPage[1] != 15 {
		t.Errorf("ItemsPerPage = %v, want [10 15]", plan.ItemsPerPage)
	}
}

func TestSplitItemsIntoPages_Empty(t *testing.T) {
	pages := SplitItemsIntoPages(nil, CalculatePagination(0, DefaultPageConfig()))
	if len(pages) != 0 {
		t.Errorf("expected no pages for empty items, got %d", len(pages))
	}
}

func TestSplitItemsIntoPages_SinglePage(t *testing.T) {
	items := makeItems(2)
	pages := SplitItemsIntoPages(items, PlanForCapacities(2, 10, 15))

	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	page := pages[0]
	if !page.IsFirstPage || !page.IsLastPage || page.IsMiddlePage {
		t.Errorf("single page flags wrong: %+v", page)
	}
	if page.PageNumber != 1 || page.TotalPages != 1 || page.StartingIndex != 0 {
		t.Errorf("single page metadata wrong: %+v", page)
	}
}

func TestSplitItemsIntoPages_TwoPages(t *testing.T) {
	items := makeItems(25)
	pages := SplitItemsIntoPages(items, PlanForCapacities(25, 10, 15))

	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(pages[0].Items) != 10 || pages[0].StartingIndex != 0 {
		t.Errorf("page 1: %d items starting at %d, want 10 at 0", len(pages[0].Items), pages[0].StartingIndex)
	}
	if len(pages[1].Items) != 15 || pages[1].StartingIndex != 10 {
		t.Errorf("page 2: %d items starting at %d, want 15 at 10", len(pages[1].Items), pages[1].StartingIndex)
	}
	if pages[0].IsLastPage {
		t.Error("page 1 must not be the last page")
	}
	if !pages[1].IsLastPage {
		t.Error("page 2 must be the last page")
	}
}

func TestSplitItemsIntoPages_MiddlePageFlags(t *testing.T) {
	pages := SplitItemsIntoPages(makeItems(9), PlanForCapacities(9, 3, 3))
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if pages[0].IsMiddlePage || !pages[1].IsMiddlePage || pages[2].IsMiddlePage {
		t.Error("middle page flag set on wrong page")
	}
	for i, page := range pages {
		if page.TotalPages != 3 {
			t.Errorf("page %d TotalPages = %d, want 3", i+1, page.TotalPages)
		}
		if page.PageNumber != i+1 {
			t.Errorf("page %d PageNumber = %d", i+1, page.PageNumber)
		}
	}
}

func TestSplitItemsIntoPages_Completeness(t *testing.T) {
	for _, n := range []int{1, 7, 25, 99, 500} {
		items := makeItems(n)
		pages := SplitItemsIntoPages(items, CalculatePagination(n, DefaultPageConfig()))

		var rebuilt []LineItem
		expectedStart := 0
		for _, page := range pages {
			if page.StartingIndex != expectedStart {
				t.Errorf("n=%d page %d: StartingIndex = %d, want %d", n, page.PageNumber, page.StartingIndex, expectedStart)
			}
			expectedStart += len(page.Items)
			rebuilt = append(rebuilt, page.Items...)
		}

		if len(rebuilt) != n {
			t.Fatalf("n=%d: pages hold %d items", n, len(rebuilt))
		}
		for i := range rebuilt {
			if rebuilt[i].Quantity != items[i].Quantity {
				t.Fatalf("n=%d: item order broken at %d", n, i)
			}
		}
	}
}

func TestSplitItemsIntoPages_OverflowSpills(t *testing.T) {
	// Plan built for fewer items than actually passed: the extras must not
	// be dropped.
	items := makeItems(20)
	pages := SplitItemsIntoPages(items, PlanForCapacities(10, 4, 6))

	total := 0
	for _, page := range pages {
		total += len(page.Items)
	}
	if total != 20 {
		t.Errorf("pages hold %d items, want 20", total)
	}
	if !pages[len(pages)-1].IsLastPage {
		t.Error("last page flag missing after spill")
	}
}

func TestPaginationSummary(t *testing.T) {
	single := PaginationSummary(PlanForCapacities(10, 20, 15))
	if !strings.Contains(single, "Single page") || !strings.Contains(single, "10 items") {
		t.Errorf("unexpected single-page summary: %q", single)
	}

	multi := PaginationSummary(PlanForCapacities(50, 20, 15))
	if !strings.Contains(multi, "3-page") || !strings.Contains(multi, "Page 1") {
		t.Errorf("unexpected multi-page summary: %q", multi)
	}
	if !strings.Contains(multi, "customer info") || !strings.Contains(multi, "totals") {
		t.Errorf("summary missing section hints: %q", multi)
	}
	if !strings.Contains(multi, "continued") {
		t.Errorf("summary missing continuation hint: %q", multi)
	}
}
