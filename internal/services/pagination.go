package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/diewo77/invoice-dashboard/internal/models"
)

// Ellipsis marks a gap in the page list.
const Ellipsis = "..."

// ParsePage reads a 1-based page number from a URL parameter. Missing,
// non-numeric and non-positive values all mean page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// TotalPages is ceil(count / pageSize).
func TotalPages(count int64, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 0
	}
	return int((count + int64(pageSize) - 1) / int64(pageSize))
}

// GeneratePagination returns the page labels shown under the invoice table.
// Up to seven pages are listed in full; beyond that gaps become Ellipsis,
// keeping the first and last pages and the neighbours of current.
func GeneratePagination(current, total int) []string {
	if total <= 0 {
		return nil
	}
	var pages []int
	switch {
	case total <= 7:
		for i := 1; i <= total; i++ {
			pages = append(pages, i)
		}
	case current <= 3:
		pages = []int{1, 2, 3, 0, total - 1, total}
	case current >= total-2:
		pages = []int{1, 2, 0, total - 2, total - 1, total}
	default:
		pages = []int{1, 0, current - 1, current, current + 1, 0, total}
	}

	out := make([]string, len(pages))
	for i, p := range pages {
		if p == 0 {
			out[i] = Ellipsis
		} else {
			out[i] = strconv.Itoa(p)
		}
	}
	return out
}

// GenerateYAxis returns the revenue chart labels from the top value down to
// zero in steps of $1K, and the top value itself.
func GenerateYAxis(revenue []models.Revenue) (labels []string, top int64) {
	var highest int64
	for _, r := range revenue {
		highest = max(highest, r.Revenue)
	}
	top = (highest + 999) / 1000 * 1000
	for i := top; i >= 0; i -= 1000 {
		labels = append(labels, fmt.Sprintf("$%dK", i/1000))
	}
	return labels, top
}

var monthOrder = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// sortByMonth orders revenue rows in calendar order; unknown months go last.
func sortByMonth(rows []models.Revenue) {
	idx := func(m string) int {
		if i := slices.Index(monthOrder, m); i >= 0 {
			return i
		}
		return len(monthOrder)
	}
	slices.SortStableFunc(rows, func(a, b models.Revenue) int {
		return idx(a.Month) - idx(b.Month)
	})
}
