package mirror

import (
	"fmt"
	"sort"
	"strings"
)

// CountryCount aggregates how many mirrors a country hosts.
type CountryCount struct {
	Name  string
	Code  string
	Count int
}

// Countries returns the countries present in the feed with their mirror
// counts, sorted by name then code. Mirrors without country information
// are not counted.
func Countries(mirrors []Mirror) []CountryCount {
	counts := make(map[[2]string]int)
	for i := range mirrors {
		if mirrors[i].Country == "" || mirrors[i].CountryCode == "" {
			continue
		}
		counts[[2]string{mirrors[i].Country, mirrors[i].CountryCode}]++
	}

	result := make([]CountryCount, 0, len(counts))
	for key, n := range counts {
		result = append(result, CountryCount{Name: key[0], Code: key[1], Count: n})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Code < result[j].Code
	})
	return result
}

// RenderCountryTable formats country counts as an aligned text table.
func RenderCountryTable(counts []CountryCount) string {
	const header = "Country"

	width := len(header)
	for _, c := range counts {
		if n := len(c.Name); n > width {
			width = n
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s Code Count\n", width, header)
	fmt.Fprintf(&b, "%s ---- -----\n", strings.Repeat("-", width))
	for _, c := range counts {
		fmt.Fprintf(&b, "%-*s %4s %5d\n", width, c.Name, c.Code, c.Count)
	}
	return b.String()
}
