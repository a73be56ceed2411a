package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

// printTable writes rows under headers, or a muted notice when there are no
// rows.
func (a *app) printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, a.theme.MutedStyle().Render("no results"))
		return
	}
	fmt.Fprint(w, a.theme.Table(headers, rows))
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func imdb(p *int) string {
	if p == nil {
		return ""
	}
	return provider.FormatImdbID(*p)
}

func rating(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// findByID picks the provider whose identifier matches id, ignoring case.
func findByID[T provider.Datasource](items []T, id string) (T, bool) {
	for _, item := range items {
		if strings.EqualFold(item.Identifier(), id) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// selectProviders narrows items to the one named id. An empty id keeps all.
func selectProviders[T provider.Datasource](items []T, id, kind string) ([]T, error) {
	if id == "" {
		if len(items) == 0 {
			return nil, fmt.Errorf("no %s providers are configured", kind)
		}
		return items, nil
	}
	item, ok := findByID(items, id)
	if !ok {
		return nil, fmt.Errorf("%q is not a configured %s provider", id, kind)
	}
	return []T{item}, nil
}
