package parser

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// CanonicalAirportRoute is the single name used for the Copenhagen–Airport route.
const CanonicalAirportRoute = "København - CPH Lufthavn"

var (
	aliasMu      sync.RWMutex
	routeAliases = map[string]string{
		"København - København Lufthavn (CPH Lufthavn)": CanonicalAirportRoute,
		"København - Kastrup (CPH Lufthavn)":            CanonicalAirportRoute,
		"København - CPH Lufthavn":                      CanonicalAirportRoute,
	}
)

// RegisterRouteAlias maps an additional textual variant onto a canonical route.
// The variant is normalized the same way route cells are before lookup.
func RegisterRouteAlias(variant, canonical string) {
	aliasMu.Lock()
	defer aliasMu.Unlock()
	routeAliases[collapseRoute(variant)] = canonical
}

// NormalizeRoute cleans a route cell and applies the alias table.
func NormalizeRoute(raw string) string {
	route := collapseRoute(raw)

	aliasMu.RLock()
	canonical, ok := routeAliases[route]
	aliasMu.RUnlock()
	if ok {
		return canonical
	}
	return route
}

func collapseRoute(raw string) string {
	route := CollapseWhitespace(raw)
	return strings.ReplaceAll(route, "/ ", "/")
}

// CollapseWhitespace composes the text to NFC, folds whitespace runs
// (including non-breaking spaces) to one space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
