package source

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ctessum/geom/proj"
)

var (
	epsgCode      = regexp.MustCompile(`(?i)^(epsg|esri)\s*:+\s*(\d+)$`)
	epsgURN       = regexp.MustCompile(`(?i)^urn:ogc:def:crs:(epsg|esri)::?(?:[\d.]*:)?(\d+)$`)
	wktAuthority  = regexp.MustCompile(`AUTHORITY\[\s*"(EPSG|ESRI)"\s*,\s*"?(\d+)"?\s*\]\s*\]\s*$`)
	wktName       = regexp.MustCompile(`^\s*(?:PROJCS|GEOGCS)\[\s*"([^"]+)"`)
	proj4EPSGInit = regexp.MustCompile(`\+init=epsg:(\d+)`)
)

// CanonicalCRS reduces a coordinate system identifier to a comparable form.
// Authority codes in any of their spellings become "EPSG:n". WKT and proj4
// definitions must parse; WKT falls back to its outermost authority code or
// its name, proj4 to its sorted parameter list.
func CanonicalCRS(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if m := epsgCode.FindStringSubmatch(s); m != nil {
		return authority(m[1], m[2]), nil
	}
	if m := epsgURN.FindStringSubmatch(s); m != nil {
		return authority(m[1], m[2]), nil
	}
	switch {
	case strings.Contains(s, "["):
		if _, err := proj.Parse(s); err != nil {
			return "", fmt.Errorf("parsing WKT coordinate system: %w", err)
		}
		if m := wktAuthority.FindStringSubmatch(s); m != nil {
			return authority(m[1], m[2]), nil
		}
		if m := wktName.FindStringSubmatch(s); m != nil {
			return m[1], nil
		}
		return s, nil
	case strings.HasPrefix(s, "+"):
		if m := proj4EPSGInit.FindStringSubmatch(strings.ToLower(s)); m != nil {
			return authority("EPSG", m[1]), nil
		}
		if _, err := proj.Parse(s); err != nil {
			return "", fmt.Errorf("parsing proj4 coordinate system: %w", err)
		}
		return canonicalProj4(s), nil
	}
	return s, nil
}

func authority(name, code string) string {
	return strings.ToUpper(name) + ":" + code
}

func canonicalProj4(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if f == "+no_defs" || f == "+type=crs" {
			continue
		}
		kept = append(kept, f)
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}
