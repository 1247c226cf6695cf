package flowmailer

import (
	"strconv"
	"strings"
)

const (
	rangeKeyPrefix     = "items="
	contentRangePrefix = "items "
	unknownTotal       = "*"
)

// ReferenceRange is the cursor based range used by list endpoints.
//
// It is sent as the Range request header and returned by the server in the
// next-range response header. Reference is opaque and must be forwarded
// verbatim; an empty Reference asks for the first page.
type ReferenceRange struct {
	Count     int    `json:"count"               yaml:"count"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// NewReferenceRange returns a range for the first page of count items.
func NewReferenceRange(count int) ReferenceRange {
	return ReferenceRange{Count: count}
}

// String returns the header form items=<reference>:<count>.
func (r ReferenceRange) String() string {
	return rangeKeyPrefix + r.Reference + ":" + strconv.Itoa(r.Count)
}

// ParseReferenceRange parses items=<reference>:<count>.
func ParseReferenceRange(value string) (ReferenceRange, error) {
	rest, ok := strings.CutPrefix(value, rangeKeyPrefix)
	if !ok {
		return ReferenceRange{}, newFormatError("reference range", value, "missing items= prefix")
	}

	// references are opaque and may themselves contain colons
	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return ReferenceRange{}, newFormatError("reference range", value, "missing count separator")
	}

	count, err := strconv.Atoi(rest[idx+1:])
	if err != nil {
		return ReferenceRange{}, newFormatError("reference range", value, "count is not an integer")
	}

	return ReferenceRange{Count: count, Reference: rest[:idx]}, nil
}

// ContentRange describes the part of a collection served by the API.
//
// A cursor based range has an unknown total and is written
// "items <start>:<end>/*". An offset based range carries a total and is
// written "items <start>-<end>/<total>".
type ContentRange struct {
	Start string `json:"start"           yaml:"start"`
	End   string `json:"end"             yaml:"end"`
	Total string `json:"total,omitempty" yaml:"total,omitempty"`
}

// IsCursor reports whether the range uses the cursor (unknown total) form.
func (r ContentRange) IsCursor() bool {
	return r.Total == "" || r.Total == unknownTotal
}

// String returns the header form of the range.
func (r ContentRange) String() string {
	if r.IsCursor() {
		return contentRangePrefix + r.Start + ":" + r.End + "/" + unknownTotal
	}

	return contentRangePrefix + r.Start + "-" + r.End + "/" + r.Total
}

// ParseContentRange parses both content range forms. An unknown total is
// always returned as "*".
func ParseContentRange(value string) (ContentRange, error) {
	rest, ok := strings.CutPrefix(value, contentRangePrefix)
	if !ok {
		return ContentRange{}, newFormatError("content range", value, "missing items prefix")
	}

	if bounds, cursor := strings.CutSuffix(rest, "/"+unknownTotal); cursor {
		start, end, found := strings.Cut(bounds, ":")
		if !found {
			return ContentRange{}, newFormatError("content range", value, "missing ':' separator")
		}

		return ContentRange{Start: start, End: end, Total: unknownTotal}, nil
	}

	idx := strings.LastIndex(rest, "/")
	if idx < 0 {
		return ContentRange{}, newFormatError("content range", value, "missing total")
	}

	total := rest[idx+1:]
	if _, err := strconv.Atoi(total); err != nil {
		return ContentRange{}, newFormatError("content range", value, "total is not an integer")
	}

	start, end, found := strings.Cut(rest[:idx], "-")
	if !found {
		return ContentRange{}, newFormatError("content range", value, "missing '-' separator")
	}

	return ContentRange{Start: start, End: end, Total: total}, nil
}

// ItemsRange requests a fixed numeric window of a collection.
type ItemsRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end"   yaml:"end"`
}

// String returns items=<start>-<end>.
func (r ItemsRange) String() string {
	return rangeKeyPrefix + strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
}

// ParseItemsRange parses items=<start>-<end>.
func ParseItemsRange(value string) (ItemsRange, error) {
	key, window, found := strings.Cut(value, "=")
	if !found || key != "items" {
		return ItemsRange{}, newFormatError("items range", value, "missing items= key")
	}

	startText, endText, found := strings.Cut(window, "-")
	if !found {
		return ItemsRange{}, newFormatError("items range", value, "missing '-' separator")
	}

	start, err := strconv.Atoi(startText)
	if err != nil {
		return ItemsRange{}, newFormatError("items range", value, "start is not an integer")
	}

	end, err := strconv.Atoi(endText)
	if err != nil {
		return ItemsRange{}, newFormatError("items range", value, "end is not an integer")
	}

	return ItemsRange{Start: start, End: end}, nil
}
