package ais

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"ais_parser/internal/armor"
)

// linePattern finds an AIVDM/AIVDO sentence anywhere in a line, optionally
// preceded by a unix timestamp.
//
//	1: timestamp  2: sentence  3: talker  4: formatter  5: total  6: index
//	7: group id   8: channel   9: payload 10: fill bits 11: checksum
var linePattern = regexp.MustCompile(
	`([.0-9]+)?\s*(!([A-Z]{2})([A-Z]{3}),([1-9]),(\d),(\d?),([A-Z0-9]?),([^,*]+),([0-5])\*([0-9A-Fa-f]{2}))`)

// ParseLine extracts a sentence or fragment from one line of input.
// Single-part messages come back as a Sentence, parts of multi-part messages
// as a Fragment. A line with no recognizable sentence returns all nils.
// An undecodable payload returns an error wrapping bits.ErrFormat.
func ParseLine(raw string) (*Sentence, *Fragment, error) {
	m := linePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, nil, nil
	}

	total, _ := strconv.Atoi(m[5])
	index, _ := strconv.Atoi(m[6])
	// The index only matters for multi-part messages.
	if total > 1 && (index < 1 || index > total) {
		return nil, nil, nil
	}

	fill, _ := strconv.Atoi(m[10])
	payload, err := armor.Decode(m[9], fill)
	if err != nil {
		return nil, nil, fmt.Errorf("decode payload of %q: %w", m[2], err)
	}

	talker := Talker(m[3])
	typ := SentenceType(m[4])
	ts := parseTimestamp(m[1])

	if total == 1 {
		return &Sentence{
			Talker:  talker,
			Type:    typ,
			Channel: m[8],
			Payload: payload,
			Time:    ts,
			Raw:     []string{raw},
		}, nil, nil
	}

	group := 0
	if m[7] != "" {
		group, _ = strconv.Atoi(m[7])
	}
	return nil, &Fragment{
		Talker:  talker,
		Type:    typ,
		Total:   total,
		Index:   index,
		GroupID: group,
		Channel: m[8],
		Payload: payload,
		Time:    ts,
		Raw:     raw,
	}, nil
}

// SentenceText returns the matched "!..." sentence text within a line, or "" when
// the line holds none.
func SentenceText(raw string) string {
	m := linePattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[2]
}

// parseTimestamp converts a fractional unix-seconds prefix to UTC.
// Unparseable text yields the zero time.
func parseTimestamp(text string) time.Time {
	if text == "" {
		return time.Time{}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}
