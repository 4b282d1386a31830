// Package vtt implements the Caption Parser: a WebVTT reader producing an
// ordered, non-overlapping list of Cues, following the cue grammar and error
// taxonomy from original_source/src/vtt/parser.rs (VttParser::parse_reader,
// parse_timestamp) reworked into idiomatic Go with bufio.Scanner and a
// package-level compiled regexp, matching the corpus's regex-driven parsing
// style (tts/sentence/parser.go's regexp.MustCompile field layout).
package vtt

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/region23/tts-sync/internal/syncerr"
)

// Cue is a single caption entry: a time range and the text to speak.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// timestampPattern matches a single WebVTT timestamp with an optional hours
// component: HH:MM:SS.mmm or the short MM:SS.mmm form (SPEC_FULL.md §4.1).
const timestampPattern = `(?:(\d{2}):)?(\d{2}):(\d{2})[.,](\d{3})`

var timestampLineRegex = regexp.MustCompile(
	`^` + timestampPattern + `\s*-->\s*` + timestampPattern,
)

var inlineTagRegex = regexp.MustCompile(`<[^>]*>`)

// Parse reads a WebVTT document from r and returns its cues in order.
//
// The document must begin with a WEBVTT header line. Cue blocks are
// separated by blank lines; each block may open with an optional numeric or
// string identifier line, is followed by a timestamp line, and closes with
// one or more text lines. NOTE, STYLE, and REGION blocks are skipped.
// Overlapping cues are rejected rather than merged (see SPEC_FULL.md §9).
func Parse(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, cueErr(1, "empty input")
	}
	header := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "\ufeff")
	if !strings.HasPrefix(header, "WEBVTT") {
		return nil, cueErr(1, "missing WEBVTT header")
	}

	var cues []Cue
	var lastEnd time.Duration
	lineNo := 1
	index := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "NOTE") || strings.HasPrefix(trimmed, "STYLE") || strings.HasPrefix(trimmed, "REGION") {
			lineNo = skipBlock(scanner, lineNo)
			continue
		}

		timestampLine := trimmed
		if !timestampLineRegex.MatchString(timestampLine) {
			// tolerate an optional cue-identifier line preceding the timestamp
			if !scanner.Scan() {
				return nil, cueErr(lineNo, "cue identifier without timestamp line")
			}
			lineNo++
			timestampLine = strings.TrimSpace(scanner.Text())
			if !timestampLineRegex.MatchString(timestampLine) {
				return nil, cueErr(lineNo, "expected cue timestamp line")
			}
		}

		start, end, err := parseTimestampLine(timestampLine)
		if err != nil {
			return nil, cueErr(lineNo, err.Error())
		}
		if end <= start {
			return nil, cueErr(lineNo, "cue end must be after start")
		}
		if start < lastEnd {
			return nil, cueErr(lineNo, "overlapping cue")
		}

		var textLines []string
		for scanner.Scan() {
			lineNo++
			text := scanner.Text()
			if strings.TrimSpace(text) == "" {
				break
			}
			textLines = append(textLines, stripInlineTags(text))
		}

		text := strings.TrimSpace(strings.Join(textLines, " "))
		if text == "" {
			return nil, cueErr(lineNo, "cue has no text")
		}

		cues = append(cues, Cue{Index: index, Start: start, End: end, Text: text})
		index++
		lastEnd = end
	}
	if err := scanner.Err(); err != nil {
		return nil, syncerr.New(syncerr.ErrIo, "vtt", "parse").WithContext("cause", err.Error())
	}

	return cues, nil
}

// skipBlock consumes lines until the next blank line, for NOTE/STYLE/REGION.
func skipBlock(scanner *bufio.Scanner, lineNo int) int {
	for scanner.Scan() {
		lineNo++
		if strings.TrimSpace(scanner.Text()) == "" {
			break
		}
	}
	return lineNo
}

func parseTimestampLine(line string) (start, end time.Duration, err error) {
	m := timestampLineRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, fmt.Errorf("malformed timestamp line")
	}
	start, err = parseTimestamp(m[1], m[2], m[3], m[4])
	if err != nil {
		return 0, 0, err
	}
	end, err = parseTimestamp(m[5], m[6], m[7], m[8])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp builds a duration from a timestamp's capture groups. hh is
// empty when the short MM:SS.mmm form was matched, and is treated as 0 hours.
func parseTimestamp(hh, mm, ss, ms string) (time.Duration, error) {
	h := 0
	if hh != "" {
		var err error
		h, err = strconv.Atoi(hh)
		if err != nil {
			return 0, fmt.Errorf("invalid hours: %s", hh)
		}
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid minutes: %s", mm)
	}
	s, err := strconv.Atoi(ss)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds: %s", ss)
	}
	frac, err := strconv.Atoi(ms)
	if err != nil {
		return 0, fmt.Errorf("invalid milliseconds: %s", ms)
	}
	total := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(frac)*time.Millisecond
	return total, nil
}

func stripInlineTags(line string) string {
	return inlineTagRegex.ReplaceAllString(line, "")
}

func cueErr(line int, reason string) error {
	return &syncerr.CueParsing{Line: line, Reason: reason}
}
