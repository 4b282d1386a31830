package vtt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/region23/tts-sync/internal/syncerr"
)

func TestParseBasicCues(t *testing.T) {
	doc := "WEBVTT\n\n" +
		"1\n00:00:01.000 --> 00:00:02.500\nHello there.\n\n" +
		"2\n00:00:03.000 --> 00:00:04.000\nSecond cue.\n"
	cues, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("len(cues) = %d, want 2", len(cues))
	}
	if cues[0].Start != time.Second || cues[0].End != 2500*time.Millisecond {
		t.Fatalf("cue[0] times = %v-%v", cues[0].Start, cues[0].End)
	}
	if cues[0].Text != "Hello there." {
		t.Fatalf("cue[0].Text = %q", cues[0].Text)
	}
}

func TestParseWithoutIdentifierLine(t *testing.T) {
	doc := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nNo id line.\n"
	cues, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cues) != 1 || cues[0].Text != "No id line." {
		t.Fatalf("unexpected cues: %+v", cues)
	}
}

func TestParseStripsInlineTags(t *testing.T) {
	doc := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\n<b>Bold</b> and <c.loud>loud</c>\n"
	cues, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cues[0].Text != "Bold and loud" {
		t.Fatalf("cue[0].Text = %q", cues[0].Text)
	}
}

func TestParseSkipsNoteBlocks(t *testing.T) {
	doc := "WEBVTT\n\nNOTE this is a comment\nspanning lines\n\n" +
		"00:00:00.000 --> 00:00:01.000\nActual cue.\n"
	cues, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cues) != 1 || cues[0].Text != "Actual cue." {
		t.Fatalf("unexpected cues: %+v", cues)
	}
}

func TestParseRejectsMissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("00:00:00.000 --> 00:00:01.000\nnope\n"))
	if err == nil {
		t.Fatal("expected error for missing WEBVTT header")
	}
	var cp *syncerr.CueParsing
	if !errors.As(err, &cp) {
		t.Fatalf("expected *syncerr.CueParsing, got %T", err)
	}
}

func TestParseRejectsOverlappingCues(t *testing.T) {
	doc := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:02.000\nFirst.\n\n" +
		"00:00:01.000 --> 00:00:03.000\nOverlaps first.\n"
	_, err := Parse(strings.NewReader(doc))
	if !errors.Is(err, syncerr.ErrVttParsing) {
		t.Fatalf("expected ErrVttParsing for overlap, got %v", err)
	}
}

func TestParseRejectsEndBeforeStart(t *testing.T) {
	doc := "WEBVTT\n\n00:00:02.000 --> 00:00:01.000\nBad range.\n"
	_, err := Parse(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestParseAcceptsShortFormTimestamps(t *testing.T) {
	doc := "WEBVTT\n\n00:01.000 --> 00:02.500\nNo hours component.\n"
	cues, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cues[0].Start != time.Second || cues[0].End != 2500*time.Millisecond {
		t.Fatalf("cue[0] times = %v-%v", cues[0].Start, cues[0].End)
	}
}

func TestParseAcceptsCommaMillisecondSeparator(t *testing.T) {
	doc := "WEBVTT\n\n00:00:00,000 --> 00:00:01,500\nComma separated.\n"
	cues, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cues[0].End != 1500*time.Millisecond {
		t.Fatalf("cue[0].End = %v", cues[0].End)
	}
}
