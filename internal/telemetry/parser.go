// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package telemetry consumes the engine's line-oriented stdout: injection
// confirmations and periodic quality counters. The stream is best-effort
// structured; a parse failure on one line never aborts the session.
package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ManuGH/cue2ts/internal/log"
	"github.com/ManuGH/cue2ts/internal/metrics"
	"github.com/ManuGH/cue2ts/internal/session"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxLineBytes bounds a single telemetry line.
const maxLineBytes = 1 << 20

var (
	// Free-text injection confirmation, e.g.
	// "spliceinject: injected splice event id 10024".
	injectRe = regexp.MustCompile(`(?i)\binject(?:ed|ing)?\b.*?\bevent[ _-]?id[ :=#]*(\d+)`)

	// Free-text analysis counters.
	packetsRe = regexp.MustCompile(`(?i)\b([\d,]+)\s+(?:TS\s+)?packets\b`)
	bitrateRe = regexp.MustCompile(`(?i)\bbitrate[ :=]+([\d,.]+)`)
	ccErrRe   = regexp.MustCompile(`(?i)\b(\d+)\s+(?:CC|continuity)\s+errors?\b`)
	pcrErrRe  = regexp.MustCompile(`(?i)\b(\d+)\s+PCR\s+errors?\b`)
)

// jsonLine is the union of structured line shapes the engine emits: splice
// event confirmations and periodic analysis records.
type jsonLine struct {
	EventID   *int64   `json:"event-id"`
	EventType string   `json:"event-type"`
	Packets   *uint64  `json:"packets"`
	Bitrate   *float64 `json:"bitrate"`
	CCErrors  *uint64  `json:"cc-errors"`
	PCRErrors *uint64  `json:"pcr-errors"`
}

// Parser turns telemetry lines into session updates.
type Parser struct {
	sess    *session.Session
	logger  zerolog.Logger
	limiter *rate.Sometimes
}

// New returns a Parser feeding the given session. Malformed-line warnings are
// emitted at most once per hundred occurrences.
func New(sess *session.Session) *Parser {
	return &Parser{
		sess:    sess,
		logger:  log.WithComponent("telemetry"),
		limiter: &rate.Sometimes{First: 1, Every: 100},
	}
}

// Run reads r line by line until EOF, which occurs naturally at process exit.
// The returned error is nil on EOF; read errors are returned but the caller
// treats them as end-of-stream, never as session failure. A line longer than
// maxLineBytes is discarded and counted as malformed; it must not end the
// stream, or the engine's stdout pipe would fill and stall the process.
func (p *Parser) Run(ctx context.Context, r io.Reader) error {
	rd := bufio.NewReaderSize(r, 64*1024)
	line := make([]byte, 0, 4096)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := rd.ReadSlice('\n')
		line = append(line, chunk...)

		if err == bufio.ErrBufferFull {
			if len(line) > maxLineBytes {
				p.dropOversized(len(line))
				if err := discardToNewline(rd); err != nil {
					if errors.Is(err, io.EOF) {
						return nil
					}
					return err
				}
				line = line[:0]
			}
			continue
		}

		if len(line) > 0 {
			if len(line) > maxLineBytes {
				p.dropOversized(len(line))
			} else {
				p.parseLine(string(line))
			}
			line = line[:0]
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (p *Parser) dropOversized(n int) {
	metrics.IncTelemetryLine("malformed")
	p.limiter.Do(func() {
		p.logger.Warn().Int("bytes", n).Msg("oversized telemetry line, skipping")
	})
}

// discardToNewline consumes the remainder of an oversized line. It returns nil
// once the newline is reached and io.EOF if the stream ends first.
func discardToNewline(rd *bufio.Reader) error {
	for {
		_, err := rd.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		return err
	}
}

func (p *Parser) parseLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if strings.HasPrefix(line, "{") {
		p.parseJSON(line)
		return
	}
	p.parseText(line)
}

func (p *Parser) parseJSON(line string) {
	var jl jsonLine
	if err := json.Unmarshal([]byte(line), &jl); err != nil {
		metrics.IncTelemetryLine("malformed")
		p.limiter.Do(func() {
			p.logger.Warn().Err(err).Str("line", truncate(line, 200)).
				Msg("malformed telemetry line, skipping")
		})
		return
	}

	if jl.EventID != nil || jl.EventType != "" {
		p.sess.Post(session.Update{MarkersInjected: 1})
		metrics.IncMarkerInjected()
		metrics.IncTelemetryLine("event")
		ev := p.logger.Debug()
		if jl.EventID != nil {
			ev = ev.Int64(log.FieldEventID, *jl.EventID)
		}
		ev.Str(log.FieldKind, jl.EventType).Msg("injection confirmed")
		return
	}

	if jl.Packets != nil || jl.Bitrate != nil || jl.CCErrors != nil || jl.PCRErrors != nil {
		u := session.Update{Bitrate: jl.Bitrate}
		if jl.Packets != nil {
			u.Packets = *jl.Packets
		}
		if jl.CCErrors != nil {
			u.Errors += *jl.CCErrors
		}
		if jl.PCRErrors != nil {
			u.Errors += *jl.PCRErrors
		}
		p.sess.Post(u)
		metrics.IncTelemetryLine("stats")
		return
	}

	metrics.IncTelemetryLine("ignored")
}

func (p *Parser) parseText(line string) {
	if m := injectRe.FindStringSubmatch(line); m != nil {
		p.sess.Post(session.Update{MarkersInjected: 1})
		metrics.IncMarkerInjected()
		metrics.IncTelemetryLine("event")
		p.logger.Debug().Str("line", truncate(line, 200)).Msg("injection confirmed")
		return
	}

	var u session.Update
	matched := false
	if m := packetsRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseUint(stripGroupSeparators(m[1]), 10, 64); err == nil {
			u.Packets = v
			matched = true
		}
	}
	if m := bitrateRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(stripGroupSeparators(m[1]), 64); err == nil {
			u.Bitrate = &v
			matched = true
		}
	}
	if m := ccErrRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			u.Errors += v
			matched = true
		}
	}
	if m := pcrErrRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			u.Errors += v
			matched = true
		}
	}
	if matched {
		p.sess.Post(u)
		metrics.IncTelemetryLine("stats")
		return
	}

	// Engine chatter that matches nothing is normal, not malformed.
	metrics.IncTelemetryLine("ignored")
}

func stripGroupSeparators(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
