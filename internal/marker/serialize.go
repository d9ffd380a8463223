// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package marker

import (
	"encoding/xml"
	"fmt"
	"time"
)

// TicksPerSecond is the engine's 90 kHz PTS clock rate.
const TicksPerSecond = 90000

// FilePattern is the glob the engine polls for in a profile's marker directory.
const FilePattern = "splice_*.xml"

// Ticks converts a duration to 90 kHz clock ticks.
func Ticks(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d * TicksPerSecond / time.Second)
}

// FileName returns the marker file name for a sequence's base event id.
func FileName(baseID int) string {
	return fmt.Sprintf("splice_%d.xml", baseID)
}

type xmlDoc struct {
	XMLName xml.Name         `xml:"tsduck"`
	Tables  []xmlSpliceTable `xml:"splice_information_table"`
}

type xmlSpliceTable struct {
	ProtocolVersion int              `xml:"protocol_version,attr"`
	PTSAdjustment   uint64           `xml:"pts_adjustment,attr"`
	Tier            string           `xml:"tier,attr"`
	Insert          *xmlSpliceInsert `xml:"splice_insert,omitempty"`
	TimeSignal      *xmlTimeSignal   `xml:"time_signal,omitempty"`
}

type xmlSpliceInsert struct {
	EventID         int               `xml:"splice_event_id,attr"`
	OutOfNetwork    bool              `xml:"out_of_network,attr"`
	Immediate       bool              `xml:"splice_immediate,attr"`
	PTSTime         *uint64           `xml:"pts_time,attr,omitempty"`
	UniqueProgramID int               `xml:"unique_program_id,attr"`
	AvailNum        int               `xml:"avail_num,attr"`
	AvailsExpected  int               `xml:"avails_expected,attr"`
	BreakDuration   *xmlBreakDuration `xml:"break_duration,omitempty"`
}

type xmlBreakDuration struct {
	AutoReturn bool   `xml:"auto_return,attr"`
	Duration   uint64 `xml:"duration,attr"`
}

type xmlTimeSignal struct {
	PTSTime *uint64 `xml:"pts_time,attr,omitempty"`
}

// Render serializes a single descriptor into a splice-information file.
func Render(d Descriptor) ([]byte, error) {
	return RenderSequence(Sequence{d})
}

// RenderSequence serializes a sequence into one splice-information file, one
// table per descriptor.
func RenderSequence(seq Sequence) ([]byte, error) {
	if len(seq) == 0 {
		return nil, fmt.Errorf("empty marker sequence")
	}

	doc := xmlDoc{Tables: make([]xmlSpliceTable, 0, len(seq))}
	for _, d := range seq {
		table, err := toTable(d)
		if err != nil {
			return nil, err
		}
		doc.Tables = append(doc.Tables, table)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal splice information table: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

func toTable(d Descriptor) (xmlSpliceTable, error) {
	table := xmlSpliceTable{
		ProtocolVersion: 0,
		PTSAdjustment:   0,
		Tier:            "0xFFF",
	}

	var ptsTime *uint64
	if d.Timing == TimingScheduled {
		t := Ticks(d.ScheduledOffset)
		ptsTime = &t
	}

	switch d.Kind {
	case KindCueOut, KindPreroll:
		if d.Timing == TimingScheduled {
			return xmlSpliceTable{}, fmt.Errorf("%w: event %d", ErrScheduledForbidden, d.EventID)
		}
		insert := &xmlSpliceInsert{
			EventID:         d.EventID,
			OutOfNetwork:    true,
			Immediate:       true,
			UniqueProgramID: 1,
		}
		if d.BreakDuration > 0 {
			insert.BreakDuration = &xmlBreakDuration{
				AutoReturn: d.AutoReturn,
				Duration:   Ticks(d.BreakDuration),
			}
		}
		table.Insert = insert
	case KindCueIn, KindCueCrash:
		table.Insert = &xmlSpliceInsert{
			EventID:         d.EventID,
			OutOfNetwork:    false,
			Immediate:       d.Timing == TimingImmediate,
			PTSTime:         ptsTime,
			UniqueProgramID: 1,
		}
	case KindTimeSignal:
		table.TimeSignal = &xmlTimeSignal{PTSTime: ptsTime}
	default:
		return xmlSpliceTable{}, fmt.Errorf("unknown marker kind %d", d.Kind)
	}

	return table, nil
}
