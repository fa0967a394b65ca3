package cli

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/domain"
)

// Format selects the listing output shape requested from the engine.
type Format string

const (
	// FormatCSV asks for "id,name,state" rows.
	FormatCSV Format = "csv"
	// FormatJSON asks for one JSON object per row.
	FormatJSON Format = "json"
)

// Template is the --format argument for the engine's ps command.
func (f Format) Template() string {
	if f == FormatCSV {
		return "{{.ID}},{{.Names}},{{.State}}"
	}
	return "{{json .}}"
}

// Record is one parsed listing row, before classification.
type Record struct {
	ID    string
	Name  string
	State string
}

type jsonRecord struct {
	ID     string `json:"ID"`
	Names  string `json:"Names"`
	State  string `json:"State"`
	Status string `json:"Status"`
}

// ParseListing parses engine listing output. Blank and malformed lines are
// skipped; the remaining records keep their original order.
func ParseListing(raw []byte, format Format, log logrus.FieldLogger) []Record {
	parse := parseCSVLine
	if format == FormatJSON {
		parse = parseJSONLine
	}

	var records []Record
	for i, b := range bytes.Split(raw, []byte("\n")) {
		line := strings.TrimSpace(string(b))
		if line == "" {
			continue
		}
		rec, err := parse(line)
		if err != nil {
			log.WithError(err).WithField("line", i+1).Debug("Skipping listing line")
			continue
		}
		records = append(records, rec)
	}
	return records
}

func parseCSVLine(line string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return Record{}, errors.Wrapf(domain.ErrParse, "want 3 fields, got %d", len(fields))
	}
	rec := Record{
		ID:    strings.TrimSpace(fields[0]),
		Name:  strings.TrimSpace(fields[1]),
		State: strings.TrimSpace(fields[2]),
	}
	if rec.Name == "" {
		return Record{}, errors.Wrap(domain.ErrParse, "empty name")
	}
	return rec, nil
}

func parseJSONLine(line string) (Record, error) {
	var jr jsonRecord
	if err := json.Unmarshal([]byte(line), &jr); err != nil {
		return Record{}, errors.Wrapf(domain.ErrParse, "%v", err)
	}
	// Containers with several names list them comma separated.
	name, _, _ := strings.Cut(jr.Names, ",")
	rec := Record{
		ID:    jr.ID,
		Name:  strings.TrimSpace(name),
		State: strings.TrimSpace(jr.State),
	}
	if rec.Name == "" {
		return Record{}, errors.Wrap(domain.ErrParse, "empty name")
	}
	if rec.State == "" {
		rec.State = domain.StateFromStatusText(jr.Status)
	}
	return rec, nil
}

type jsonEvent struct {
	Type   string `json:"Type"`
	Action string `json:"Action"`
	Status string `json:"status"`
	ID     string `json:"id"`
	Actor  struct {
		ID string `json:"ID"`
	} `json:"Actor"`
}

// ParseEvent parses one `events --format '{{json .}}'` line.
func ParseEvent(line string) (domain.EngineEvent, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.EngineEvent{}, errors.Wrap(domain.ErrParse, "empty event")
	}
	var je jsonEvent
	if err := json.Unmarshal([]byte(line), &je); err != nil {
		return domain.EngineEvent{}, errors.Wrapf(domain.ErrParse, "%v", err)
	}
	ev := domain.EngineEvent{
		Type:        strings.ToLower(je.Type),
		Action:      je.Action,
		ContainerID: je.Actor.ID,
	}
	if ev.Action == "" {
		ev.Action = je.Status
	}
	if ev.ContainerID == "" {
		ev.ContainerID = je.ID
	}
	if ev.Type == "" || ev.Action == "" {
		return domain.EngineEvent{}, errors.Wrap(domain.ErrParse, "event without type or action")
	}
	return ev, nil
}
