package sessionlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/SawyerHood/codex/internal/ndjson"
	"github.com/SawyerHood/codex/protocol"
)

// Loader streams a recorded session. Malformed lines are skipped and
// reported through Problems rather than ending the read.
type Loader struct {
	r          *ndjson.Reader
	header     Header
	problems   []string
	pending    []byte
	line       int
	headerRead bool
}

// NewLoader reads a session log from r.
func NewLoader(r io.Reader) *Loader {
	return &Loader{r: ndjson.NewReader(r)}
}

// ReadHeader reads the two-line preamble. Next calls it implicitly, so
// only callers that want the header need to. A log that starts straight
// with entries yields an empty header and a problem report.
func (l *Loader) ReadHeader() (Header, error) {
	if l.headerRead {
		return l.header, nil
	}
	l.headerRead = true

	line, err := l.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, ErrEmptyLog
		}
		return Header{}, err
	}
	var config map[string]string
	if lineDirection(line) != "" || json.Unmarshal(line, &config) != nil {
		l.pushBack(line)
		l.problem("log has no configuration summary line")
		return l.header, nil
	}
	l.header.Config = config

	line, err = l.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			l.problem("log ends before the prompt line")
			return l.header, nil
		}
		return l.header, err
	}
	var p struct {
		Prompt *string `json:"prompt"`
	}
	if lineDirection(line) != "" || json.Unmarshal(line, &p) != nil || p.Prompt == nil {
		l.pushBack(line)
		l.problem("log has no prompt line")
		return l.header, nil
	}
	l.header.Prompt = *p.Prompt

	return l.header, nil
}

// NextEntry returns the next direction-tagged entry. io.EOF ends the
// stream.
func (l *Loader) NextEntry() (Entry, error) {
	if !l.headerRead {
		if _, err := l.ReadHeader(); err != nil {
			return Entry{}, eofOr(err)
		}
	}
	for {
		line, err := l.readLine()
		if err != nil {
			return Entry{}, err
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			l.problem(fmt.Sprintf("line %d: not a log entry: %v", l.line, err))
			continue
		}
		switch entry.Direction {
		case DirectionReceived, DirectionSent:
			return entry, nil
		case "":
			l.problem(fmt.Sprintf("line %d: missing direction", l.line))
		default:
			l.problem(fmt.Sprintf("line %d: unknown direction %q", l.line, entry.Direction))
		}
	}
}

// Next returns the next recorded event, skipping submissions. io.EOF
// ends the stream.
func (l *Loader) Next() (protocol.Event, error) {
	for {
		entry, err := l.NextEntry()
		if err != nil {
			return protocol.Event{}, err
		}
		if entry.Direction != DirectionReceived {
			continue
		}
		ev, err := protocol.ParseEvent(entry.Message)
		if err != nil {
			l.problem(fmt.Sprintf("line %d: bad event: %v", l.line, err))
			continue
		}
		return ev, nil
	}
}

// Problems lists the lines skipped so far, in order.
func (l *Loader) Problems() []string {
	return append([]string(nil), l.problems...)
}

func (l *Loader) readLine() ([]byte, error) {
	if l.pending != nil {
		line := l.pending
		l.pending = nil
		return line, nil
	}
	line, err := l.r.ReadLine()
	if err != nil {
		return nil, err
	}
	l.line++
	return line, nil
}

func (l *Loader) pushBack(line []byte) {
	l.pending = line
}

func (l *Loader) problem(msg string) {
	l.problems = append(l.problems, msg)
}

func lineDirection(line []byte) Direction {
	var probe struct {
		Direction Direction `json:"direction"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return ""
	}
	return probe.Direction
}

// eofOr maps ErrEmptyLog to io.EOF for the streaming methods, which
// treat an empty log as an empty stream.
func eofOr(err error) error {
	if errors.Is(err, ErrEmptyLog) {
		return io.EOF
	}
	return err
}

// Log is a fully loaded session: the header, every well-formed entry,
// and the entries parsed into wire types.
type Log struct {
	Header      Header
	Entries     []Entry
	Events      []protocol.Event
	Submissions []protocol.Submission
	Problems    []string
}

// Load reads a whole session log from r.
func Load(r io.Reader) (*Log, error) {
	l := NewLoader(r)
	header, err := l.ReadHeader()
	if err != nil {
		return nil, err
	}

	log := &Log{Header: header}
	for {
		entry, err := l.NextEntry()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		log.Entries = append(log.Entries, entry)

		switch entry.Direction {
		case DirectionReceived:
			ev, err := protocol.ParseEvent(entry.Message)
			if err != nil {
				l.problem(fmt.Sprintf("line %d: bad event: %v", l.line, err))
				continue
			}
			log.Events = append(log.Events, ev)
		case DirectionSent:
			sub, err := protocol.ParseSubmission(entry.Message)
			if err != nil {
				l.problem(fmt.Sprintf("line %d: bad submission: %v", l.line, err))
				continue
			}
			log.Submissions = append(log.Submissions, sub)
		}
	}
	log.Problems = l.Problems()
	return log, nil
}

// LoadFile reads a whole session log from disk.
func LoadFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	log, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading session log %s: %w", path, err)
	}
	return log, nil
}
