// Package chatexport reads patrol-group chat exports and returns the messages
// of a time window as report text.
package chatexport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrNoMessages = errors.New("no messages in window")

// Message is one chat message. System lines have no author.
type Message struct {
	At     time.Time
	Author string
	Text   string
}

var (
	// 10/03/2024 22:10 - João: text (the comma after the date is optional)
	dashLine = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4}),? (\d{1,2}):(\d{2})(?::(\d{2}))? - (.*)$`)
	// [10/03/2024, 22:10:05] João: text
	bracketLine = regexp.MustCompile(`^\[(\d{1,2})/(\d{1,2})/(\d{2,4}),? (\d{1,2}):(\d{2})(?::(\d{2}))?\] (.*)$`)
)

// Parse reads an export. Lines that do not start a message are appended to the
// previous one; text before the first message is ignored.
func Parse(r io.Reader, loc *time.Location) ([]Message, error) {
	if loc == nil {
		loc = time.Local
	}
	var msgs []Message
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(strings.TrimLeft(sc.Text(), "\u200e\ufeff"), "\r")
		if msg, ok := parseLine(line, loc); ok {
			msgs = append(msgs, msg)
			continue
		}
		if len(msgs) > 0 {
			last := &msgs[len(msgs)-1]
			last.Text += "\n" + line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading chat export: %w", err)
	}
	for i := range msgs {
		msgs[i].Text = strings.TrimRight(msgs[i].Text, "\n ")
	}
	return msgs, nil
}

func parseLine(line string, loc *time.Location) (Message, bool) {
	m := dashLine.FindStringSubmatch(line)
	if m == nil {
		m = bracketLine.FindStringSubmatch(line)
	}
	if m == nil {
		return Message{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	sec := 0
	if m[6] != "" {
		sec, _ = strconv.Atoi(m[6])
	}
	at := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)
	if at.Day() != day || at.Hour() != hour || at.Minute() != minute {
		return Message{}, false
	}

	msg := Message{At: at, Text: m[7]}
	if author, text, ok := strings.Cut(m[7], ": "); ok && author != "" {
		msg.Author, msg.Text = author, text
	}
	return msg, true
}

// Between returns the messages with At in [start, end).
func Between(msgs []Message, start, end time.Time) []Message {
	var out []Message
	for _, m := range msgs {
		if !m.At.Before(start) && m.At.Before(end) {
			out = append(out, m)
		}
	}
	return out
}

// Render writes one "HH:MM Author: text" entry per message.
func Render(msgs []Message) string {
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(m.At.Format("15:04"))
		sb.WriteByte(' ')
		if m.Author != "" {
			sb.WriteString(m.Author)
			sb.WriteString(": ")
		}
		sb.WriteString(m.Text)
	}
	return sb.String()
}

// FileSource serves windows of an export file.
type FileSource struct {
	Path     string
	Location *time.Location
}

// Retrieve parses the file and renders the messages inside [start, end).
func (s FileSource) Retrieve(ctx context.Context, start, end time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return "", fmt.Errorf("opening chat export: %w", err)
	}
	defer f.Close()

	msgs, err := Parse(f, s.Location)
	if err != nil {
		return "", err
	}
	window := Between(msgs, start, end)
	if len(window) == 0 {
		return "", fmt.Errorf("%w: %s to %s", ErrNoMessages, start.Format("02/01/2006 15:04"), end.Format("02/01/2006 15:04"))
	}
	return Render(window), nil
}
