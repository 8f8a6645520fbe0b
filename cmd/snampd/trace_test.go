package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snamp-platform/snamp-go/pkg/log"
)

func writeTrace(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.cbor")
	fl, err := log.NewFileLogger(path)
	require.NoError(t, err)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fl.Log(log.Event{
		Timestamp: base,
		Category:  log.CategoryAttribute,
		Component: log.ComponentRepository,
		Resource:  "pump",
		Feature:   "pressure",
		Attribute: &log.AttributeEvent{Op: log.OpRead, Value: "4.2", Duration: time.Millisecond},
	})
	fl.Log(log.Event{
		Timestamp: base.Add(time.Second),
		Category:  log.CategoryAttribute,
		Component: log.ComponentRepository,
		Resource:  "pump",
		Feature:   "flow",
		Attribute: &log.AttributeEvent{Op: log.OpRead, TimedOut: true},
	})
	fl.Log(log.Event{
		Timestamp:    base.Add(2 * time.Second),
		Category:     log.CategoryNotification,
		Component:    log.ComponentDispatcher,
		Resource:     "valve",
		Feature:      "alarm",
		Notification: &log.NotificationEvent{Sequence: 7, Message: "stuck", Listeners: 2},
	})
	require.NoError(t, fl.Close())
	return path
}

func runTrace(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.Writer = &out
	require.NoError(t, cmd.Run(context.Background(), append([]string{name, "trace"}, args...)))
	return out.String()
}

func TestTraceView(t *testing.T) {
	path := writeTrace(t)

	out := runTrace(t, "view", path)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "pump/pressure READ 4.2")
	assert.Contains(t, lines[1], "timed out")
	assert.Contains(t, lines[2], `seq=7 listeners=2 "stuck"`)

	out = runTrace(t, "view", "--resource", "valve", path)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "valve/alarm")

	out = runTrace(t, "view", "--category", "attribute", path)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestTraceExportJSONL(t *testing.T) {
	path := writeTrace(t)

	out := runTrace(t, "export", "--feature", "pressure", path)
	sc := bufio.NewScanner(strings.NewReader(out))
	var events []log.Event
	for sc.Scan() {
		var ev log.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.Equal(t, "pump", events[0].Resource)
	require.NotNil(t, events[0].Attribute)
	assert.Equal(t, "4.2", events[0].Attribute.Value)
}

func TestTraceExportCSV(t *testing.T) {
	path := writeTrace(t)

	out := runTrace(t, "export", "--format", "csv", path)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "timestamp,category,component,resource,feature,subscription,detail", lines[0])
	assert.Contains(t, lines[3], "NOTIFICATION,DISPATCHER,valve,alarm")
}

func TestTraceStats(t *testing.T) {
	path := writeTrace(t)

	out := runTrace(t, "stats", path)
	assert.Contains(t, out, "Events:   3\n")
	assert.Contains(t, out, "Timeouts: 1\n")
	assert.Contains(t, out, "(2s)")
	assert.Regexp(t, `ATTRIBUTE\s+2`, out)
	assert.Regexp(t, `NOTIFICATION\s+1`, out)
	assert.Regexp(t, `pump\s+2`, out)
}

func TestTraceErrors(t *testing.T) {
	path := writeTrace(t)
	cmd := rootCmd()
	cmd.Writer = &bytes.Buffer{}

	err := cmd.Run(context.Background(), []string{name, "trace", "view", "--category", "bogus", path})
	assert.ErrorContains(t, err, "unknown event category")

	cmd = rootCmd()
	cmd.Writer = &bytes.Buffer{}
	err = cmd.Run(context.Background(), []string{name, "trace", "export", "--format", "xml", path})
	assert.ErrorContains(t, err, "unknown format")

	cmd = rootCmd()
	cmd.Writer = &bytes.Buffer{}
	err = cmd.Run(context.Background(), []string{name, "trace", "view"})
	assert.ErrorContains(t, err, "missing trace file")
}
