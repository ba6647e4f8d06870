package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProdFact/telamentis/pkg/pipeline"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf)

	require.NoError(t, logger.Log(Event{
		Type:   EventGraphWrite,
		Tenant: "acme",
		Method: "POST",
		Path:   "/v1/graph/acme/nodes",
	}))
	require.NoError(t, logger.Log(Event{Type: EventHealth}))

	scanner := bufio.NewScanner(&buf)
	var events []Event
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}

	require.Len(t, events, 2)
	assert.Equal(t, EventGraphWrite, events[0].Type)
	assert.Equal(t, "acme", events[0].Tenant)
	assert.False(t, events[0].Time.IsZero(), "timestamp stamped on write")
	assert.Equal(t, EventHealth, events[1].Type)
}

func TestLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	logger, err := NewLogger(path)
	require.NoError(t, err)
	require.NoError(t, logger.Log(Event{Type: EventGraphRead}))
	require.NoError(t, logger.Close())

	// Re-opening appends rather than truncating.
	logger, err = NewLogger(path)
	require.NoError(t, err)
	require.NoError(t, logger.Log(Event{Type: EventGraphDelete}))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}

func TestPluginRecordsRequests(t *testing.T) {
	var buf bytes.Buffer
	plugin := NewPlugin(NewLoggerWithWriter(&buf))
	require.NoError(t, plugin.Init(pipeline.DefaultPluginConfig()))

	rc := pipeline.NewRequestContext("POST", "/graph/acme/nodes")
	rc.Tenant = "acme"

	outcome := plugin.Call(t.Context(), rc)
	assert.False(t, outcome.Halted())

	var event Event
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &event))
	assert.Equal(t, EventGraphWrite, event.Type)
	assert.Equal(t, "acme", event.Tenant)
	assert.Equal(t, rc.RequestID.String(), event.RequestID)
}

func TestEventTypeClassification(t *testing.T) {
	assert.Equal(t, EventLLMExtract, eventTypeFor("POST", "/llm/t/extract"))
	assert.Equal(t, EventLLMIngest, eventTypeFor("POST", "/llm/t/ingest"))
	assert.Equal(t, EventTenantAdmin, eventTypeFor("POST", "/v1/tenants"))
	assert.Equal(t, EventGraphDelete, eventTypeFor("DELETE", "/graph/t/nodes/x"))
	assert.Equal(t, EventGraphRead, eventTypeFor("GET", "/graph/t/nodes/x"))
	assert.Equal(t, EventGraphWrite, eventTypeFor("POST", "/graph/t/nodes"))
	assert.Equal(t, EventHealth, eventTypeFor("GET", "/healthz"))
}
