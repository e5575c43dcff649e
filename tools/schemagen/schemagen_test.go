package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/hierarchy"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history/historytest"
	"github.com/Sumatoshi-tech/codeatlas/pkg/session"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
	"github.com/Sumatoshi-tech/codeatlas/pkg/timeline"
)

func validate(t *testing.T, schema *Schema, doc any) {
	t.Helper()

	schemaJSON, err := json.Marshal(schema)
	require.NoError(t, err)

	docJSON, err := json.Marshal(doc)
	require.NoError(t, err)

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(docJSON))
	require.NoError(t, err)

	for _, re := range result.Errors() {
		t.Errorf("schema violation: %s", re)
	}
}

func TestRecursiveTypeTerminates(t *testing.T) {
	t.Parallel()

	schema := generateSchema("Tree", hierarchy.Node{})

	assert.Equal(t, "#/definitions/Node", schema.Ref)
	require.Contains(t, schema.Definitions, "Node")

	children := schema.Definitions["Node"].Properties["children"]
	require.NotNil(t, children)
	assert.Equal(t, "#/definitions/Node", children.Items.Ref)
	assert.NotContains(t, schema.Definitions["Node"].Required, "children")
}

func TestEmbeddedFieldsAreFlattened(t *testing.T) {
	t.Parallel()

	schema := generateSchema("Commit timeline", []timeline.Entry{})

	entry := schema.Definitions["Entry"]
	require.NotNil(t, entry)

	for _, name := range []string{"id", "timestamp", "author", "message", "files"} {
		assert.Contains(t, entry.Properties, name)
		assert.Contains(t, entry.Required, name)
	}

	assert.Equal(t, "date-time", entry.Properties["timestamp"].Format)
	assert.NotContains(t, entry.Required, "parents")
}

func TestResponseSchemaAcceptsSessionOutput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := historytest.New().
		Commit("c0", historytest.Add("src/a.go")).
		Commit("c1", historytest.Modify("src/a.go"), historytest.Add("README.md"))

	cur, err := cursor.New(ctx, repo, snapshot.NewBuilder(repo, nil), cursor.Options{})
	require.NoError(t, err)

	sess := session.New(ctx, "schema", cur, session.Options{})
	t.Cleanup(sess.Close)

	schema := generateSchema("Session response", session.Response{})

	for _, req := range []session.Request{session.Fetch(1), {Command: session.CommandNext}} {
		require.NoError(t, sess.Send(ctx, req))

		select {
		case resp := <-sess.Responses():
			validate(t, schema, resp)
		case <-time.After(5 * time.Second):
			t.Fatal("no response")
		}
	}
}

func TestRunWritesEveryDocument(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "schemas")
	require.NoError(t, run(dir))

	for _, doc := range documents() {
		data, err := os.ReadFile(filepath.Join(dir, doc.name+".json"))
		require.NoError(t, err)

		var loaded Schema
		require.NoError(t, json.Unmarshal(data, &loaded))
		assert.Equal(t, doc.title, loaded.Title)
		assert.Equal(t, draft07, loaded.Schema)

		_, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		require.NoError(t, err, doc.name)
	}
}
