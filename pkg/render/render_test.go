package render_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/render"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := render.ParseFormat("json", render.FormatText, render.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, render.FormatJSON, f)

	_, err = render.ParseFormat("html", render.FormatText)
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestEncoders(t *testing.T) {
	t.Parallel()

	v := map[string]int{"count": 2}

	var js, ym bytes.Buffer

	require.NoError(t, render.JSON(&js, v))
	require.NoError(t, render.YAML(&ym, v))

	assert.JSONEq(t, `{"count":2}`, js.String())
	assert.YAMLEq(t, "count: 2\n", ym.String())
}

func TestPainterOffForBuffers(t *testing.T) {
	t.Parallel()

	p := render.NewPainter(&bytes.Buffer{})

	assert.Equal(t, "a.go", p.Paint(cursor.ColorNew, "a.go"))
}
