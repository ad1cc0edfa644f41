package mediactl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderString(t *testing.T) {
	data := RenderData{Domain: "example.com", Timezone: "Etc/UTC", PUID: "1000"}

	out, err := renderString("TZ={{.Timezone}} host=watch.{{.Domain}}", data)
	require.NoError(t, err)
	assert.Equal(t, "TZ=Etc/UTC host=watch.example.com", out)
}

func TestRenderStringUnknownFieldFails(t *testing.T) {
	_, err := renderString("{{.NoSuchField}}", RenderData{})
	assert.Error(t, err, "an unset variable must be a hard error, not an empty substitution")
}

func TestRenderStringBadTemplate(t *testing.T) {
	_, err := renderString("{{.Domain", RenderData{})
	assert.Error(t, err)
}
