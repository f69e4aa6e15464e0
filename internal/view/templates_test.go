package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderHomeShowsOnlyGivenNav(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/home.html", TemplateData{
		Title:       "Home",
		CurrentPath: "/",
		User:        &shared.Principal{Name: "Ayesha", Role: "DYEING"},
		Nav:         []NavLink{{Name: "Dyeing", Href: "/dyeing"}},
	})
	require.NoError(t, err)
	body := rec.Body.String()
	assert.Contains(t, body, "Ayesha")
	assert.Contains(t, body, `href="/dyeing"`)
	assert.NotContains(t, body, `href="/users"`)
}

func TestRenderNilEngine(t *testing.T) {
	var e *Engine
	assert.Error(t, e.Render(httptest.NewRecorder(), "pages/home.html", TemplateData{}))
}
