package npc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/npc"
)

func TestManagerRejectsDuplicateTemplates(t *testing.T) {
	_, err := npc.NewManager([]*npc.Template{ratTemplate(), ratTemplate()})
	assert.Error(t, err)
}

func TestSpawnAssignsSequentialIDs(t *testing.T) {
	m, err := npc.NewManager([]*npc.Template{ratTemplate()})
	require.NoError(t, err)

	first, err := m.Spawn("giant-rat")
	require.NoError(t, err)
	second, err := m.Spawn("giant-rat")
	require.NoError(t, err)

	assert.Equal(t, "giant-rat-1", first.ID)
	assert.Equal(t, "giant-rat-2", second.ID)
	assert.Equal(t, 2, m.Count())

	got, ok := m.Get("giant-rat-1")
	require.True(t, ok)
	assert.Equal(t, "giant-rat", got.TemplateID)
	assert.Equal(t, "pit-den", got.HomeCellID)
}

func TestSpawnUnknownTemplate(t *testing.T) {
	m, err := npc.NewManager(nil)
	require.NoError(t, err)
	_, err = m.Spawn("nonesuch")
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	m, err := npc.NewManager([]*npc.Template{ratTemplate()})
	require.NoError(t, err)

	inst, err := m.Spawn("giant-rat")
	require.NoError(t, err)

	require.NoError(t, m.Remove(inst.ID))
	assert.Equal(t, 0, m.Count())
	_, ok := m.Get(inst.ID)
	assert.False(t, ok)
	assert.Error(t, m.Remove(inst.ID))
}

func TestTemplateLookup(t *testing.T) {
	m, err := npc.NewManager([]*npc.Template{ratTemplate()})
	require.NoError(t, err)

	tmpl, ok := m.Template("giant-rat")
	require.True(t, ok)
	assert.Equal(t, "a giant rat", tmpl.Name)

	_, ok = m.Template("nonesuch")
	assert.False(t, ok)
}
