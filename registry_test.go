package tabletalk_test

import (
	"testing"

	"github.com/mhalter/tabletalk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	t.Run("replaces disallowed characters", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "get_item", tabletalk.Sanitize("get.item"))
		assert.Equal(t, "my_tool_v2", tabletalk.Sanitize("my tool.v2"))
		assert.Equal(t, "a_b_c_", tabletalk.Sanitize("a/b:c!"))
	})

	t.Run("identity on clean names", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"query", "list_tables", "Scan-2", "A_z09-"} {
			assert.Equal(t, name, tabletalk.Sanitize(name))
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"a.b.c", "weird name!", "käse", "", "ok_name"} {
			once := tabletalk.Sanitize(name)
			assert.Equal(t, once, tabletalk.Sanitize(once))
		}
	})

	t.Run("multibyte runes become underscores per byte", func(t *testing.T) {
		t.Parallel()
		got := tabletalk.Sanitize("é")
		assert.Equal(t, got, tabletalk.Sanitize(got))
		for _, c := range []byte(got) {
			assert.Equal(t, byte('_'), c)
		}
	})
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	t.Parallel()

	t.Run("resolves sanitized names to originals", func(t *testing.T) {
		t.Parallel()
		r := tabletalk.NewRegistry()
		collisions := r.Register([]tabletalk.Tool{
			{Name: "get.item", Description: "point read"},
			{Name: "query", Description: "key lookup"},
		})
		assert.Zero(t, collisions)
		assert.Equal(t, "get.item", r.Resolve("get_item"))
		assert.Equal(t, "query", r.Resolve("query"))
	})

	t.Run("unknown names pass through unchanged", func(t *testing.T) {
		t.Parallel()
		r := tabletalk.NewRegistry()
		assert.Equal(t, "never_registered", r.Resolve("never_registered"))
	})

	t.Run("clean name round trip", func(t *testing.T) {
		t.Parallel()
		r := tabletalk.NewRegistry()
		r.Register([]tabletalk.Tool{{Name: "list_tables"}})
		assert.Equal(t, "list_tables", r.Resolve(tabletalk.Sanitize("list_tables")))
	})

	t.Run("collision keeps the later mapping", func(t *testing.T) {
		t.Parallel()
		r := tabletalk.NewRegistry()
		collisions := r.Register([]tabletalk.Tool{
			{Name: "get.item"},
			{Name: "get:item"},
		})
		assert.Equal(t, 1, collisions)
		assert.Equal(t, "get:item", r.Resolve("get_item"))
	})

	t.Run("register rebuilds the mapping in full", func(t *testing.T) {
		t.Parallel()
		r := tabletalk.NewRegistry()
		r.Register([]tabletalk.Tool{{Name: "old.tool"}})
		r.Register([]tabletalk.Tool{{Name: "new.tool"}})
		assert.Equal(t, "new.tool", r.Resolve("new_tool"))
		// Stale entry from the first catalog is gone.
		assert.Equal(t, "old_tool", r.Resolve("old_tool"))
	})
}

func TestRegistry_Tools(t *testing.T) {
	t.Parallel()

	r := tabletalk.NewRegistry()
	r.Register([]tabletalk.Tool{
		{Name: "scan", Description: "full scan"},
		{Name: "get.item", Description: "point read"},
	})

	tools := r.Tools()
	require.Len(t, tools, 2)
	// Sanitized and sorted by name.
	assert.Equal(t, "get_item", tools[0].Name)
	assert.Equal(t, "scan", tools[1].Name)
	assert.Equal(t, 2, r.Len())

	// Returned slice is a copy.
	tools[0].Name = "mutated"
	assert.Equal(t, "get_item", r.Tools()[0].Name)
}
