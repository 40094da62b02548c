package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToEmptyStringsAndBack(t *testing.T) {
	in := map[string]any{"comments": nil, "matNumber": 4, "features": "H"}

	form := ToEmptyStrings(in)
	assert.Equal(t, map[string]any{"comments": "", "matNumber": 4, "features": "H"}, form)
	assert.Nil(t, in["comments"], "input must not change")

	wire := ToNullValues(form)
	assert.Equal(t, in, wire)
}

func TestPointerForms(t *testing.T) {
	assert.Equal(t, "", EmptyIfNil(nil))
	assert.Nil(t, NilIfEmpty(""))

	p := NilIfEmpty("06:00")
	if assert.NotNil(t, p) {
		assert.Equal(t, "06:00", EmptyIfNil(p))
	}
}

func TestWithFlattenedObject(t *testing.T) {
	reg := map[string]any{
		"id": 1,
		"guest": map[string]any{
			"firstName": "Barney",
			"lastName":  "Rubble",
			"address":   map[string]any{"city": "Bedrock"},
		},
	}

	got := WithFlattenedObject(reg, "guest")
	assert.Equal(t, "Barney", got["guest.firstName"])
	assert.Equal(t, "Rubble", got["guest.lastName"])
	assert.Equal(t, map[string]any{"city": "Bedrock"}, got["guest.address"])
	assert.NotContains(t, got, "guest")
	assert.Contains(t, reg, "guest")

	t.Run("missing nested object", func(t *testing.T) {
		got := WithFlattenedObject(map[string]any{"id": 2, "guest": nil}, "guest")
		assert.Equal(t, map[string]any{"id": 2, "guest": nil}, got)
	})

	t.Run("slice", func(t *testing.T) {
		got := WithFlattenedObjects([]map[string]any{reg, {"id": 3}}, "guest")
		assert.Len(t, got, 2)
		assert.Equal(t, "Barney", got[0]["guest.firstName"])
		assert.Equal(t, map[string]any{"id": 3}, got[1])
	})
}
