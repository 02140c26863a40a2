package product

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_UnmarshalObjectForm(t *testing.T) {
	var r Ref
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","name":"Bottle","price":25}`), &r))

	assert.True(t, r.IsFull())
	assert.Equal(t, "p1", r.ID)
	assert.True(t, r.Matches("p1"))
	assert.False(t, r.Matches("p2"))
	require.NotNil(t, r.Product)
	assert.Equal(t, 25.0, r.Product.Price)
}

func TestRef_UnmarshalBareID(t *testing.T) {
	var r Ref
	require.NoError(t, json.Unmarshal([]byte(`"p1"`), &r))

	assert.False(t, r.IsFull())
	assert.Equal(t, "p1", r.ID)
	assert.True(t, r.Matches("p1"))
	assert.Nil(t, r.Product)
}

func TestRef_MarshalKeepsWireForm(t *testing.T) {
	full, err := json.Marshal(FullRef(Product{ID: "p1", Name: "Bottle", Price: 25}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"p1","name":"Bottle","price":25}`, string(full))

	bare, err := json.Marshal(NewRef("p1"))
	require.NoError(t, err)
	assert.Equal(t, `"p1"`, string(bare))
}

func TestRef_UnmarshalRejectsOtherShapes(t *testing.T) {
	var r Ref
	assert.Error(t, json.Unmarshal([]byte(`42`), &r))
}
