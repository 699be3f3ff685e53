package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoles(t *testing.T) {
	role, err := ParseRole("DistributionCenter")
	require.NoError(t, err)
	assert.Equal(t, RoleDistributionCenter, role)
	assert.Equal(t, "Distribution Center", role.Label())
	assert.True(t, role.Receives())
	assert.False(t, role.CanCreateProducts())

	_, err = ParseRole("Farmer")
	assert.Error(t, err)

	assert.Equal(t, "Unknown", Role(9).Label())
	assert.True(t, RoleManufacturer.CanCreateProducts())
	assert.True(t, RoleManufacturer.Receives())
}

func TestShipmentStatus(t *testing.T) {
	assert.Len(t, ShipmentStatuses(), 8)
	assert.Equal(t, "Out For Delivery", StatusOutForDelivery.Label())
	assert.Equal(t, float64(0), StatusNotShipped.Progress())
	assert.Equal(t, float64(100), StatusDelivered.Progress())
	assert.Equal(t, float64(0), ShipmentStatus(42).Progress())

	assert.True(t, StatusNotShipped.AtRest())
	assert.True(t, StatusDelivered.AtRest())
	assert.False(t, StatusPickedUp.AtRest())

	assert.False(t, StatusReadyForShipment.CarrierManaged())
	assert.True(t, StatusPickedUp.CarrierManaged())
	assert.True(t, StatusOutForDelivery.CarrierManaged())
	assert.False(t, StatusDelivered.CarrierManaged())
}

func TestJSONColumns(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var list StringList
	require.NoError(t, list.Scan([]byte(`["Farm","Hub"]`)))
	assert.Equal(t, StringList{"Farm", "Hub"}, list)

	var ids Uint64List
	require.NoError(t, ids.Scan(`[1,2,3]`))
	assert.Equal(t, Uint64List{1, 2, 3}, ids)

	var obj JSONB
	assert.Error(t, obj.Scan(42))
}
