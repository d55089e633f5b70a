package permissions_test

import (
	"net/http"
	"testing"
	"thakajabe/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	data := permissions.Get()
	require.NotNil(t, data)
	assert.False(t, data.Skip)
	assert.NotEmpty(t, data.Endpoints)

	for _, endpoint := range data.Endpoints {
		assert.NotEmpty(t, endpoint.Method, endpoint.Path)
	}

	callback := data.FindPermissions("/v1/payments/callback/{kind}", http.MethodPost)
	assert.True(t, callback.Skip)

	approve := data.FindPermissions("/v1/payouts/{id}/approve", http.MethodPost)
	assert.ElementsMatch(t, []string{"admin", "superadmin"}, approve.Permissions)
}

func TestPermissionData_FindPermissions(t *testing.T) {
	data := &permissions.PermissionData{
		Endpoints: []permissions.Permission{
			{Path: "/v1/bookings/", Method: http.MethodPost, Permissions: []string{"guest"}},
			{Path: "/v1/ledger/summary", Method: http.MethodGet, Permissions: []string{"admin"}},
		},
	}

	tests := []struct {
		name   string
		path   string
		method string
		want   []string
	}{
		{name: "exact", path: "/v1/bookings/", method: http.MethodPost, want: []string{"guest"}},
		{name: "without trailing slash", path: "/v1/bookings", method: http.MethodPost, want: []string{"guest"}},
		{name: "with trailing slash", path: "/v1/ledger/summary/", method: http.MethodGet, want: []string{"admin"}},
		{name: "lowercase method", path: "/v1/ledger/summary", method: "get", want: []string{"admin"}},
		{name: "other method", path: "/v1/bookings/", method: http.MethodGet},
		{name: "unknown path", path: "/v1/unknown", method: http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, data.FindPermissions(tt.path, tt.method).Permissions)
		})
	}
}
