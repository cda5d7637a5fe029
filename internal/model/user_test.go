package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_JSONNeverExposesHash(t *testing.T) {
	u := &User{ID: 1, Name: "Ann", Email: "ann@x.com", PasswordHash: "$2a$12$abc", CreatedAt: time.Now()}

	payload, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "$2a$12$abc")
	assert.NotContains(t, string(payload), "password")
}

func TestUser_Views(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u := &User{ID: 7, Name: "Ann", Email: "ann@x.com", PasswordHash: "h", CreatedAt: created}

	assert.Equal(t, &PublicUser{ID: 7, Name: "Ann", Email: "ann@x.com"}, u.Public())
	assert.Equal(t, &Profile{ID: 7, Name: "Ann", Email: "ann@x.com", CreatedAt: created}, u.Profile())
}
