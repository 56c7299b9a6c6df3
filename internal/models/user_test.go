package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCapabilityAcceptsRolePrefix(t *testing.T) {
	user := NewCurrentUser("1", "a@ucsb.edu", "A", "ROLE_USER", "professor")

	assert.True(t, HasCapability(user, CapabilityUser))
	assert.True(t, HasCapability(user, CapabilityProfessor))
	assert.True(t, HasCapability(user, "ROLE_PROFESSOR"))
	assert.False(t, HasCapability(user, CapabilityAdmin))
}

func TestHasCapabilityOnEmptyUser(t *testing.T) {
	var user CurrentUser
	assert.True(t, user.Anonymous())
	assert.False(t, HasCapability(user, CapabilityUser))
	assert.False(t, HasAnyCapability(user, CapabilityUser, CapabilityAdmin))
}

func TestRolesAreDeduplicatedAndCopied(t *testing.T) {
	user := NewCurrentUser("1", "", "", "ROLE_ADMIN", "ADMIN", " ", "ROLE_USER")
	roles := user.Roles()
	assert.Equal(t, []Capability{CapabilityAdmin, CapabilityUser}, roles)

	roles[0] = CapabilityStudent
	assert.False(t, HasCapability(user, CapabilityStudent))
}

func TestSessionClaimsCurrentUser(t *testing.T) {
	claims := &SessionClaims{UserID: "7", Email: "s@ucsb.edu", FullName: "Stu", Roles: []string{"ROLE_STUDENT"}}
	user := claims.CurrentUser()
	assert.Equal(t, "7", user.ID)
	assert.True(t, HasCapability(user, CapabilityStudent))

	var nilClaims *SessionClaims
	assert.True(t, nilClaims.CurrentUser().Anonymous())
}

func TestSummarizeRequests(t *testing.T) {
	stats := SummarizeRequests([]RecommendationRequest{
		{ID: 1, Status: StatusPending},
		{ID: 2, Status: StatusCompleted},
		{ID: 3, Status: StatusDenied},
		{ID: 4, Status: StatusPending},
		{ID: 5, Status: "ARCHIVED"},
	})

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Open)
	assert.Equal(t, 2, stats.Closed)
	assert.Equal(t, StatusCount{Status: StatusPending, Count: 2}, stats.Counts[0])
	assert.Equal(t, StatusCount{Status: StatusSubmitted, Count: 0}, stats.Counts[1])
}

func TestFilterRequestsKeepsOrder(t *testing.T) {
	open := FilterRequests([]RecommendationRequest{
		{ID: 3, Status: StatusPending},
		{ID: 1, Status: StatusCompleted},
		{ID: 2, Status: StatusSubmitted},
	}, func(r RecommendationRequest) bool { return r.Status.IsOpen() })

	assert.Len(t, open, 2)
	assert.Equal(t, int64(3), open[0].ID)
	assert.Equal(t, int64(2), open[1].ID)
}
