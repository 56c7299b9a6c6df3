package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rec-portal/internal/models"
)

var sampleRequests = []models.RecommendationRequest{
	{
		ID:                 1,
		Professor:          models.UserRef{ID: 2, FullName: "Phill Conrad", Email: "pconrad@ucsb.edu"},
		Requester:          models.UserRef{ID: 5, FullName: "Chris Gaucho", Email: "cgaucho@ucsb.edu"},
		RecommendationType: "PhD program",
		Details:            "Fall 2025",
		Status:             models.StatusPending,
		SubmissionDate:     "2023-01-15T10:30:05Z",
		DueDate:            "2023-02-01T08:00:09Z",
	},
	{
		ID:             2,
		Status:         models.StatusCompleted,
		CompletionDate: "not a date",
	},
}

func TestBuildTableProfessorPendingGetsStatusSelector(t *testing.T) {
	professor := models.NewCurrentUser("2", "pconrad@ucsb.edu", "Phill Conrad", "ROLE_USER", "ROLE_PROFESSOR")

	table := BuildTable(sampleRequests, professor, TableOptions{Pending: true, Location: time.UTC})

	require.Len(t, table.Rows, 2)
	for _, row := range table.Rows {
		assert.True(t, row.Status.Editable)
		assert.Equal(t, StatusURL(row.ID), row.Status.Action)
		require.Len(t, row.Status.Choices, 3)
		assert.Equal(t, "PENDING", row.Status.Choices[0].Value)
		assert.Equal(t, "COMPLETED", row.Status.Choices[1].Value)
		assert.Equal(t, "DENIED", row.Status.Choices[2].Value)
	}
	assert.True(t, table.Rows[0].Status.Choices[0].Selected)
	assert.True(t, table.Rows[1].Status.Choices[1].Selected)
}

func TestBuildTableStatusIsTextOutsidePending(t *testing.T) {
	professor := models.NewCurrentUser("2", "", "", "ROLE_PROFESSOR")
	student := models.NewCurrentUser("5", "", "", "ROLE_USER", "ROLE_STUDENT")

	completed := BuildTable(sampleRequests, professor, TableOptions{Pending: false})
	pendingStudent := BuildTable(sampleRequests, student, TableOptions{Pending: true})

	assert.False(t, completed.Rows[0].Status.Editable)
	assert.Empty(t, completed.Rows[0].Status.Choices)
	assert.False(t, pendingStudent.Rows[0].Status.Editable)
	assert.Equal(t, models.StatusPending, pendingStudent.Rows[0].Status.Current)
}

func TestBuildTableActionColumnsByRole(t *testing.T) {
	user := models.NewCurrentUser("5", "", "", "ROLE_USER")
	admin := models.NewCurrentUser("1", "", "", "ROLE_USER", "ROLE_ADMIN")
	nobody := models.NewCurrentUser("9", "", "")

	userTable := BuildTable(sampleRequests, user, TableOptions{})
	assert.True(t, userTable.ShowDelete)
	assert.True(t, userTable.ShowEdit)
	assert.Equal(t, append(append([]string(nil), RequestColumns...), "Delete", "Edit"), userTable.Columns)
	assert.Equal(t, "/student/recommendations/edit/1", userTable.Rows[0].EditURL)
	assert.Equal(t, "/requests/1/delete", userTable.Rows[0].DeleteURL)

	adminTable := BuildTable(sampleRequests, admin, TableOptions{})
	assert.True(t, adminTable.ShowDelete)
	assert.False(t, adminTable.ShowEdit)
	assert.Empty(t, adminTable.Rows[0].EditURL)
	assert.Equal(t, append(append([]string(nil), RequestColumns...), "Delete"), adminTable.Columns)

	noneTable := BuildTable(sampleRequests, nobody, TableOptions{})
	assert.False(t, noneTable.ShowDelete)
	assert.False(t, noneTable.ShowEdit)
	assert.Equal(t, RequestColumns, noneTable.Columns)
	assert.Empty(t, noneTable.Rows[0].DeleteURL)
}

func TestBuildTableFormatsDateColumns(t *testing.T) {
	table := BuildTable(sampleRequests, models.CurrentUser{}, TableOptions{Location: time.UTC})

	first := table.Rows[0]
	assert.Equal(t, "01:15:2023 10:05", first.SubmissionDate)
	assert.Equal(t, "02:01:2023 08:09", first.DueDate)
	assert.Equal(t, "", first.LastModifiedDate)
	assert.Equal(t, "", first.CompletionDate)
	assert.Equal(t, "", table.Rows[1].CompletionDate)

	assert.Equal(t, "Phill Conrad", first.ProfessorName)
	assert.Equal(t, "pconrad@ucsb.edu", first.ProfessorEmail)
	assert.Equal(t, "Chris Gaucho", first.RequesterName)
	assert.Equal(t, "cgaucho@ucsb.edu", first.RequesterEmail)
}

func TestBuildTableEmpty(t *testing.T) {
	table := BuildTable(nil, models.CurrentUser{}, TableOptions{})
	assert.NotNil(t, table.Rows)
	assert.Empty(t, table.Rows)
}
