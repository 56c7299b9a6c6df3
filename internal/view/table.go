package view

import (
	"fmt"
	"time"

	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/pkg/datefmt"
)

// RequestColumns are the data columns of every request table, in order.
var RequestColumns = []string{
	"id",
	"Professor Name",
	"Professor Email",
	"Requester Name",
	"Requester Email",
	"Recommendation Type",
	"Details",
	"Status",
	"Submission Date",
	"Last Modified Date",
	"Completion Date",
	"Due Date",
}

// StatusCell renders either a status selector or plain text.
type StatusCell struct {
	Editable bool
	Current  models.RequestStatus
	Choices  []Option
	Action   string
}

// RowView is one rendered request.
type RowView struct {
	ID                 int64
	ProfessorName      string
	ProfessorEmail     string
	RequesterName      string
	RequesterEmail     string
	RecommendationType string
	Details            string
	Status             StatusCell
	SubmissionDate     string
	LastModifiedDate   string
	CompletionDate     string
	DueDate            string

	EditURL   string
	DeleteURL string
}

// TableView is the render model of a request table.
type TableView struct {
	Columns    []string
	Rows       []RowView
	ShowDelete bool
	ShowEdit   bool
	// ReturnTo is where row actions redirect after they settle.
	ReturnTo string
}

// TableOptions configures BuildTable.
type TableOptions struct {
	// Pending marks the pending-requests context, the only place statuses are editable.
	Pending  bool
	Location *time.Location
	ReturnTo string
}

// EditURL is the edit route of a request.
func EditURL(id int64) string {
	return fmt.Sprintf("/student/recommendations/edit/%d", id)
}

// StatusURL is the form target of the status selector.
func StatusURL(id int64) string {
	return fmt.Sprintf("/requests/%d/status", id)
}

// DeleteURL is the form target of the Delete action.
func DeleteURL(id int64) string {
	return fmt.Sprintf("/requests/%d/delete", id)
}

// CanDelete reports whether viewer gets the Delete action. Admins hold USER too.
func CanDelete(viewer models.CurrentUser) bool {
	return models.HasCapability(viewer, models.CapabilityUser)
}

// CanEdit reports whether viewer gets the Edit action. Admins may delete but not edit.
func CanEdit(viewer models.CurrentUser) bool {
	return models.HasCapability(viewer, models.CapabilityUser) && !models.HasCapability(viewer, models.CapabilityAdmin)
}

// CanChangeStatus reports whether viewer gets status selectors in the given context.
func CanChangeStatus(viewer models.CurrentUser, pending bool) bool {
	return pending && models.HasCapability(viewer, models.CapabilityProfessor)
}

// BuildTable renders requests for viewer.
func BuildTable(requests []models.RecommendationRequest, viewer models.CurrentUser, opts TableOptions) TableView {
	table := TableView{
		ShowDelete: CanDelete(viewer),
		ShowEdit:   CanEdit(viewer),
		ReturnTo:   opts.ReturnTo,
	}
	table.Columns = append([]string(nil), RequestColumns...)
	if table.ShowDelete {
		table.Columns = append(table.Columns, "Delete")
	}
	if table.ShowEdit {
		table.Columns = append(table.Columns, "Edit")
	}

	editable := CanChangeStatus(viewer, opts.Pending)
	table.Rows = make([]RowView, 0, len(requests))
	for _, r := range requests {
		row := RowView{
			ID:                 r.ID,
			ProfessorName:      r.Professor.FullName,
			ProfessorEmail:     r.Professor.Email,
			RequesterName:      r.Requester.FullName,
			RequesterEmail:     r.Requester.Email,
			RecommendationType: r.RecommendationType,
			Details:            r.Details,
			Status:             statusCell(r, editable),
			SubmissionDate:     datefmt.Format(r.SubmissionDate, opts.Location),
			LastModifiedDate:   datefmt.Format(r.LastModifiedDate, opts.Location),
			CompletionDate:     datefmt.Format(r.CompletionDate, opts.Location),
			DueDate:            datefmt.Format(r.DueDate, opts.Location),
		}
		if table.ShowDelete {
			row.DeleteURL = DeleteURL(r.ID)
		}
		if table.ShowEdit {
			row.EditURL = EditURL(r.ID)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func statusCell(r models.RecommendationRequest, editable bool) StatusCell {
	cell := StatusCell{Editable: editable, Current: r.Status}
	if !editable {
		return cell
	}
	cell.Action = StatusURL(r.ID)
	cell.Choices = make([]Option, 0, len(models.ProfessorStatusChoices))
	for _, s := range models.ProfessorStatusChoices {
		cell.Choices = append(cell.Choices, Option{Value: string(s), Label: string(s), Selected: s == r.Status})
	}
	return cell
}
