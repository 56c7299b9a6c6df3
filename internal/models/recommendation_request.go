package models

// RequestStatus is the lifecycle state of a recommendation request. The
// backend is authoritative; the portal only proposes transitions.
type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusSubmitted RequestStatus = "SUBMITTED"
	StatusCompleted RequestStatus = "COMPLETED"
	StatusDenied    RequestStatus = "DENIED"
)

// AllStatuses lists statuses in display order.
var AllStatuses = []RequestStatus{StatusPending, StatusSubmitted, StatusCompleted, StatusDenied}

// ProfessorStatusChoices are the statuses a professor may pick from the pending table.
var ProfessorStatusChoices = []RequestStatus{StatusPending, StatusCompleted, StatusDenied}

// IsOpen reports whether the request still awaits a professor decision.
func (s RequestStatus) IsOpen() bool {
	return s == StatusPending || s == StatusSubmitted
}

// IsClosed reports whether the request reached a terminal state.
func (s RequestStatus) IsClosed() bool {
	return s == StatusCompleted || s == StatusDenied
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// UserRef identifies a professor or requester attached to a request.
type UserRef struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// RecommendationRequest mirrors the backend representation. Timestamps stay
// as the ISO strings the backend sends; null decodes to "".
type RecommendationRequest struct {
	ID                 int64         `json:"id"`
	Professor          UserRef       `json:"professor"`
	Requester          UserRef       `json:"requester"`
	RecommendationType string        `json:"recommendationType"`
	Details            string        `json:"details"`
	Status             RequestStatus `json:"status"`
	SubmissionDate     string        `json:"submissionDate,omitempty"`
	LastModifiedDate   string        `json:"lastModifiedDate,omitempty"`
	CompletionDate     string        `json:"completionDate,omitempty"`
	DueDate            string        `json:"dueDate,omitempty"`
}

// RequestDraft is what a viewer submits through the request form. DueDate
// is the browser's datetime-local value, without a zone.
type RequestDraft struct {
	ProfessorID        string
	RecommendationType string
	Details            string
	DueDate            string
}

// RequestType is an entry of the recommendation type reference list.
type RequestType struct {
	ID          int64  `json:"id"`
	RequestType string `json:"requestType"`
}

// StatusUpdate is the body sent when a professor changes a request status.
type StatusUpdate struct {
	Status RequestStatus `json:"status"`
}

// BackendMessage is the acknowledgement body returned by delete endpoints.
type BackendMessage struct {
	Message string `json:"message"`
}

// FilterRequests returns the requests accepted by keep, preserving order.
func FilterRequests(requests []RecommendationRequest, keep func(RecommendationRequest) bool) []RecommendationRequest {
	out := make([]RecommendationRequest, 0, len(requests))
	for _, r := range requests {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// StatusCount is one row of the statistics summary.
type StatusCount struct {
	Status RequestStatus `json:"status"`
	Count  int           `json:"count"`
}

// RequestStatistics summarises a request list by status.
type RequestStatistics struct {
	Total  int           `json:"total"`
	Open   int           `json:"open"`
	Closed int           `json:"closed"`
	Counts []StatusCount `json:"counts"`
}

// SummarizeRequests counts requests per status. Unknown statuses only count toward Total.
func SummarizeRequests(requests []RecommendationRequest) RequestStatistics {
	counts := make(map[RequestStatus]int, len(AllStatuses))
	stats := RequestStatistics{Total: len(requests)}
	for _, r := range requests {
		counts[r.Status]++
		switch {
		case r.Status.IsOpen():
			stats.Open++
		case r.Status.IsClosed():
			stats.Closed++
		}
	}
	stats.Counts = make([]StatusCount, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		stats.Counts = append(stats.Counts, StatusCount{Status: s, Count: counts[s]})
	}
	return stats
}
