package domain

// SyncStatus is the outcome of one entry of a reconciliation run
type SyncStatus string

const (
	SyncStatusCreated SyncStatus = "created"
	SyncStatusUpdated SyncStatus = "updated"
	SyncStatusDeleted SyncStatus = "deleted"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncTarget is the desired client set of a sync run. Ids must be unique
// and every hash must match the configured scheme.
type SyncTarget struct {
	Clients []ClientSpec `json:"clients" validate:"required,min=1,unique=ID,dive"`
}

// ClientResult is the result for a single client in a sync run
type ClientResult struct {
	ClientID string     `json:"client_id"`
	Status   SyncStatus `json:"status"`
	Error    *string    `json:"error,omitempty"`
}

// SyncResult aggregates the per-entry outcomes of a sync run
type SyncResult struct {
	RunID        string         `json:"run_id"`
	CreatedCount int            `json:"created_count"`
	UpdatedCount int            `json:"updated_count"`
	DeletedCount int            `json:"deleted_count"`
	FailedCount  int            `json:"failed_count"`
	Results      []ClientResult `json:"results"`
}

// NewSyncResult creates an empty result for the given run
func NewSyncResult(runID string) *SyncResult {
	return &SyncResult{
		RunID:   runID,
		Results: make([]ClientResult, 0),
	}
}

// Record appends one outcome. A non-nil err always records a failure.
func (r *SyncResult) Record(clientID string, status SyncStatus, err error) {
	res := ClientResult{ClientID: clientID, Status: status}
	if err != nil {
		msg := err.Error()
		res.Status = SyncStatusFailed
		res.Error = &msg
	}

	switch res.Status {
	case SyncStatusCreated:
		r.CreatedCount++
	case SyncStatusUpdated:
		r.UpdatedCount++
	case SyncStatusDeleted:
		r.DeletedCount++
	case SyncStatusFailed:
		r.FailedCount++
	}
	r.Results = append(r.Results, res)
}

// Converged reports whether the run applied every change it attempted.
func (r *SyncResult) Converged() bool {
	return r.FailedCount == 0
}
