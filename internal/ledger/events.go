package ledger

// Run labels. Issue runs are the root durable entities; groups and calls
// are sub-runs linked to them.
const (
	LabelIssue = "issue"
	LabelGroup = "group"
	LabelCall  = "call"
)

// Run is an issue-run record.
type Run struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	IssueID string `json:"issueId"`
	Repo    string `json:"repo"`
	Title   string `json:"title"`
	Ts      int64  `json:"ts"`
}

// Group is a phase-group record: a durable sub-entity for one phase of
// work (Build, Review, Deploy, Release).
type Group struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Ts    int64  `json:"ts"`
}

// Call is a pipeline-run record wrapping one work-act execution. RefActID
// links it to the act whose execution it wraps.
type Call struct {
	ID       string `json:"id"`
	RefActID string `json:"refActId"`
	Ts       int64  `json:"ts"`
}

// Link ties a sub-run (group or call) to its parent issue run.
type Link struct {
	ChildID  string `json:"childId"`
	ParentID string `json:"parentId"`
	Ts       int64  `json:"ts"`
}

// Outcome is an append-only event on a container (issue run, phase group
// or pipeline run). Outcomes are the only way run state is observed.
type Outcome struct {
	ID          string         `json:"id"`
	ContainerID string         `json:"containerId"`
	Name        string         `json:"name"`
	Opts        map[string]any `json:"opts,omitempty"`
	Ts          int64          `json:"ts"`
}

// Act is an append-only event emitted from an outcome. The last act on a
// container with no following outcome on its emitted branch is the
// container's pending act.
type Act struct {
	ID        string         `json:"id"`
	OutcomeID string         `json:"outcomeId"`
	Name      string         `json:"name"`
	Opts      map[string]any `json:"opts,omitempty"`
	Ts        int64          `json:"ts"`
}

// eventSet is the payload of one POST /v1/events batch. The ledger accepts
// all events in a set or none.
type eventSet struct {
	Runs     []Run     `json:"runs,omitempty"`
	Groups   []Group   `json:"groups,omitempty"`
	Calls    []Call    `json:"calls,omitempty"`
	Links    []Link    `json:"links,omitempty"`
	Outcomes []Outcome `json:"outcomes,omitempty"`
	Acts     []Act     `json:"acts,omitempty"`
}

func (s *eventSet) empty() bool {
	return len(s.Runs) == 0 && len(s.Groups) == 0 && len(s.Calls) == 0 &&
		len(s.Links) == 0 && len(s.Outcomes) == 0 && len(s.Acts) == 0
}

// envelope is the wire form of a batch: the event set JSON, base64-encoded
// under "d".
type envelope struct {
	D string `json:"d"`
}

// PendingAct is the scheduler's advancement target for one issue run.
type PendingAct struct {
	ID   string
	Name string
	Opts map[string]any
}

// OpenRun is one not-yet-terminal issue run as returned by
// FindOpenIssueRuns.
type OpenRun struct {
	ID            string
	IssueID       string
	Repo          string
	Title         string
	LatestOutcome string
	PendingAct    *PendingAct
	Groups        map[string]string
}

// runDetail is the GET /v1/runs/:id response: the run plus every event
// appended to it and its linked sub-runs, in append order.
type runDetail struct {
	Run      Run       `json:"run"`
	Groups   []Group   `json:"groups"`
	Links    []Link    `json:"links"`
	Outcomes []Outcome `json:"outcomes"`
	Acts     []Act     `json:"acts"`
}

// runList is the GET /v1/runs?label=… response.
type runList struct {
	Runs []Run `json:"runs"`
}

// actList is the GET /v1/acts?name=… response.
type actList struct {
	Acts []Act `json:"acts"`
}
