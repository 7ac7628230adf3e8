package azure

import (
	"strings"
	"time"

	"github.com/waabox/azdeck/internal/domain"
)

type listResponse[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

type buildDefinition struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

func (d buildDefinition) toDefinition() domain.Definition {
	return domain.Definition{ID: d.ID, Name: d.Name, Folder: d.Path}
}

type webLinks struct {
	Web struct {
		Href string `json:"href"`
	} `json:"web"`
}

type build struct {
	ID            int       `json:"id"`
	BuildNumber   string    `json:"buildNumber"`
	Status        string    `json:"status"`
	Result        string    `json:"result"`
	SourceBranch  string    `json:"sourceBranch"`
	SourceVersion string    `json:"sourceVersion"`
	QueueTime     time.Time `json:"queueTime"`
	StartTime     time.Time `json:"startTime"`
	FinishTime    time.Time `json:"finishTime"`
	Definition    struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"definition"`
	RequestedFor struct {
		DisplayName string `json:"displayName"`
	} `json:"requestedFor"`
	Links webLinks `json:"_links"`
}

func (b build) toRun() domain.Run {
	return domain.Run{
		ID:             b.ID,
		Number:         b.BuildNumber,
		DefinitionID:   b.Definition.ID,
		DefinitionName: b.Definition.Name,
		State:          mapState(b.Status),
		Result:         mapResult(b.Result),
		SourceBranch:   b.SourceBranch,
		SourceVersion:  b.SourceVersion,
		RequestedFor:   b.RequestedFor.DisplayName,
		QueuedAt:       b.QueueTime,
		StartedAt:      b.StartTime,
		FinishedAt:     b.FinishTime,
		WebURL:         b.Links.Web.Href,
	}
}

type timelineRecord struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Order    *int   `json:"order"`
	State    string `json:"state"`
	Result   string `json:"result"`
	Log      *struct {
		ID int `json:"id"`
	} `json:"log"`
	StartTime    time.Time `json:"startTime"`
	FinishTime   time.Time `json:"finishTime"`
	ErrorCount   int       `json:"errorCount"`
	WarningCount int       `json:"warningCount"`
}

func (r timelineRecord) toRecord() domain.TimelineRecord {
	rec := domain.TimelineRecord{
		ID:           r.ID,
		ParentID:     r.ParentID,
		Type:         domain.ParseRecordType(r.Type),
		Name:         r.Name,
		Order:        r.Order,
		State:        mapState(r.State),
		Result:       mapResult(r.Result),
		StartTime:    r.StartTime,
		FinishTime:   r.FinishTime,
		ErrorCount:   r.ErrorCount,
		WarningCount: r.WarningCount,
	}
	if r.Log != nil {
		id := r.Log.ID
		rec.LogID = &id
	}
	return rec
}

type pipelineRun struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Result      string    `json:"result"`
	CreatedDate time.Time `json:"createdDate"`
	Pipeline    struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"pipeline"`
	Resources struct {
		Repositories struct {
			Self struct {
				RefName string `json:"refName"`
				Version string `json:"version"`
			} `json:"self"`
		} `json:"repositories"`
	} `json:"resources"`
	Links webLinks `json:"_links"`
}

func (r pipelineRun) toRun() domain.Run {
	return domain.Run{
		ID:             r.ID,
		Number:         r.Name,
		DefinitionID:   r.Pipeline.ID,
		DefinitionName: r.Pipeline.Name,
		State:          mapState(r.State),
		Result:         mapResult(r.Result),
		SourceBranch:   r.Resources.Repositories.Self.RefName,
		SourceVersion:  r.Resources.Repositories.Self.Version,
		QueuedAt:       r.CreatedDate,
		WebURL:         r.Links.Web.Href,
	}
}

type runRequest struct {
	Resources *runResources `json:"resources,omitempty"`
	// Always sent, even when empty.
	TemplateParameters map[string]string        `json:"templateParameters"`
	Variables          map[string]variableValue `json:"variables,omitempty"`
}

type runResources struct {
	Repositories map[string]repositoryRef `json:"repositories"`
}

type repositoryRef struct {
	RefName string `json:"refName"`
}

type variableValue struct {
	Value string `json:"value"`
}

func newRunRequest(req domain.QueueRequest) runRequest {
	body := runRequest{TemplateParameters: map[string]string{}}
	for k, v := range req.Parameters {
		body.TemplateParameters[k] = v
	}
	if req.Ref != "" {
		body.Resources = &runResources{Repositories: map[string]repositoryRef{
			"self": {RefName: qualifyRef(req.Ref)},
		}}
	}
	if len(req.Variables) > 0 {
		body.Variables = make(map[string]variableValue, len(req.Variables))
		for k, v := range req.Variables {
			body.Variables[k] = variableValue{Value: v}
		}
	}
	return body
}

// qualifyRef turns a short branch name into a full ref.
func qualifyRef(ref string) string {
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	return "refs/heads/" + ref
}

// mapState maps build statuses, pipeline run states and timeline record
// states onto domain states.
func mapState(s string) domain.State {
	switch strings.ToLower(s) {
	case "notstarted", "pending", "postponed":
		return domain.StatePending
	case "inprogress", "cancelling", "canceling":
		return domain.StateInProgress
	case "completed":
		return domain.StateCompleted
	default:
		return domain.StateUnknown
	}
}

func mapResult(s string) domain.Result {
	switch strings.ToLower(s) {
	case "succeeded":
		return domain.ResultSucceeded
	case "partiallysucceeded", "succeededwithissues":
		return domain.ResultPartiallySucceeded
	case "failed":
		return domain.ResultFailed
	case "canceled", "abandoned":
		return domain.ResultCanceled
	case "skipped":
		return domain.ResultSkipped
	default:
		return domain.ResultNone
	}
}
