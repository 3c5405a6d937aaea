package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"LIMS-backend/internal/platform/apierr"
)

type Status string

const (
	Available Status = "Available"
	Issued    Status = "Issued"
	Retired   Status = "Retired"
	Scrapped  Status = "Scrapped"
)

func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{Available, Issued, Retired, Scrapped} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Action is an administrative status change. Issue and return are not
// actions; only the allocation ledger moves assets in and out of Issued.
type Action string

const (
	Retire   Action = "retire"
	Scrap    Action = "scrap"
	Unretire Action = "unretire"
)

// TransitionError carries the refused edge.
type TransitionError struct {
	From   Status
	Action Action
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s an asset that is %s: %s", e.Action, e.From, e.Reason)
}

// Apply returns the status after action, or a *TransitionError.
// reason must be non-empty for retire and scrap.
func Apply(from Status, action Action, reason string) (Status, error) {
	refuse := func(why string) (Status, error) {
		return "", &TransitionError{From: from, Action: action, Reason: why}
	}
	if from == Scrapped {
		return refuse("scrapped is final")
	}
	if from == Issued {
		return refuse("return it first")
	}
	switch action {
	case Retire:
		if from != Available {
			return refuse("only available assets can be retired")
		}
		if strings.TrimSpace(reason) == "" {
			return "", fmt.Errorf("a reason is required to retire an asset")
		}
		return Retired, nil
	case Scrap:
		if strings.TrimSpace(reason) == "" {
			return "", fmt.Errorf("a reason is required to scrap an asset")
		}
		return Scrapped, nil
	case Unretire:
		if from != Retired {
			return refuse("only retired assets can be un-retired")
		}
		return Available, nil
	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

// CanIssue reports whether an allocation may move the asset to Issued.
func CanIssue(s Status) bool { return s == Available }

// CanDelete is the hard-delete rule: never Issued or Scrapped, and no history.
func CanDelete(s Status, historyRows int) bool {
	return s != Issued && s != Scrapped && historyRows == 0
}

// ToAPI maps an Apply error: a refused edge is a conflict, anything else
// (missing reason, unknown action) is bad input.
func ToAPI(err error) error {
	if err == nil {
		return nil
	}
	var te *TransitionError
	if errors.As(err, &te) {
		return apierr.ErrConflict(te.Error())
	}
	return apierr.ErrInvalid(err.Error())
}
