package repos

import (
	"testing"
	"time"

	"github.com/davrbek/coursehub-backend/internal/types"
)

func TestSubmissionConflictClearsGradeFields(t *testing.T) {
	sub := &types.AssignmentSubmission{AssignmentID: 1, StudentID: 2, Content: "take two"}
	oc := submissionConflict(sub, time.Now())

	if len(oc.Columns) != 2 || oc.Columns[0].Name != "assignment_id" || oc.Columns[1].Name != "student_id" {
		t.Fatalf("conflict columns = %+v, want (assignment_id, student_id)", oc.Columns)
	}

	values := map[string]interface{}{}
	for _, a := range oc.DoUpdates {
		values[a.Column.Name] = a.Value
	}
	for _, col := range []string{"rating", "feedback", "graded_by", "graded_at"} {
		v, ok := values[col]
		if !ok {
			t.Errorf("%s missing from the conflict update", col)
			continue
		}
		if v != nil {
			t.Errorf("%s = %v, want NULL on resubmission", col, v)
		}
	}
	if values["content"] != "take two" {
		t.Errorf("content = %v, want the resubmitted text", values["content"])
	}
}
