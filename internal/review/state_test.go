package review

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestParseJokeMode(t *testing.T) {
	tests := []struct {
		in      string
		want    JokeMode
		wantErr bool
	}{
		{"", JokeModeDefault, false},
		{"default", JokeModeDefault, false},
		{"NONE", JokeModeNone, false},
		{" Chaotic ", JokeModeChaotic, false},
		{"loud", "", true},
	}
	for _, tt := range tests {
		got, err := ParseJokeMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseJokeMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseJokeMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGitConfigComplete(t *testing.T) {
	if (GitConfig{Repository: "o/r", PRNumber: 1}).Complete() {
		t.Error("config without token should be incomplete")
	}
	if !(GitConfig{Repository: "o/r", PRNumber: 1, Token: "t"}).Complete() {
		t.Error("full config should be complete")
	}
}

func TestReport_ExcludesImages(t *testing.T) {
	s := NewReviewState()
	s.DocumentImages = []string{"aGVsbG8="}
	s.ReviewFeedback["vertex_ai"] = FormatReview{Explanation: "fine"}

	data, err := json.Marshal(s.Report())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "document_images") || strings.Contains(string(data), "aGVsbG8=") {
		t.Errorf("report leaked images: %s", data)
	}
	if !strings.Contains(string(data), `"jokes":[]`) {
		t.Errorf("report should encode empty jokes as []: %s", data)
	}
}

func TestReport_RoundTrip(t *testing.T) {
	s := NewReviewState()
	s.DocumentImages = []string{"page1", "page2"}
	s.ReviewFeedback["a"] = FormatReview{
		Explanation: "clipped text",
		Categories: []FormatCategoryItem{{
			Name:   CategoryTextOcclusion,
			Issues: []FormatIssue{{Description: "d", Explanation: "e", Example: "x", Cause: "c", Status: StatusCritical, Confidence: 4}},
		}},
	}
	s.ReviewFeedback["b"] = FormatReview{Explanation: "clean", Categories: []FormatCategoryItem{}}
	s.Jokes = []string{"one", "two"}

	data, err := json.MarshalIndent(s.Report(), "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.ReviewFeedback, s.ReviewFeedback) {
		t.Errorf("review_feedback mismatch:\n got %+v\nwant %+v", back.ReviewFeedback, s.ReviewFeedback)
	}
	if !reflect.DeepEqual(back.Jokes, s.Jokes) {
		t.Errorf("jokes = %v, want %v", back.Jokes, s.Jokes)
	}
	if !back.AnyIssues() {
		t.Error("round-tripped report should still have issues")
	}
}

func TestReviewStateAggregates(t *testing.T) {
	s := NewReviewState()
	if s.AnyIssues() || s.TotalIssues() != 0 {
		t.Error("empty state should have no issues")
	}
	s.ReviewFeedback["a"] = reviewWith(FormatCategoryItem{Name: CategoryWordSpacing, Issues: []FormatIssue{issue(StatusInfo)}})
	s.ReviewFeedback["b"] = reviewWith(FormatCategoryItem{Name: CategoryFontQuality, Issues: []FormatIssue{issue(StatusError), issue(StatusWarning)}})
	if !s.AnyIssues() {
		t.Error("AnyIssues() = false, want true")
	}
	if s.TotalIssues() != 3 {
		t.Errorf("TotalIssues() = %d, want 3", s.TotalIssues())
	}
}
