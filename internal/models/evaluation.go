package models

import (
	"encoding/json"
	"time"
)

// Evaluation is a time-boxed feedback collection campaign for one school.
type Evaluation struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    string    `db:"school_id" json:"school_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AcceptsResponsesAt reports whether the evaluation takes submissions at the
// given instant. Checked when a code is verified and again when a response is
// submitted, since the window can close in between.
func (e Evaluation) AcceptsResponsesAt(now time.Time) bool {
	return e.Active && !now.Before(e.StartDate) && !now.After(e.EndDate)
}

// AccessCode is a one-time student credential bound to an evaluation and
// a class.
type AccessCode struct {
	ID           string    `db:"id" json:"id"`
	EvaluationID string    `db:"evaluation_id" json:"evaluation_id"`
	Code         string    `db:"code" json:"code"`
	ClassName    string    `db:"class_name" json:"class_name"`
	Used         bool      `db:"used" json:"used"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CriteriaScores holds the fixed five 1-5 ratings collected per response.
type CriteriaScores struct {
	Preparation int `json:"preparation" validate:"gte=1,lte=5"`
	Explanation int `json:"explanation" validate:"gte=1,lte=5"`
	Engagement  int `json:"engagement" validate:"gte=1,lte=5"`
	Atmosphere  int `json:"atmosphere" validate:"gte=1,lte=5"`
	Individual  int `json:"individual" validate:"gte=1,lte=5"`
}

// EvaluationResponse is one anonymous submission. Immutable once stored.
type EvaluationResponse struct {
	ID           string    `db:"id" json:"id"`
	EvaluationID string    `db:"evaluation_id" json:"evaluation_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	AccessCodeID string    `db:"access_code_id" json:"access_code_id"`
	Preparation  int       `db:"preparation_score" json:"-"`
	Explanation  int       `db:"explanation_score" json:"-"`
	Engagement   int       `db:"engagement_score" json:"-"`
	Atmosphere   int       `db:"atmosphere_score" json:"-"`
	Individual   int       `db:"individual_score" json:"-"`
	Comment      *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Criteria assembles the stored score columns back into the wire shape.
func (r EvaluationResponse) Criteria() CriteriaScores {
	return CriteriaScores{
		Preparation: r.Preparation,
		Explanation: r.Explanation,
		Engagement:  r.Engagement,
		Atmosphere:  r.Atmosphere,
		Individual:  r.Individual,
	}
}

// MarshalJSON renders the score columns as a nested criteria object, matching
// the submission payload shape.
func (r EvaluationResponse) MarshalJSON() ([]byte, error) {
	type alias EvaluationResponse
	return json.Marshal(struct {
		alias
		Criteria CriteriaScores `json:"criteria"`
	}{alias(r), r.Criteria()})
}

// ResponseDetail is a response joined with display names for listings and
// exports.
type ResponseDetail struct {
	EvaluationResponse
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	ClassName   string `db:"class_name" json:"class_name"`
}

// MarshalJSON renders the criteria object like EvaluationResponse does while
// keeping the joined display names. Without it the embedded marshaler is
// promoted and drops them.
func (r ResponseDetail) MarshalJSON() ([]byte, error) {
	type alias EvaluationResponse
	return json.Marshal(struct {
		alias
		Criteria    CriteriaScores `json:"criteria"`
		TeacherName string         `json:"teacher_name"`
		SubjectName string         `json:"subject_name"`
		ClassName   string         `json:"class_name"`
	}{alias(r.EvaluationResponse), r.Criteria(), r.TeacherName, r.SubjectName, r.ClassName})
}
