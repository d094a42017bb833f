package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResponse() EvaluationResponse {
	comment := "very thorough"
	return EvaluationResponse{
		ID:           "resp-1",
		EvaluationID: "eval-1",
		TeacherID:    "teacher-1",
		SubjectID:    "subject-1",
		ClassID:      "class-1",
		AccessCodeID: "code-1",
		Preparation:  5,
		Explanation:  4,
		Engagement:   5,
		Atmosphere:   3,
		Individual:   4,
		Comment:      &comment,
		CreatedAt:    time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestEvaluationResponseMarshalNestsCriteria(t *testing.T) {
	payload, err := json.Marshal(sampleResponse())
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Contains(t, decoded, "criteria")
	assert.NotContains(t, decoded, "preparation_score")

	var criteria CriteriaScores
	require.NoError(t, json.Unmarshal(decoded["criteria"], &criteria))
	assert.Equal(t, CriteriaScores{Preparation: 5, Explanation: 4, Engagement: 5, Atmosphere: 3, Individual: 4}, criteria)
}

func TestResponseDetailMarshalKeepsDisplayNames(t *testing.T) {
	detail := ResponseDetail{
		EvaluationResponse: sampleResponse(),
		TeacherName:        "Jana Novakova",
		SubjectName:        "Mathematics",
		ClassName:          "3.A",
	}

	payload, err := json.Marshal(detail)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Contains(t, decoded, "criteria")
	for key, want := range map[string]string{
		"teacher_name": "Jana Novakova",
		"subject_name": "Mathematics",
		"class_name":   "3.A",
	} {
		var value string
		require.NoError(t, json.Unmarshal(decoded[key], &value), key)
		assert.Equal(t, want, value)
	}
}
