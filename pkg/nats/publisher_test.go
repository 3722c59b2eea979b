package nats

import (
	"testing"

	"ai-consultation-be/pkg/events"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.ASSESSMENT_COMPLETED", Subject(events.TypeAssessmentCompleted))
}
