package classifier_test

import (
	"testing"

	"github.com/memorai/memoraid/internal/classifier"
	"github.com/memorai/memoraid/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestClassify_Preference(t *testing.T) {
	r := classifier.Classify("Alice prefers dark mode over light mode")
	assert.Equal(t, model.TypePreference, r.Type)
	assert.GreaterOrEqual(t, r.Confidence, 0.6)
	assert.NotEmpty(t, r.Reasoning)
}

func TestClassify_Procedure(t *testing.T) {
	r := classifier.Classify("Deploy steps: first build then test then ship")
	assert.Equal(t, model.TypeProcedure, r.Type)
}

func TestClassify_Thread(t *testing.T) {
	r := classifier.Classify("User said the API is slow")
	assert.Equal(t, model.TypeThread, r.Type)
}

func TestClassify_Fact(t *testing.T) {
	r := classifier.Classify("Remember: backup key is XYZ")
	assert.Equal(t, model.TypeFact, r.Type)
}

func TestClassify_Emotion(t *testing.T) {
	r := classifier.Classify("I love this so much, it makes me so happy")
	assert.Equal(t, model.TypeEmotion, r.Type)
}

func TestClassify_Task(t *testing.T) {
	r := classifier.Classify("todo: finish the report before the deadline")
	assert.Equal(t, model.TypeTask, r.Type)
}

func TestClassify_Personality(t *testing.T) {
	r := classifier.Classify("I am always curious, it's a core personality trait of mine")
	assert.Equal(t, model.TypePersonality, r.Type)
}

func TestClassify_DefaultsToThreadWithNoSignal(t *testing.T) {
	r := classifier.Classify("xyz")
	assert.Equal(t, model.TypeThread, r.Type)
}

func TestClassify_IsTotalAndDeterministic(t *testing.T) {
	for _, text := range []string{"a", "hello world", "???", "12345"} {
		r1 := classifier.Classify(text)
		r2 := classifier.Classify(text)
		assert.Equal(t, r1, r2)
		assert.True(t, model.MemoryType(r1.Type).Valid())
	}
}

func TestClassifyBatch_MapsClassify(t *testing.T) {
	texts := []string{"todo: ship it", "I feel so happy today"}
	results := classifier.ClassifyBatch(texts)
	assert := assert.New(t)
	assert.Len(results, 2)
	for i, text := range texts {
		assert.Equal(classifier.Classify(text), results[i])
	}
}
