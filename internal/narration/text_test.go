package narration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/narration-service/internal/narration"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain prose unchanged",
			input:    "This slide covers gradient descent.",
			expected: "This slide covers gradient descent.",
		},
		{
			name:     "heading stripped",
			input:    "## Training Objective\nThe loss is minimized.",
			expected: "Training Objective The loss is minimized.",
		},
		{
			name:     "emphasis markers removed",
			input:    "The **loss function** is _convex_.",
			expected: "The loss function is convex.",
		},
		{
			name:     "bullets flattened",
			input:    "- first point\n- second point",
			expected: "first point second point",
		},
		{
			name:     "code fences removed",
			input:    "Before.\n```python\nprint('hi')\n```\nAfter.",
			expected: "Before. After.",
		},
		{
			name:     "whitespace collapsed and trimmed",
			input:    "  spaced \t out\n\n text  ",
			expected: "spaced out text",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	normalizer := narration.NewNormalizer()

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, normalizer.Normalize(testCase.input))
		})
	}
}
