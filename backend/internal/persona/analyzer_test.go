package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreLogicTest(t *testing.T) {
	assert.Equal(t, "直觉经验型", ScoreLogicTest(0))
	assert.Equal(t, "直觉经验型", ScoreLogicTest(15))
	assert.Equal(t, "数据驱动型", ScoreLogicTest(16))
	assert.Equal(t, "数据驱动型", ScoreLogicTest(200))
}

func TestParseQuestions_PlainArray(t *testing.T) {
	raw := `[
		{"id": 1, "text": "遇到新问题时，你倾向于？", "dimension": "信息处理方式",
		 "options": [{"text": "查数据", "score": 5}, {"text": "凭直觉", "score": 1}]}
	]`

	questions := ParseQuestions(raw)
	require.Len(t, questions, 1)
	assert.Equal(t, int64(1), questions[0].ID)
	assert.Equal(t, "信息处理方式", questions[0].Dimension)
	assert.Contains(t, questions[0].Options, "查数据")
}

func TestParseQuestions_FencedJSON(t *testing.T) {
	raw := "```json\n" +
		`[{"id": 1, "text": "题目", "dimension": "沟通倾向", "options": []}]` +
		"\n```"

	questions := ParseQuestions(raw)
	require.Len(t, questions, 1)
	assert.Equal(t, "题目", questions[0].Text)
}

func TestParseQuestions_BareFence(t *testing.T) {
	raw := "```\n" +
		`[{"id": 2, "text": "题目二", "dimension": "逻辑闭环能力", "options": []}]` +
		"\n```"

	questions := ParseQuestions(raw)
	require.Len(t, questions, 1)
	assert.Equal(t, int64(2), questions[0].ID)
}

func TestParseQuestions_MissingOptionsDefaultsToEmptyArray(t *testing.T) {
	raw := `[{"id": 3, "text": "题目三", "dimension": "分析决策风格"}]`

	questions := ParseQuestions(raw)
	require.Len(t, questions, 1)
	assert.Equal(t, "[]", questions[0].Options)
}

func TestParseQuestions_Garbage(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"id": 1}`} {
		assert.Empty(t, ParseQuestions(raw), "input %q", raw)
	}
}
