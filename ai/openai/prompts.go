package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/stanza/ai"
)

const analysisResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "themes": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[a-z]+( [a-z]+)*$"},
      "maxItems": 5
    },
    "mood": {
      "type": "string"
    },
    "imagery": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[a-z]+( [a-z]+)*$"},
      "maxItems": 6
    }
  },
  "required": ["themes", "mood", "imagery"],
  "additionalProperties": false
}`

const analysisPromptTemplate = `Analyze the given fragment of verse or lyric and return its themes, mood and imagery as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Themes are lowercase, 1-2 words, abstract subjects of the fragment (for example "loss", "memory", "freedom").
- Mood is one or two lowercase adjectives separated by a comma (for example "melancholic, reflective").
- Imagery tags are lowercase, 1-2 words, naming concrete images. Prefer these kinds where they fit: %s.
- Include only what is present in or clearly implied by the text. Do not hallucinate.
- If nothing can be identified for a field, return an empty array or an empty string for it.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "the streetlights hum my name / i walk home through the rain"
Output:
{
  "themes": ["loneliness", "homecoming"],
  "mood": "wistful, quiet",
  "imagery": ["streetlight", "rain", "urban"]
}

Example (informal, no punctuation):
Input: "summer fades and the fields go gold again"
Output:
{
  "themes": ["time", "change"],
  "mood": "nostalgic",
  "imagery": ["summer", "field", "gold"]
}`

const adaptationPromptTemplate = `You are a lyric editor. Rewrite the QUERY fragment so it borrows from the MATCH fragment
while keeping the query's voice and meaning.

Why they matched:
%s

QUERY (themes: %s; mood: %s):
%s

MATCH (themes: %s; mood: %s):
%s

Rules:
- Return only the rewritten fragment, with no title, quotes, commentary or explanation.
- Keep roughly the same length and line count as the query.
- Lean on what the fragments share; the rewrite should read as a natural continuation of the query.`

// buildAnalysisPrompt creates the system prompt with imagery kinds embedded.
func buildAnalysisPrompt() string {
	return fmt.Sprintf(analysisPromptTemplate,
		analysisResponseSchema,
		strings.Join(ai.ImageryKinds, ", "))
}

// buildAdaptationPrompt renders the adaptation instruction for one matched candidate.
func buildAdaptationPrompt(req ai.AdaptRequest) string {
	reasons := "- (no shared attributes reported)"
	if len(req.Reasons) > 0 {
		reasons = "- " + strings.Join(req.Reasons, "\n- ")
	}
	return fmt.Sprintf(adaptationPromptTemplate,
		reasons,
		orNone(strings.Join(req.QueryAnalysis.Themes, ", ")),
		orNone(req.QueryAnalysis.Mood),
		req.QueryText,
		orNone(strings.Join(req.CandidateAnalysis.Themes, ", ")),
		orNone(req.CandidateAnalysis.Mood),
		req.CandidateText)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
