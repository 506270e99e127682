package openai

import "fmt"

const keywordResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "keywords": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "keyword": {
            "type": "string"
          },
          "relevance": {
            "type": "number",
            "minimum": 0,
            "maximum": 1
          }
        },
        "required": ["keyword", "relevance"],
        "additionalProperties": false
      }
    }
  },
  "required": ["keywords"],
  "additionalProperties": false
}`

const keywordPromptTemplate = `Extract the keywords that best describe the given news article and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Return at most %d keywords, most relevant first.
- Keywords must be lowercase phrases of 1 to %d words, taken from the text.
- Relevance is a number from 0 (barely related) to 1 (the main subject of the article).
- Prefer named people, organizations, places and events over generic words.
- Do not include stop words, dates or bare numbers as keywords.
- If no keywords can be identified, return "keywords": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Apple unveiled its new iPhone at an event in Cupertino on Tuesday."
Output:
{
  "keywords": [
    {"keyword":"iphone","relevance":0.95},
    {"keyword":"apple","relevance":0.9},
    {"keyword":"cupertino","relevance":0.5}
  ]
}`

// buildSystemPrompt creates the system prompt with the output limits embedded.
func buildSystemPrompt(maxKeywords, ngramSize int) string {
	return fmt.Sprintf(keywordPromptTemplate, keywordResponseSchema, maxKeywords, ngramSize)
}
