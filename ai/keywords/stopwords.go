package keywords

// stopWords are English function words that never start or end a keyword.
var stopWords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true, "against": true,
	"all": true, "also": true, "am": true, "among": true, "an": true, "and": true, "any": true,
	"are": true, "as": true, "at": true, "be": true, "because": true, "been": true, "before": true,
	"being": true, "below": true, "between": true, "both": true, "but": true, "by": true, "can": true,
	"could": true, "did": true, "do": true, "does": true, "doing": true, "down": true, "during": true,
	"each": true, "else": true, "few": true, "for": true, "from": true, "further": true, "had": true,
	"has": true, "have": true, "having": true, "he": true, "her": true, "here": true, "hers": true,
	"him": true, "his": true, "how": true, "i": true, "if": true, "in": true, "into": true,
	"is": true, "it": true, "its": true, "itself": true, "just": true, "may": true, "me": true,
	"might": true, "mine": true, "more": true, "most": true, "my": true, "no": true, "nor": true,
	"not": true, "now": true, "of": true, "off": true, "on": true, "once": true, "only": true,
	"onto": true, "or": true, "other": true, "our": true, "ours": true, "out": true, "over": true,
	"own": true, "said": true, "same": true, "says": true, "she": true, "should": true, "so": true,
	"some": true, "such": true, "than": true, "that": true, "the": true, "their": true,
	"theirs": true, "them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "throughout": true, "to": true, "too": true,
	"toward": true, "towards": true, "under": true, "until": true, "up": true, "upon": true,
	"us": true, "very": true, "was": true, "we": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "who": true, "whom": true, "why": true, "will": true,
	"with": true, "within": true, "without": true, "would": true, "you": true, "your": true,
	"yours": true,
}
