package orchestrator

import (
	"fmt"

	"github.com/hupe1980/ragdesk/action"
	"github.com/hupe1980/ragdesk/internal/util"
	"github.com/hupe1980/ragdesk/retrieval"
)

// DefaultPersona opens every system prompt.
const DefaultPersona = "You are an IT Support Assistant for the company help desk."

// Canned answers used when the model cannot be relied on.
const (
	NoInformationAnswer = "I'm sorry, I couldn't find any relevant information about that in our knowledge base. " +
		"If you need further help, I can create a support ticket for you."
	RetrievalFailedAnswer = "I'm sorry, I ran into a problem while searching the knowledge base. " +
		"Please try again in a moment."
	KnowledgeUnavailableAnswer = "I'm sorry, the knowledge base is currently unavailable. " +
		"Please try again later or contact the IT Support Team directly."
	GenerationFailedAnswer = "I'm sorry, I'm having trouble generating a response right now. " +
		"Please try again in a moment."
)

var instructionsTemplate = util.MustParseTemplate("instructions", `{{.Persona}}
{{if .Context}}
Use the knowledge base context below to answer the user's question.

Context:
{{range .Context}}[{{.Chunk.ArticleID}}] {{.Chunk.Title}} ({{.Chunk.Category}}, similarity {{printf "%.2f" .Score}})
{{trim .Chunk.Text}}

{{end}}Instructions:
1. Provide clear step-by-step solutions based on the context.
2. Reference knowledge base article IDs when providing solutions.
3. Never make up information that is not in the context.
4. Be professional, friendly, and empathetic.
{{else}}
No relevant information was found in the knowledge base for this question.

Instructions:
1. Answer only that no relevant information was found in the knowledge base.
2. Do not answer from general knowledge and do not guess.
3. Be professional, friendly, and empathetic.
{{end}}{{if .Actions}}
You may call one of these actions when the user needs something done: {{join ", " .Actions}}.
Request at most one action per reply and only with arguments the user provided.
{{end}}`)

type promptData struct {
	Persona string
	Context []retrieval.Result
	Actions []string
}

func renderInstructions(persona string, chunks []retrieval.Result, defs []action.Definition) (string, error) {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return instructionsTemplate.Render(promptData{Persona: persona, Context: chunks, Actions: names})
}

// unresolvedActionNote explains a follow-up action request that was not run.
func unresolvedActionNote(name string) string {
	return fmt.Sprintf("I also wanted to run %q, but only one action can be performed per message. "+
		"Ask again if you would like me to do that.", name)
}

// actionSummary reports an action result when no regenerated answer is available.
func actionSummary(res action.Result) string {
	if res.Succeeded() {
		return fmt.Sprintf("The %s action completed: %s", res.Action, res.ModelContent())
	}
	return fmt.Sprintf("The %s action could not be completed: %v", res.Action, res.Err)
}
