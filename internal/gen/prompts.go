package gen

import (
	"strings"
	"text/template"
)

type systemPromptFields struct {
	Target string
}

const systemPrompt = `You are a careful data annotator. Complete the final "{{ .Target }}" field of the prompt. Respond with the field value only, without any bulleting, enumeration, prefix/suffix, quotes or explanation.`

var systemPromptTmpl = template.Must(template.New("systemPrompt").Parse(systemPrompt))

// SystemPrompt renders the fixed instruction sent alongside every user
// prompt, telling the model to emit the bare field value.
func SystemPrompt(target string) string {
	out := new(strings.Builder)
	if err := systemPromptTmpl.Execute(out, systemPromptFields{Target: target}); err != nil {
		// template is static, a render failure is a programming error
		panic(err)
	}
	return out.String()
}

// Default task descriptions per task shape. Each contains the {} slot that
// the prompt template fills with the comma-joined label options.
const (
	defaultClassificationDescription = "Classify the following text into one of the following classes: {}."

	defaultTokenLabelingDescription = "Annotate each entity in the following text. The available entity types are: {}. Answer with one line per entity type in the form TYPE -> entity1, entity2."

	defaultQuestionAnsweringDescription = "Answer the question using a contiguous quote from the given context. If the context does not contain the answer, answer with an empty string."

	defaultGenerationDescription = "Complete the final field of the following example."
)

func DefaultTaskDescription(task TaskType) string {
	switch task {
	case TaskClassification:
		return defaultClassificationDescription
	case TaskTokenLabeling:
		return defaultTokenLabelingDescription
	case TaskQuestionAnswering:
		return defaultQuestionAnsweringDescription
	default:
		return defaultGenerationDescription
	}
}
