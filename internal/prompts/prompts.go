package prompts

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects one of the fixed analysis instructions.
type Kind string

const (
	KindSummary          Kind = "summary"
	KindKeyPoints        Kind = "key_points"
	KindStudyQuestions   Kind = "study_questions"
	KindDetailedAnalysis Kind = "detailed_analysis"
)

// ErrUnknownKind is returned for tags outside the fixed set.
var ErrUnknownKind = errors.New("unknown analysis kind")

var kinds = []Kind{KindSummary, KindKeyPoints, KindStudyQuestions, KindDetailedAnalysis}

// Kinds returns the analysis kinds in display order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind maps a tag such as "key_points" onto a Kind.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// Label is the tab title for the kind.
func (k Kind) Label() string {
	switch k {
	case KindSummary:
		return "Summary"
	case KindKeyPoints:
		return "Key Points"
	case KindStudyQuestions:
		return "Study Questions"
	case KindDetailedAnalysis:
		return "Detailed Analysis"
	default:
		return string(k)
	}
}

// ButtonLabel is the trigger caption for the kind.
func (k Kind) ButtonLabel() string {
	switch k {
	case KindSummary:
		return "Generate Summary"
	case KindKeyPoints:
		return "Extract Key Points"
	case KindStudyQuestions:
		return "Generate Study Questions"
	case KindDetailedAnalysis:
		return "Perform Detailed Analysis"
	default:
		return string(k)
	}
}

const (
	summaryPrompt = `Please provide a comprehensive summary of the document. Include:
1. Main topic and purpose
2. Key arguments or findings
3. Important conclusions
4. Overall significance
Make the summary clear and concise, focusing on the most important information.`

	keyPointsPrompt = `Extract and list the key points from the document. For each point:
1. State the main idea clearly
2. Provide any supporting evidence or examples
3. Explain its significance in the context of the document
Format the response as bullet points for easy reading.`

	studyQuestionsPrompt = `Generate potential test questions that a teacher might ask students about this document. Include:
1. Knowledge-based questions testing basic understanding
2. Analysis questions requiring critical thinking
3. Application questions connecting concepts to real-world scenarios
4. Discussion questions encouraging deeper exploration
For each question, provide a brief outline of what a good answer should include.`

	detailedAnalysisPrompt = `Perform a detailed analysis of the document. Include:
1. Structure and organization analysis
2. Main arguments and evidence evaluation
3. Methodology assessment (if applicable)
4. Critical evaluation of strengths and weaknesses
5. Connections to broader context or field
6. Implications of the findings or arguments
Make the analysis thorough but clear and well-organized.`

	questionPrompt = "Please answer this question about the document: %s\nBase your answer only on the information provided in the document."
)

// Catalog is an immutable Kind -> instruction lookup.
type Catalog struct {
	templates map[Kind]string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{templates: map[Kind]string{
		KindSummary:          summaryPrompt,
		KindKeyPoints:        keyPointsPrompt,
		KindStudyQuestions:   studyQuestionsPrompt,
		KindDetailedAnalysis: detailedAnalysisPrompt,
	}}
}

// Instruction returns the template for kind.
func (c *Catalog) Instruction(kind Kind) (string, error) {
	if c == nil {
		c = Default()
	}
	tmpl, ok := c.templates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	return tmpl, nil
}

// QuestionInstruction wraps a free-form user question.
func QuestionInstruction(question string) string {
	return fmt.Sprintf(questionPrompt, strings.TrimSpace(question))
}
