package classifier

import (
	"fmt"
	"strings"

	dm "github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

const systemPrompt = "You are a professional, realistic banking compliance analyst. " +
	"Avoid flat or identical category scores unless the article gives explicit evidence. " +
	"Respond with a single JSON object and nothing else."

var rubric = fmt.Sprintf(`SCORING GUIDELINES (apply to each category independently):
- 0-%d: Routine, neutral coverage (regular operations, earnings, no flagged events)
- %d-40: Weak signals, one-off or indirect mentions (compliance programmes, minor civil suits)
- 41-60: Moderate risk (pending lawsuits with media coverage, warnings, non-criminal fines)
- 61-80: Strong evidence (major fines, criminal charges, ongoing regulatory actions)
- 81-100: Severe or proven event (criminal conviction, bankruptcy filing, systemic fraud)

Only give higher scores where the article gives clear evidence about the entity itself.
Differentiate routine scores per category instead of repeating one value.`,
	dm.RoutineScoreMax, dm.RoutineScoreMax+1)

const responseSchema = `Return exactly these fields:
{
  "fraud": int 0-100,
  "sanctions": int 0-100,
  "money_laundering": int 0-100,
  "bribery_corruption": int 0-100,
  "cyber_incident": int 0-100,
  "insolvency": int 0-100,
  "esg_violation": int 0-100,
  "primary_risk": one of the seven category names above,
  "overall_severity": int 0-100,
  "confidence": int 0-100,
  "key_sentences": at most 3 items of {"sentence": string quoted from the article, "importance_score": float 0-1},
  "explanation": string of at most 800 characters citing article details
}`

func buildUserPrompt(articleText, entityName string) string {
	var sb strings.Builder
	sb.WriteString("Score the ENTITY in 7 adverse-media risk categories based on the ARTICLE below.\n\n")
	fmt.Fprintf(&sb, "ENTITY: %s\n\n", entityName)
	fmt.Fprintf(&sb, "ARTICLE:\n%s\n\n", articleText)
	sb.WriteString(rubric)
	sb.WriteString("\n\n")
	sb.WriteString(responseSchema)
	return sb.String()
}
