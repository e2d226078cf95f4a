package provider

import (
	"encoding/base64"

	"github.com/invopop/jsonschema"
)

// ImageMIMEType is the format every renderer screenshot is captured in.
const ImageMIMEType = "image/png"

// SchemaName identifies the critique schema to backends that take a named schema.
const SchemaName = "ux_critique"

// Prompt is the shared instruction sent with every screenshot.
const Prompt = `### ROLE
You are a world-class Senior UX Auditor and Conversion Rate Optimization (CRO) Expert. Analyze this screenshot of a website.

### ANALYSIS GUIDELINES
1. **UX Laws**: Identify which "Laws of UX" (e.g., Fitts's Law, Hick's Law, Jakob's Law, Miller's Law, Zeigarnik Effect) are being followed or violated.
2. **Visual Hierarchy**: Grade the visual hierarchy from A to F based on how well it guides the user's eye to the primary CTA.
3. **Critical Issues**: Focus on friction points, confusing layouts, or accessibility violations.
4. **Actionable Fixes**: Every issue must have a clear, step-by-step fix.

### OUTPUT REQUIREMENTS
Return ONLY a valid JSON object:
{
  "ux_score": (Number 0-100),
  "ui_score": (Number 0-100),
  "accessibility_score": (Number 0-100),
  "visual_hierarchy_grade": "A-F",
  "conversion_optimization": "Brief strategic advice",
  "good_points": ["Short strength"],
  "bad_points": ["Short weakness"],
  "critical_issues": [
    {
      "element": "Name of the UI element",
      "issue": "Description of the problem",
      "law_violated": "Name of the specific UX Law",
      "severity": "Critical | Warning | Suggestion",
      "fix": "Specific recommendation"
    }
  ]
}`

// CritiqueSchema mirrors the JSON object requested by Prompt.
type CritiqueSchema struct {
	UXScore                int             `json:"ux_score" jsonschema:"description=Overall UX score from 0 to 100"`
	UIScore                int             `json:"ui_score" jsonschema:"description=Visual design score from 0 to 100"`
	AccessibilityScore     int             `json:"accessibility_score" jsonschema:"description=Accessibility score from 0 to 100"`
	VisualHierarchyGrade   string          `json:"visual_hierarchy_grade" jsonschema:"enum=A,enum=B,enum=C,enum=D,enum=F"`
	ConversionOptimization string          `json:"conversion_optimization"`
	GoodPoints             []string        `json:"good_points"`
	BadPoints              []string        `json:"bad_points"`
	CriticalIssues         []CriticalIssue `json:"critical_issues"`
}

// CriticalIssue is one entry of CritiqueSchema.CriticalIssues.
type CriticalIssue struct {
	Element     string `json:"element"`
	Issue       string `json:"issue"`
	LawViolated string `json:"law_violated"`
	Severity    string `json:"severity" jsonschema:"enum=Critical,enum=Warning,enum=Suggestion"`
	Fix         string `json:"fix"`
}

// Schema returns the JSON schema of CritiqueSchema with every field required
// and no additional properties.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&CritiqueSchema{})
}

// DataURL encodes a screenshot as an inline data URL.
func DataURL(screenshot []byte) string {
	return "data:" + ImageMIMEType + ";base64," + base64.StdEncoding.EncodeToString(screenshot)
}
