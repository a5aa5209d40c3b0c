// Package fusion merges independent classifier verdicts into moderation
// decisions. Two verdict shapes exist: continuous attribute scores evaluated
// against ordered threshold tables, and a single best-fit category label
// matched against the policy taxonomy. The two shapes are decided
// independently and are never reconciled into one combined decision.
package fusion

import (
	"log"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/taxonomy"
)

// Severity is the tier of a moderation decision: None < Soft < Hard.
type Severity int

const (
	SeverityNone Severity = iota
	SeveritySoft
	SeverityHard
)

// String returns a short lower-case name for the severity.
func (s Severity) String() string {
	switch s {
	case SeveritySoft:
		return "soft"
	case SeverityHard:
		return "hard"
	default:
		return "none"
	}
}

// Action is the platform action a decision calls for.
type Action int

const (
	NoAction Action = iota
	Downrank
	DeleteAndNotify
	DeleteAndEscalate
)

// String returns a short name for the action.
func (a Action) String() string {
	switch a {
	case Downrank:
		return "downrank"
	case DeleteAndNotify:
		return "delete_and_notify"
	case DeleteAndEscalate:
		return "delete_and_escalate"
	default:
		return "no_action"
	}
}

// Source records which evaluation path produced a decision.
type Source string

const (
	SourceAttributes Source = "attributes" // continuous attribute scores
	SourceLabel      Source = "label"      // classifier category label
	SourceReport     Source = "report"     // user report's declared category
)

// Decision is the outcome of evaluating one verdict for one message.
type Decision struct {
	Category                     taxonomy.Category
	Severity                     Severity
	Action                       Action
	RequiresLawEnforcementNotice bool

	// Attribute is the attribute that tripped a threshold. Set only on the
	// attribute path.
	Attribute string

	Source Source
}

// AttributePriority is the fixed evaluation order for attribute scores.
// Attributes earlier in the list pre-empt later ones even when a later
// attribute scored higher; this ordering is part of the behavioral contract.
var AttributePriority = []string{
	"toxicity",
	"severe_toxicity",
	"insult",
	"profanity",
	"identity_attack",
	"threat",
}

// highThresholds trigger a hard delete when exceeded.
var highThresholds = map[string]float64{
	"toxicity":        0.95,
	"severe_toxicity": 0.75,
	"insult":          0.95,
	"profanity":       0.95,
	"identity_attack": 0.75,
	"threat":          0.75,
}

// lowThresholds trigger a soft downrank when exceeded.
var lowThresholds = map[string]float64{
	"toxicity":        0.7,
	"severe_toxicity": 0.5,
	"insult":          0.7,
	"profanity":       0.6,
	"identity_attack": 0.5,
	"threat":          0.5,
}

// DecideAttributes evaluates a map of attribute scores in [0,1] against the
// high and then the low threshold table. Each walk follows AttributePriority
// and the first attribute whose score strictly exceeds its threshold wins;
// later attributes are not considered even if they scored higher. Attribute
// verdicts never set a policy category, only a severity and action.
func DecideAttributes(scores map[string]float64) Decision {
	for _, attr := range AttributePriority {
		if scores[attr] > highThresholds[attr] {
			return Decision{
				Severity:  SeverityHard,
				Action:    DeleteAndNotify,
				Attribute: attr,
				Source:    SourceAttributes,
			}
		}
	}
	for _, attr := range AttributePriority {
		if scores[attr] > lowThresholds[attr] {
			return Decision{
				Severity:  SeveritySoft,
				Action:    Downrank,
				Attribute: attr,
				Source:    SourceAttributes,
			}
		}
	}
	return Decision{Source: SourceAttributes}
}

// DecideLabel matches a classifier's category label against the taxonomy,
// ignoring case. An unrecognized label is treated as no policy match
// (fail-open) and logged so the anomaly stays observable.
func DecideLabel(label string) Decision {
	cat, ok := taxonomy.Parse(label)
	if !ok {
		log.Printf("[fusion] unrecognized classifier label %q, treating as no violation", label)
		return Decision{Source: SourceLabel}
	}
	d := decideCategory(cat)
	d.Source = SourceLabel
	return d
}

// DecideReport produces a decision from the category a reporting user
// declared during the report conversation.
func DecideReport(cat taxonomy.Category) Decision {
	d := decideCategory(cat)
	d.Source = SourceReport
	return d
}

// decideCategory maps a recognized category to its severity and action. All
// non-None categories are hard violations escalated to law enforcement,
// except glorification/promotion which is policy-distinguished: still a hard
// delete, but notified rather than escalated and with no law-enforcement
// report.
func decideCategory(cat taxonomy.Category) Decision {
	if cat == taxonomy.None {
		return Decision{}
	}
	if cat == taxonomy.GlorificationPromotion {
		return Decision{
			Category: cat,
			Severity: SeverityHard,
			Action:   DeleteAndNotify,
		}
	}
	return Decision{
		Category:                     cat,
		Severity:                     SeverityHard,
		Action:                       DeleteAndEscalate,
		RequiresLawEnforcementNotice: true,
	}
}
