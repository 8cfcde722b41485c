// Package domain defines the closed set of knowledge domains a query can be
// routed to. Adding a domain is a compile-time change: every switch below must
// be extended, and the retrieval and prompt layers will fail to build until
// they handle the new variant.
package domain

import "strings"

// Domain identifies one knowledge domain.
type Domain int

const (
	// HelpGuides is the default domain and the classification fallback.
	// It must stay first: when a judge answer matches several domains,
	// the lowest enum value wins.
	HelpGuides Domain = iota
	Pricing
	RegulatorOperations
	ProductWebsite
)

// All returns every domain in tie-break order.
func All() []Domain {
	return []Domain{HelpGuides, Pricing, RegulatorOperations, ProductWebsite}
}

// Default is the fallback domain when classification cannot decide.
func Default() Domain {
	return HelpGuides
}

// Key returns the canonical identifier used in wire payloads and index config.
func (d Domain) Key() string {
	switch d {
	case HelpGuides:
		return "help-guides"
	case Pricing:
		return "pricing"
	case RegulatorOperations:
		return "regulator-operations"
	case ProductWebsite:
		return "website"
	}
	return "help-guides"
}

// ShortName returns the compact alias the judge model is allowed to answer with.
func (d Domain) ShortName() string {
	switch d {
	case HelpGuides:
		return "helpguide"
	case Pricing:
		return "pricing"
	case RegulatorOperations:
		return "regulator"
	case ProductWebsite:
		return "website"
	}
	return "helpguide"
}

// Description returns the routing description shown to the judge model.
func (d Domain) Description() string {
	switch d {
	case HelpGuides:
		return "HELP GUIDES: Step-by-step product documentation. How to set up accounts, import data, prepare and lodge forms, fix validation errors, and use product features."
	case Pricing:
		return "PRICING: Subscription plans, tiers, and costs. Plan prices, included allowances, per-form costs, package prices, feature comparisons between plans."
	case RegulatorOperations:
		return "REGULATOR OPERATIONS: Tax-authority operational guidance. Agent portals, lodgment programs, client-agent linking, deferrals, proof of identity, compliance workflows."
	case ProductWebsite:
		return "PRODUCT WEBSITE: What the product does and who it is for. Features, integrations, role-oriented overviews, resources and learning material."
	}
	return ""
}

func (d Domain) String() string {
	return d.Key()
}

// Parse maps a raw judge answer back to a domain. Matching is case-insensitive
// and substring-based in both directions, so "lodge to helpguide index" and
// "help" both resolve. Ambiguous answers resolve to the first match in enum
// order; an empty or unrecognized answer reports ok=false.
func Parse(raw string) (Domain, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Default(), false
	}
	for _, d := range All() {
		short := d.ShortName()
		key := d.Key()
		if strings.Contains(normalized, short) || strings.Contains(short, normalized) {
			return d, true
		}
		if strings.Contains(normalized, key) || strings.Contains(key, normalized) {
			return d, true
		}
	}
	return Default(), false
}
