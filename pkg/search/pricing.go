package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// The pricing index stores each tab as one document whose "plan" field is a
// JSON blob of category -> plan name -> plan details. We flatten that into
// PricingDoc/PlanInfo so the prompt layer can render it without knowing the
// index schema.

type PricingDoc struct {
	TabName   string     `json:"tab_name"`
	Hierarchy string     `json:"hierarchy"`
	Plans     []PlanInfo `json:"plans"`
}

type PlanInfo struct {
	Category    string        `json:"category"`
	PlanName    string        `json:"plan_name"`
	Price       string        `json:"price"`
	Lodgments   string        `json:"lodgments"`
	Users       string        `json:"users"`
	Description string        `json:"description"`
	Features    []string      `json:"features"`
	Sections    []PlanSection `json:"sections"`
}

// PlanSection is one cost breakdown block inside a plan (income tax returns,
// financial reports, e-signatures, ...).
type PlanSection struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Details       []string `json:"details,omitempty"`
	Costs         []string `json:"costs,omitempty"`
	PackagePrices []string `json:"package_prices,omitempty"`
}

type pricingResult struct {
	TabName   string          `json:"tab_name"`
	Hierarchy string          `json:"hierarchy"`
	Plan      json.RawMessage `json:"plan"`
}

type planDetails struct {
	Title       string   `json:"title"`
	Price       string   `json:"price"`
	Lodgments   string   `json:"lodgments"`
	Users       string   `json:"users"`
	Description string   `json:"description"`
	Features    []string `json:"features"`

	IncomeTaxReturns       *planSectionDetails `json:"incomeTaxReturns"`
	IITRBasAndOtherReturns *planSectionDetails `json:"iitrBasAndOthersReturns"`
	BusinessReportingForms *planSectionDetails `json:"businessReportingForms"`
	FinancialReports       *planSectionDetails `json:"financialReports"`
	FinancialReportsPro    *planSectionDetails `json:"financialReportsPro"`
	LegalDocuments         *planSectionDetails `json:"legalDocuments"`
	ESignatures            *planSectionDetails `json:"eSignatures"`
}

type planSectionDetails struct {
	Description   string      `json:"description"`
	Details       []string    `json:"details"`
	Cost          interface{} `json:"cost"` // string or []string in the index
	PackagePrices []string    `json:"packagePrices"`
}

// SearchPricing queries the pricing index and flattens the nested plan blobs.
func (c *Client) SearchPricing(ctx context.Context, index, query string, limit int) ([]PricingDoc, error) {
	req := searchRequest{
		Search: query,
		Top:    limit,
		Select: "id,tab_name,hierarchy,plan",
	}
	resp, err := c.search(ctx, index, req)
	if err != nil {
		return nil, err
	}

	docs := make([]PricingDoc, 0, len(resp.Value))
	for _, raw := range resp.Value {
		var result pricingResult
		if err := json.Unmarshal(raw, &result); err != nil {
			continue
		}
		docs = append(docs, PricingDoc{
			TabName:   result.TabName,
			Hierarchy: result.Hierarchy,
			Plans:     flattenPlans(result.Plan),
		})
	}
	return docs, nil
}

// flattenPlans parses the plan blob defensively: a malformed blob yields an
// empty plan list, never an error.
func flattenPlans(raw json.RawMessage) []PlanInfo {
	if len(raw) == 0 {
		return nil
	}

	// The field arrives either as an object or as a JSON string holding one.
	var blob []byte = raw
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		blob = []byte(asString)
	}

	var categories map[string]json.RawMessage
	if err := json.Unmarshal(blob, &categories); err != nil {
		return nil
	}

	var plans []PlanInfo
	for category, categoryRaw := range categories {
		var categoryPlans map[string]json.RawMessage
		if err := json.Unmarshal(categoryRaw, &categoryPlans); err != nil {
			continue
		}
		for _, detailsRaw := range categoryPlans {
			var details planDetails
			if err := json.Unmarshal(detailsRaw, &details); err != nil {
				continue
			}
			// Only entries carrying a title are real plans; the blob also
			// holds auxiliary keys like featuresComparison.
			if details.Title == "" {
				continue
			}
			plans = append(plans, PlanInfo{
				Category:    category,
				PlanName:    details.Title,
				Price:       details.Price,
				Lodgments:   details.Lodgments,
				Users:       details.Users,
				Description: details.Description,
				Features:    details.Features,
				Sections:    collectSections(&details),
			})
		}
	}
	return plans
}

func collectSections(d *planDetails) []PlanSection {
	named := []struct {
		name    string
		details *planSectionDetails
	}{
		{"Income Tax Returns", d.IncomeTaxReturns},
		{"IITR, BAS and Other Returns", d.IITRBasAndOtherReturns},
		{"Business Reporting Forms", d.BusinessReportingForms},
		{"Financial Reports", d.FinancialReports},
		{"Financial Reports Pro", d.FinancialReportsPro},
		{"Legal Documents", d.LegalDocuments},
		{"E-Signatures", d.ESignatures},
	}

	var sections []PlanSection
	for _, n := range named {
		if n.details == nil {
			continue
		}
		sections = append(sections, PlanSection{
			Name:          n.name,
			Description:   n.details.Description,
			Details:       n.details.Details,
			Costs:         normalizeCosts(n.details.Cost),
			PackagePrices: n.details.PackagePrices,
		})
	}
	return sections
}

func normalizeCosts(cost interface{}) []string {
	switch v := cost.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []interface{}:
		var costs []string
		for _, item := range v {
			costs = append(costs, fmt.Sprint(item))
		}
		return costs
	default:
		return []string{fmt.Sprint(v)}
	}
}

// FormatPricingMarkdown renders flattened pricing docs for the prompt context.
func FormatPricingMarkdown(docs []PricingDoc) string {
	if len(docs) == 0 {
		return "No pricing information found."
	}

	var b strings.Builder
	b.WriteString("## Pricing Information Found:\n\n")
	for _, doc := range docs {
		fmt.Fprintf(&b, "### %s\n", doc.TabName)
		fmt.Fprintf(&b, "**Category:** %s\n\n", doc.Hierarchy)

		for _, plan := range doc.Plans {
			fmt.Fprintf(&b, "**Plan:** %s\n", plan.PlanName)
			fmt.Fprintf(&b, "**Price:** %s\n", plan.Price)
			if plan.Lodgments != "" {
				fmt.Fprintf(&b, "**Lodgments:** %s\n", plan.Lodgments)
			}
			fmt.Fprintf(&b, "**Users:** %s\n", plan.Users)
			if plan.Description != "" {
				fmt.Fprintf(&b, "**Description:** %s\n", plan.Description)
			}
			if len(plan.Features) > 0 {
				b.WriteString("**Features:**\n")
				for _, feature := range plan.Features {
					fmt.Fprintf(&b, "  - %s\n", feature)
				}
			}
			b.WriteString("\n")

			for _, section := range plan.Sections {
				fmt.Fprintf(&b, "**%s:**\n", section.Name)
				if section.Description != "" {
					fmt.Fprintf(&b, "  %s\n", section.Description)
				}
				for _, detail := range section.Details {
					fmt.Fprintf(&b, "  %s\n", detail)
				}
				for _, cost := range section.Costs {
					fmt.Fprintf(&b, "  Cost: %s\n", cost)
				}
				if len(section.PackagePrices) > 0 {
					b.WriteString("  Package Prices:\n")
					for _, pkg := range section.PackagePrices {
						fmt.Fprintf(&b, "    - %s\n", pkg)
					}
				}
				b.WriteString("\n")
			}

			b.WriteString("---\n\n")
		}
	}
	return b.String()
}
