package search

import (
	"encoding/json"
	"strings"
	"testing"
)

const planBlob = `{
	"Tax Agents": {
		"nano": {
			"title": "Nano",
			"price": "$132/year",
			"lodgments": "10",
			"users": "1",
			"features": ["Basic lodgment", "Email support"],
			"incomeTaxReturns": {
				"details": ["Individual returns included"],
				"cost": ["$5 each after allowance"],
				"packagePrices": ["10 pack: $45"]
			},
			"eSignatures": {
				"description": "Digital signing",
				"cost": "$1 per envelope"
			}
		},
		"featuresComparison": ["not a plan"]
	}
}`

func TestFlattenPlans(t *testing.T) {
	plans := flattenPlans(json.RawMessage(planBlob))
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(plans))
	}

	plan := plans[0]
	if plan.Category != "Tax Agents" {
		t.Errorf("category = %q", plan.Category)
	}
	if plan.PlanName != "Nano" || plan.Price != "$132/year" {
		t.Errorf("unexpected plan: %+v", plan)
	}
	if len(plan.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(plan.Sections))
	}

	var itr, esign *PlanSection
	for i := range plan.Sections {
		switch plan.Sections[i].Name {
		case "Income Tax Returns":
			itr = &plan.Sections[i]
		case "E-Signatures":
			esign = &plan.Sections[i]
		}
	}
	if itr == nil || esign == nil {
		t.Fatalf("missing expected sections: %+v", plan.Sections)
	}
	if len(itr.Costs) != 1 || itr.Costs[0] != "$5 each after allowance" {
		t.Errorf("itr costs = %v", itr.Costs)
	}
	if len(esign.Costs) != 1 || esign.Costs[0] != "$1 per envelope" {
		t.Errorf("esign costs = %v", esign.Costs)
	}
}

func TestFlattenPlansStringEncodedBlob(t *testing.T) {
	// The index sometimes stores the plan object as an escaped JSON string.
	encoded, err := json.Marshal(planBlob)
	if err != nil {
		t.Fatal(err)
	}
	plans := flattenPlans(json.RawMessage(encoded))
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan from string-encoded blob, got %d", len(plans))
	}
}

func TestFlattenPlansMalformedBlob(t *testing.T) {
	if plans := flattenPlans(json.RawMessage(`not json`)); plans != nil {
		t.Errorf("expected nil for malformed blob, got %v", plans)
	}
	if plans := flattenPlans(nil); plans != nil {
		t.Errorf("expected nil for empty blob, got %v", plans)
	}
}

func TestFormatPricingMarkdown(t *testing.T) {
	docs := []PricingDoc{
		{
			TabName:   "Tax Agent Plans",
			Hierarchy: "Pricing/Agents",
			Plans: []PlanInfo{
				{
					Category: "Tax Agents",
					PlanName: "Nano",
					Price:    "$132/year",
					Users:    "1",
					Features: []string{"Basic lodgment"},
					Sections: []PlanSection{
						{
							Name:          "Income Tax Returns",
							Costs:         []string{"$5 each"},
							PackagePrices: []string{"10 pack: $45"},
						},
					},
				},
			},
		},
	}

	got := FormatPricingMarkdown(docs)
	for _, want := range []string{
		"### Tax Agent Plans",
		"**Category:** Pricing/Agents",
		"**Plan:** Nano",
		"**Price:** $132/year",
		"**Income Tax Returns:**",
		"Cost: $5 each",
		"- 10 pack: $45",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
}

func TestFormatPricingMarkdownEmpty(t *testing.T) {
	if got := FormatPricingMarkdown(nil); got != "No pricing information found." {
		t.Errorf("got %q", got)
	}
}
