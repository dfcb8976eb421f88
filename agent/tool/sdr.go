package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	leadx "github.com/tanpawarit/Chative-Voice-Tools/agent/lead"
	statex "github.com/tanpawarit/Chative-Voice-Tools/agent/state"
)

type LeadView struct {
	Lead    leadx.Lead `json:"lead"`
	Missing []string   `json:"missing"`
}

func sdrDefinitions() []definition {
	field := func(desc string) *schema.ParameterInfo {
		return &schema.ParameterInfo{Type: schema.String, Desc: desc}
	}
	return []definition{
		{
			name: ToolUpdateLead,
			desc: "Record lead details as the prospect shares them. Send only the fields you learned.",
			params: map[string]*schema.ParameterInfo{
				"name":      field("Prospect's full name"),
				"company":   field("Company name"),
				"email":     field("Work email"),
				"role":      field("Job title or role"),
				"use_case":  field("What they want to use the product for"),
				"team_size": field("Team size, as said, e.g. 10-20"),
				"timeline":  field("When they want to start"),
			},
			run: updateLead,
		},
		{
			name: ToolGetLead,
			desc: "Get the lead details collected so far and which are still missing.",
			run:  getLead,
		},
		{
			name: ToolFinalizeLead,
			desc: "Save the lead at the end of the call. Can only be done once.",
			run:  finalizeLead,
		},
	}
}

func updateLead(_ context.Context, s *statex.Session, args map[string]any) (outcome, error) {
	var in leadx.Fields
	if err := decodeArgs(args, &in); err != nil {
		return outcome{}, err
	}

	lead, err := s.Lead.Update(in)
	if err != nil {
		return outcome{}, err
	}
	view := LeadView{Lead: lead, Missing: lead.Missing()}
	if len(view.Missing) == 0 {
		return outcome{Result: view, Narration: "Thanks, I have everything I need."}, nil
	}
	return outcome{
		Result:    view,
		Narration: fmt.Sprintf("Thanks, noted. I'd still like to know your %s.", humanize(view.Missing[0])),
	}, nil
}

func getLead(_ context.Context, s *statex.Session, _ map[string]any) (outcome, error) {
	lead := s.Lead.Snapshot()
	view := LeadView{Lead: lead, Missing: lead.Missing()}
	if len(view.Missing) == 0 {
		return outcome{Result: view, Narration: "All lead details are captured."}, nil
	}
	missing := make([]string, len(view.Missing))
	for i, m := range view.Missing {
		missing[i] = humanize(m)
	}
	return outcome{Result: view, Narration: "Still missing: " + strings.Join(missing, ", ") + "."}, nil
}

func finalizeLead(ctx context.Context, s *statex.Session, _ map[string]any) (outcome, error) {
	lead, err := s.Lead.Finalize(ctx)
	if err != nil {
		return outcome{}, err
	}
	who := lead.Name
	if who == "" {
		who = "so much"
	}
	return outcome{
		Result:    lead,
		Narration: fmt.Sprintf("Thanks %s, I've saved your details. Someone from our team will follow up shortly.", who),
	}, nil
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
