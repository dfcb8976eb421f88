package tool

import (
	"context"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Tools/agent/state"
)

const (
	ToolListProducts        = "list_products"
	ToolAddToCart           = "add_to_cart"
	ToolGetCart             = "get_cart"
	ToolCreateOrderFromCart = "create_order_from_cart"
	ToolGetLastOrder        = "get_last_order"

	ToolListTopics      = "list_topics"
	ToolSelectTopic     = "select_topic"
	ToolSetLearningMode = "set_learning_mode"
	ToolEvaluateTeach   = "evaluate_teaching"
	ToolGetTutorState   = "get_tutor_state"

	ToolUpdateLead   = "update_lead"
	ToolGetLead      = "get_lead"
	ToolFinalizeLead = "finalize_lead"
)

// outcome is a handler's answer. On failure Result may still carry details the
// driver needs (for example the list of valid topics) and Narration may override
// the default re-prompt.
type outcome struct {
	Result    any
	Narration string
}

type handler func(ctx context.Context, s *statex.Session, args map[string]any) (outcome, error)

type definition struct {
	name   string
	desc   string
	params map[string]*schema.ParameterInfo
	run    handler
}

func (d definition) info() *schema.ToolInfo {
	info := &schema.ToolInfo{Name: d.name, Desc: d.desc}
	if len(d.params) > 0 {
		info.ParamsOneOf = schema.NewParamsOneOfByParams(d.params)
	}
	return info
}

func definitionsFor(variant contractx.Variant) []definition {
	switch variant {
	case contractx.VariantShop:
		return shopDefinitions()
	case contractx.VariantTutor:
		return tutorDefinitions()
	case contractx.VariantSDR:
		return sdrDefinitions()
	default:
		return nil
	}
}

// Infos returns the tool declarations exposed to the dialogue driver for variant.
func Infos(variant contractx.Variant) []*schema.ToolInfo {
	defs := definitionsFor(variant)
	infos := make([]*schema.ToolInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, d.info())
	}
	return infos
}

// BuildForSession returns the session variant's tool declarations and a gateway bound to the session.
func BuildForSession(s *statex.Session, opts ...Option) ([]*schema.ToolInfo, *Gateway, error) {
	gw, err := NewGateway(s, opts...)
	if err != nil {
		return nil, nil, err
	}
	return Infos(s.Variant), gw, nil
}
