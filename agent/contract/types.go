package contract

type Variant string

const (
	VariantShop  Variant = "shop"
	VariantTutor Variant = "tutor"
	VariantSDR   Variant = "sdr"
)

func (v Variant) Valid() bool {
	switch v {
	case VariantShop, VariantTutor, VariantSDR:
		return true
	default:
		return false
	}
}

type RecordKind string

const (
	KindCart   RecordKind = "cart"
	KindOrders RecordKind = "orders"
	KindLeads  RecordKind = "leads"
)

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is what the dialogue driver sees after a tool call. Result holds the
// machine-usable payload on success and failure details (if any) otherwise.
type ToolResult struct {
	Tool      string    `json:"tool"`
	OK        bool      `json:"ok"`
	Result    any       `json:"result,omitempty"`
	Narration string    `json:"narration,omitempty"`
	Code      ErrorCode `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`
}
