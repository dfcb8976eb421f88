package prompt

import (
	_ "embed"
	"strings"

	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
)

const storeNamePlaceholder = "{{store_name}}"

var (
	//go:embed template/shop.txt
	shopRaw string

	//go:embed template/tutor.txt
	tutorRaw string

	//go:embed template/sdr.txt
	sdrRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Shop  string
	Tutor string
	SDR   string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Shop:  strings.TrimSpace(shopRaw),
		Tutor: strings.TrimSpace(tutorRaw),
		SDR:   strings.TrimSpace(sdrRaw),
	}
}

// For returns the system prompt of variant with the store name filled in.
// Unknown variants get an empty prompt.
func (p PromptSet) For(variant contractx.Variant, storeName string) string {
	var raw string
	switch variant {
	case contractx.VariantShop:
		raw = p.Shop
	case contractx.VariantTutor:
		raw = p.Tutor
	case contractx.VariantSDR:
		raw = p.SDR
	}
	return strings.ReplaceAll(raw, storeNamePlaceholder, strings.TrimSpace(storeName))
}
