package llm

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Voice-Tools/pkg/openrouter"
)

var ErrInvalidConfig = errors.New("invalid llm config")

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ShopModel        string  `envconfig:"SHOP_MODEL" split_words:"true"`
	TutorModel       string  `envconfig:"TUTOR_MODEL" split_words:"true"`
	SDRModel         string  `envconfig:"SDR_MODEL" split_words:"true"`
	ShopTemperature  float32 `envconfig:"SHOP_TEMPERATURE" split_words:"true" default:"-1"`
	TutorTemperature float32 `envconfig:"TUTOR_TEMPERATURE" split_words:"true" default:"-1"`
	SDRTemperature   float32 `envconfig:"SDR_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.Join(ErrInvalidConfig, errors.New("openrouter api key is required"))
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.Join(ErrInvalidConfig, errors.New("default model is required"))
	}
	return nil
}

// OpenRouterFor resolves the model settings of one variant. A negative
// per-variant temperature means "use the default".
func (c Config) OpenRouterFor(variant contractx.Variant) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, t float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch variant {
	case contractx.VariantShop:
		override(c.ShopModel, c.ShopTemperature)
	case contractx.VariantTutor:
		override(c.TutorModel, c.TutorTemperature)
	case contractx.VariantSDR:
		override(c.SDRModel, c.SDRTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
