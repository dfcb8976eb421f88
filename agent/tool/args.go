package tool

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
)

// decodeArgs fills out from already validated arguments.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrInvalidArgument, err)
	}
	return nil
}
