package field

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/mitchellh/mapstructure"

	"github.com/hyperjump/solrdex/internal/indexerr"
)

var nameRe = regexp.MustCompile(`^\w+$`)

// Config is the complete set of options a field declaration accepts.
type Config struct {
	Name     string `mapstructure:"name" yaml:"name" json:"name"`
	Type     string `mapstructure:"type" yaml:"type" json:"type"`
	Multiple bool   `mapstructure:"multiple" yaml:"multiple,omitempty" json:"multiple,omitempty"`
	Dynamic  bool   `mapstructure:"dynamic" yaml:"dynamic,omitempty" json:"dynamic,omitempty"`
}

// DecodeConfig decodes a raw option map into a Config. Keys outside the Config set and
// values of the wrong shape are rejected with ErrInvalidFieldArgument.
func DecodeConfig(raw map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &cfg,
	})
	if err != nil {
		return Config{}, fmt.Errorf("field config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) && len(merr.Errors) > 0 {
			return Config{}, indexerr.New(indexerr.ErrInvalidFieldArgument, "%s", merr.Errors[0])
		}
		return Config{}, indexerr.New(indexerr.ErrInvalidFieldArgument, "%v", err)
	}
	return cfg, nil
}

// Validate checks the name and resolves the type directive.
func (c Config) Validate() (Type, error) {
	if c.Name == "" {
		return 0, indexerr.New(indexerr.ErrInvalidFieldArgument, "field name is required")
	}
	if !nameRe.MatchString(c.Name) {
		return 0, indexerr.New(indexerr.ErrInvalidFieldArgument, "field name %q may only contain word characters", c.Name)
	}
	if c.Type == "" {
		return 0, indexerr.New(indexerr.ErrInvalidFieldArgument, "field %q: type is required", c.Name)
	}
	return ParseType(c.Type)
}
