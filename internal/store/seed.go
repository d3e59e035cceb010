package store

import (
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/gulfgate/valuer/internal/model"
)

// SeedFile is the YAML shape accepted by the initdb --seed flag.
type SeedFile struct {
	Properties []model.Property       `yaml:"properties"`
	Snapshots  []model.MarketSnapshot `yaml:"snapshots"`
}

// LoadSeedFile parses a YAML seed file. Records without an id get one
// assigned; records without a status default to available.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: read %s", path)
	}

	var sf SeedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, eris.Wrapf(err, "seed: parse %s", path)
	}

	for i := range sf.Properties {
		p := &sf.Properties[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Status == "" {
			p.Status = model.ListingAvailable
		}
		if p.Community == "" || p.Type == "" || p.AreaSqft <= 0 || p.PriceAED <= 0 {
			return nil, eris.Errorf("seed: property %s needs community, type, positive area and price", p.ID)
		}
	}
	for _, s := range sf.Snapshots {
		if s.Community == "" || s.PropertyType == "" || s.AsOfDate.IsZero() {
			return nil, eris.Errorf("seed: snapshot for %q needs community, property_type, as_of_date", s.Community)
		}
	}

	return &sf, nil
}
