package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Country is one participant country of an edition.
type Country struct {
	Name string
	Code string
}

// LoadCountries reads data/participant_countries_<year>.csv. The file has a
// country_code,country_name header; column order may vary between editions,
// so columns are resolved by header name.
func LoadCountries(dataDir, year string) ([]Country, error) {
	path := filepath.Join(dataDir, fmt.Sprintf("participant_countries_%s.csv", year))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open country listing: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("catalog: %s: empty document", path)
	}

	nameCol, codeCol := -1, -1
	for i, h := range records[0] {
		switch h {
		case "country_name":
			nameCol = i
		case "country_code":
			codeCol = i
		}
	}
	if nameCol < 0 || codeCol < 0 {
		return nil, fmt.Errorf("catalog: %s: missing country_name/country_code header", path)
	}

	countries := make([]Country, 0, len(records)-1)
	for _, rec := range records[1:] {
		countries = append(countries, Country{Name: rec[nameCol], Code: rec[codeCol]})
	}
	return countries, nil
}
