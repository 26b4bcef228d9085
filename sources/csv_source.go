// sources/csv_source.go
package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/models"
	"github.com/gewnthar/countries/backend/utils"
)

// csvCountry is one row of an offline country file. Currencies are ';' separated.
type csvCountry struct {
	Name       string `csv:"name"`
	Capital    string `csv:"capital,omitempty"`
	Region     string `csv:"region,omitempty"`
	Population int64  `csv:"population"`
	Flag       string `csv:"flag,omitempty"`
	Currencies string `csv:"currencies,omitempty"`
}

// CSVCountrySource reads countries from a local CSV file instead of the API.
type CSVCountrySource struct {
	path   string
	logger *zap.Logger
}

func NewCSVCountrySource(path string, logger *zap.Logger) *CSVCountrySource {
	return &CSVCountrySource{path: path, logger: logger.With(zap.String("source", SourceCountries))}
}

func (s *CSVCountrySource) FetchCountries(ctx context.Context) ([]models.RawCountry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Source: SourceCountries, Err: err}
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, &UpstreamError{Source: SourceCountries, Err: fmt.Errorf("failed to open %s: %w", s.path, err)}
	}
	defer f.Close()

	countries, err := ParseCountriesCSV(f)
	if err != nil {
		return nil, &UpstreamError{Source: SourceCountries, Err: err}
	}

	s.logger.Info("read countries from CSV", zap.String("path", s.path), zap.Int("count", len(countries)))
	return countries, nil
}

// ParseCountriesCSV decodes a header-first CSV into raw countries, skipping rows without a name.
func ParseCountriesCSV(r io.Reader) ([]models.RawCountry, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(r))
	if errors.Is(err, io.EOF) {
		return []models.RawCountry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder for countries: %w", err)
	}

	var rows []csvCountry
	if err := decoder.Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode countries CSV: %w", err)
	}

	countries := make([]models.RawCountry, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		population := row.Population
		if population < 0 {
			population = 0
		}
		var currencies []string
		if strings.TrimSpace(row.Currencies) != "" {
			currencies = utils.NormalizeCurrencyList(strings.Split(row.Currencies, ";"))
		}
		countries = append(countries, models.RawCountry{
			Name:       name,
			Capital:    strings.TrimSpace(row.Capital),
			Region:     strings.TrimSpace(row.Region),
			Population: population,
			FlagURL:    strings.TrimSpace(row.Flag),
			Currencies: currencies,
		})
	}
	return countries, nil
}
