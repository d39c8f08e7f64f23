package watchlist

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/momentum/internal/batch"
	"github.com/wonny/momentum/internal/contracts"
)

// Watchlist is the set of tickers the scheduler keeps fresh
type Watchlist struct {
	Name    string   `yaml:"name" json:"name"`
	Tickers []string `yaml:"tickers" json:"tickers"`
	Report  Report   `yaml:"report" json:"report"`
}

// Report controls the ranking logged after each refresh
type Report struct {
	TopN  int    `yaml:"top_n" json:"top_n"`
	Field string `yaml:"field" json:"field"`
}

// Load reads a watchlist YAML file
// 오타/미사용 필드는 즉시 실패
func Load(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates watchlist YAML; tickers come back normalized
func Parse(data []byte) (*Watchlist, error) {
	var w Watchlist
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}

	if err := w.validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

func (w *Watchlist) validate() error {
	var errs []error

	if w.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}

	valid, invalid := contracts.NormalizeTickers(w.Tickers)
	if len(valid) == 0 {
		errs = append(errs, errors.New("tickers must not be empty"))
	}
	for _, t := range invalid {
		errs = append(errs, fmt.Errorf("ticker %q: %w", t, contracts.ErrInvalidTicker))
	}
	w.Tickers = valid

	if w.Report.TopN < 0 {
		errs = append(errs, errors.New("report.top_n must be >= 0"))
	}
	f, err := batch.ParseField(w.Report.Field)
	if err != nil {
		errs = append(errs, fmt.Errorf("report.field: %w", err))
	}
	w.Report.Field = string(f)

	if len(errs) > 0 {
		return fmt.Errorf("invalid watchlist: %w", errors.Join(errs...))
	}
	return nil
}

// Hash is the SHA256 of the canonical JSON form
func (w *Watchlist) Hash() (string, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
