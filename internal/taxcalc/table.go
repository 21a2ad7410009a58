package taxcalc

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"sabitax/internal/apperr"
	"sabitax/internal/ledger"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var tableFiles embed.FS

// DefaultTableFile is the embedded table used when no override path is configured.
const DefaultTableFile = "tables/ng_pita_2011.yaml"

// Cadence enum constants
const (
	CadenceMonthly = "monthly"
	CadenceAnnual  = "annual"
)

// DueRule derives a filing due date from a period.
// Monthly: Day of the month MonthsAfter the period's last month (Day 0 = month end).
// Annual: Day of Month in the year after the period.
type DueRule struct {
	Cadence     string
	MonthsAfter int
	Month       int
	Day         int
}

// DueDate returns the due date for obligations of the given period (UTC midnight).
func (r DueRule) DueDate(p ledger.Period) time.Time {
	var year int
	var month time.Month
	switch r.Cadence {
	case CadenceAnnual:
		year, month = p.Year+1, time.Month(r.Month)
	default:
		first := time.Date(p.Year, p.LastMonth(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, r.MonthsAfter, 0)
		year, month = first.Year(), first.Month()
	}

	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := r.Day
	if day <= 0 || day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (r DueRule) validate() error {
	switch r.Cadence {
	case CadenceMonthly:
		if r.MonthsAfter < 0 || r.MonthsAfter > 12 {
			return fmt.Errorf("months_after %d must be in [0, 12]", r.MonthsAfter)
		}
	case CadenceAnnual:
		if r.Month < 1 || r.Month > 12 {
			return fmt.Errorf("month %d must be in [1, 12]", r.Month)
		}
	default:
		return fmt.Errorf("unknown cadence %q", r.Cadence)
	}
	if r.Day < 0 || r.Day > 31 {
		return fmt.Errorf("day %d must be in [0, 31]", r.Day)
	}
	return nil
}

// VATRule decides when business turnover creates a VAT obligation.
type VATRule struct {
	Rate               decimal.Decimal
	Threshold          decimal.Decimal // annual business turnover at or below which VAT is not due
	BusinessCategories []string
	Due                DueRule
}

// BusinessIncome sums the aggregate's income recorded under business categories.
func (v VATRule) BusinessIncome(agg ledger.Aggregate) decimal.Decimal {
	total := decimal.Zero
	for _, c := range v.BusinessCategories {
		total = total.Add(agg.Income(c))
	}
	return total
}

// Table is a complete, validated jurisdiction configuration.
type Table struct {
	Jurisdiction string
	Currency     string
	Schedule     *Schedule
	PITDue       DueRule
	VAT          VATRule
	CITRate      decimal.Decimal
}

// --- YAML document ---

type dueDoc struct {
	Cadence     string `yaml:"cadence"`
	MonthsAfter int    `yaml:"months_after"`
	Month       int    `yaml:"month"`
	Day         int    `yaml:"day"`
}

type tableDoc struct {
	Version      string `yaml:"version"`
	Jurisdiction string `yaml:"jurisdiction"`
	Currency     string `yaml:"currency"`
	Brackets     []struct {
		UpTo string `yaml:"upto"`
		Rate string `yaml:"rate"`
	} `yaml:"brackets"`
	Relief struct {
		FixedFloor string `yaml:"fixed_floor"`
		FloorRate  string `yaml:"floor_rate"`
		GrossRate  string `yaml:"gross_rate"`
		Cap        string `yaml:"cap"`
	} `yaml:"relief"`
	Deductions []struct {
		Category    string `yaml:"category"`
		Type        string `yaml:"type"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Rate        string `yaml:"rate"`
		Cap         string `yaml:"cap"`
		SuggestRate string `yaml:"suggest_rate"`
	} `yaml:"deductions"`
	PIT struct {
		Due dueDoc `yaml:"due"`
	} `yaml:"pit"`
	VAT struct {
		Rate               string   `yaml:"rate"`
		Threshold          string   `yaml:"threshold"`
		BusinessCategories []string `yaml:"business_categories"`
		Due                dueDoc   `yaml:"due"`
	} `yaml:"vat"`
	CIT struct {
		Rate string `yaml:"rate"`
	} `yaml:"cit"`
}

// LoadDefaultTable parses the embedded Nigerian PIT table.
func LoadDefaultTable() (*Table, error) {
	raw, err := tableFiles.ReadFile(DefaultTableFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded tax table: %w", err)
	}
	return LoadTable(bytes.NewReader(raw))
}

// LoadTableFile parses a table from disk, falling back to the embedded table for an empty path.
func LoadTableFile(path string) (*Table, error) {
	if path == "" {
		return LoadDefaultTable()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tax table %s: %w", path, err)
	}
	defer f.Close()
	return LoadTable(f)
}

// LoadTable parses and validates a YAML tax table. Any malformed field rejects the whole table.
func LoadTable(r io.Reader) (*Table, error) {
	var doc tableDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, apperr.Validation("invalid tax table document: %v", err)
	}
	if strings.TrimSpace(doc.Version) == "" {
		return nil, apperr.Validation("tax table version is required")
	}

	p := parser{version: doc.Version}

	brackets := make([]Bracket, 0, len(doc.Brackets))
	lower := decimal.Zero
	for i, b := range doc.Brackets {
		br := Bracket{Lower: lower, Rate: p.decimal(fmt.Sprintf("brackets[%d].rate", i), b.Rate)}
		if b.UpTo == "" {
			br.Unbounded = true
		} else {
			br.Upper = p.decimal(fmt.Sprintf("brackets[%d].upto", i), b.UpTo)
			lower = br.Upper
		}
		brackets = append(brackets, br)
	}

	relief := Relief{
		FixedFloor: p.decimal("relief.fixed_floor", doc.Relief.FixedFloor),
		FloorRate:  p.decimal("relief.floor_rate", doc.Relief.FloorRate),
		GrossRate:  p.decimal("relief.gross_rate", doc.Relief.GrossRate),
		Cap:        p.optional("relief.cap", doc.Relief.Cap),
	}

	deductions := make([]DeductionRule, 0, len(doc.Deductions))
	for i, d := range doc.Deductions {
		field := fmt.Sprintf("deductions[%d]", i)
		rule := DeductionRule{
			Category:    d.Category,
			Type:        d.Type,
			Title:       d.Title,
			Description: d.Description,
			Rate:        p.decimal(field+".rate", d.Rate),
			Cap:         p.optional(field+".cap", d.Cap),
			SuggestRate: decimal.Zero,
		}
		if d.SuggestRate != "" {
			rule.SuggestRate = p.decimal(field+".suggest_rate", d.SuggestRate)
		}
		deductions = append(deductions, rule)
	}

	vat := VATRule{
		Rate:               p.decimal("vat.rate", doc.VAT.Rate),
		Threshold:          p.decimal("vat.threshold", doc.VAT.Threshold),
		BusinessCategories: doc.VAT.BusinessCategories,
		Due:                DueRule(doc.VAT.Due),
	}
	citRate := p.decimal("cit.rate", doc.CIT.Rate)

	if p.err != nil {
		return nil, p.err
	}

	schedule, err := NewSchedule(doc.Version, brackets, relief, deductions)
	if err != nil {
		return nil, err
	}

	pitDue := DueRule(doc.PIT.Due)
	if err := pitDue.validate(); err != nil {
		return nil, apperr.Validation("tax table %s: pit.due: %v", doc.Version, err)
	}
	if err := vat.Due.validate(); err != nil {
		return nil, apperr.Validation("tax table %s: vat.due: %v", doc.Version, err)
	}
	if vat.Rate.IsNegative() || vat.Rate.GreaterThanOrEqual(one) {
		return nil, apperr.Validation("tax table %s: vat.rate %s must be in [0, 1)", doc.Version, vat.Rate)
	}
	if vat.Threshold.IsNegative() {
		return nil, apperr.Validation("tax table %s: vat.threshold must not be negative", doc.Version)
	}
	if citRate.IsNegative() || citRate.GreaterThanOrEqual(one) {
		return nil, apperr.Validation("tax table %s: cit.rate %s must be in [0, 1)", doc.Version, citRate)
	}

	return &Table{
		Jurisdiction: doc.Jurisdiction,
		Currency:     doc.Currency,
		Schedule:     schedule,
		PITDue:       pitDue,
		VAT:          vat,
		CITRate:      citRate,
	}, nil
}

// parser keeps the first decimal parse error so LoadTable can report it once.
type parser struct {
	version string
	err     error
}

func (p *parser) decimal(field, value string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		p.err = apperr.Validation("tax table %s: invalid %s %q", p.version, field, value)
		return decimal.Zero
	}
	return v
}

func (p *parser) optional(field, value string) *decimal.Decimal {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	v := p.decimal(field, value)
	return &v
}
