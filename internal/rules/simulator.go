// Package rules produces per-row business-rule findings for parsed batches.
//
// The Simulator is a placeholder validation oracle: it never inspects row
// content. It draws a finding rate, picks that many distinct rows and assigns
// finding templates round-robin. Two templates stand for DIAN tax-ID lookups
// and carry an exception draft for manual resolution.
//
// All randomness comes from the *rand.Rand passed to New, so a fixed seed
// reproduces the same findings.
package rules

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

// Default finding rate bounds, as a fraction of the record count.
const (
	DefaultMinRate = 0.03
	DefaultMaxRate = 0.07
)

type template struct {
	field    string
	message  string
	severity domain.Severity
	role     domain.PartyRole // set when a DIAN exception is required
}

// templates are applied in order over the selected rows.
var templates = []template{
	{field: "PRODUCTO", message: "product not found in BMC catalog", severity: domain.SeverityWarning},
	{field: "NIT_COMPRADOR", message: "buyer NIT not found in DIAN registry", severity: domain.SeverityError, role: domain.RoleBuyer},
	{field: "UNIDAD_MEDIDA", message: "quantity has no unit of measure", severity: domain.SeverityWarning},
	{field: "IVA", message: "invalid VAT value", severity: domain.SeverityError},
	{field: "FECHA", message: "invalid date format", severity: domain.SeverityWarning},
	{field: "NIT_VENDEDOR", message: "seller NIT not found in DIAN registry", severity: domain.SeverityError, role: domain.RoleSeller},
}

var reportedNames = []string{
	"Distribuidora Andina SAS",
	"Comercializadora del Caribe Ltda",
	"Agroinsumos del Valle SAS",
	"Inversiones La Sabana SA",
	"Almacenes El Llano SAS",
	"Tecnoagro Colombia SAS",
}

// nitWeights are the DIAN check-digit weights, applied from the rightmost digit.
var nitWeights = []int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRates sets the bounds of the uniformly drawn finding rate.
func WithRates(minRate, maxRate float64) Option {
	return func(s *Simulator) {
		if minRate >= 0 && maxRate >= minRate {
			s.minRate = minRate
			s.maxRate = maxRate
		}
	}
}

// Simulator generates findings from an injected random source.
// It is safe for concurrent use.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand

	minRate float64
	maxRate float64
}

// New creates a Simulator that draws from rng.
func New(rng *rand.Rand, opts ...Option) *Simulator {
	s := &Simulator{
		rng:     rng,
		minRate: DefaultMinRate,
		maxRate: DefaultMaxRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSeeded creates a Simulator backed by a PCG source seeded with seed.
func NewSeeded(seed uint64, opts ...Option) *Simulator {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), opts...)
}

// Simulate returns the findings for a batch of recordCount rows.
// It returns nil when there are no rows, and at least one finding otherwise.
func (s *Simulator) Simulate(recordCount int) []domain.Finding {
	if recordCount <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rate := s.minRate + s.rng.Float64()*(s.maxRate-s.minRate)
	n := int(rate * float64(recordCount))
	n = min(max(n, 1), recordCount)

	rows := s.sampleRows(recordCount, n)
	findings := make([]domain.Finding, 0, n)
	for i, row := range rows {
		tpl := templates[i%len(templates)]
		f := domain.Finding{
			Row:      row,
			Field:    tpl.field,
			Message:  tpl.message,
			Severity: tpl.severity,
		}
		if tpl.role != "" {
			f.RequiresException = true
			f.Exception = s.draft(tpl.role)
		}
		findings = append(findings, f)
	}
	return findings
}

// sampleRows picks n distinct rows from [1, total] with Floyd's algorithm
// and returns them in ascending order.
func (s *Simulator) sampleRows(total, n int) []int {
	chosen := make(map[int]struct{}, n)
	rows := make([]int, 0, n)
	for j := total - n + 1; j <= total; j++ {
		t := s.rng.IntN(j) + 1
		if _, taken := chosen[t]; taken {
			t = j
		}
		chosen[t] = struct{}{}
		rows = append(rows, t)
	}
	sort.Ints(rows)
	return rows
}

func (s *Simulator) draft(role domain.PartyRole) *domain.ExceptionDraft {
	base := 800000000 + s.rng.IntN(200000000)

	state := domain.ValidationNotFound
	if s.rng.IntN(2) == 1 {
		state = domain.ValidationInconsistent
	}

	return &domain.ExceptionDraft{
		Document:        fmt.Sprintf("%d-%d", base, CheckDigit(base)),
		ReportedName:    reportedNames[s.rng.IntN(len(reportedNames))],
		ValidationState: state,
		PartyRole:       role,
	}
}

// CheckDigit computes the DIAN verification digit of a NIT.
func CheckDigit(nit int) int {
	sum := 0
	for i := 0; nit > 0 && i < len(nitWeights); i++ {
		sum += (nit % 10) * nitWeights[i]
		nit /= 10
	}
	if r := sum % 11; r > 1 {
		return 11 - r
	}
	return sum % 11
}
