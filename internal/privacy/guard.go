package privacy

import (
	"bytes"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/config"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/metrics"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// PHI field kinds the guard scans for.
const (
	FieldMRN   = "mrn"
	FieldEmail = "email"
)

var (
	mrnPattern   = regexp.MustCompile(`\b\d{10}\b`)
	emailPattern = regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`)
)

// Violation records one PHI pattern found in an outgoing response. RawValue is
// never logged or persisted; only the masked form leaves the guard.
type Violation struct {
	Field       string `json:"field"`
	MaskedValue string `json:"maskedValue"`
	Path        string `json:"path"`
	Method      string `json:"method"`
}

// Guard is HTTP middleware that scans response bodies for unmasked medical
// record numbers and email addresses. Depending on configuration it either
// logs the finding or redacts the body before it reaches the client.
//
// A 10-digit run only counts as an MRN when its checksum validates, so order
// numbers and timestamps do not trip the guard.
type Guard struct {
	enabled     bool
	block       bool
	exemptPaths []string
	log         *zap.Logger
}

// NewGuard builds a guard from configuration.
func NewGuard(cfg config.PrivacyConfig, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		enabled:     cfg.EnableGuard,
		block:       cfg.BlockOnViolation,
		exemptPaths: cfg.ExemptPaths,
		log:         log,
	}
}

type responseWrapper struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
}

func (w *responseWrapper) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

// Middleware wraps the handler chain. Responses on exempt paths pass through
// untouched; everything else is buffered and scanned before it is written out.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.enabled || g.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		wrapper := &responseWrapper{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(wrapper, r)

		body := wrapper.body.String()
		violations := g.detect(body, r)
		if len(violations) > 0 {
			g.report(violations)
			if g.block {
				w.Header().Set("X-PHI-Redacted", "true")
				w.WriteHeader(wrapper.statusCode)
				w.Write([]byte(g.Redact(body)))
				return
			}
		}

		w.WriteHeader(wrapper.statusCode)
		w.Write(wrapper.body.Bytes())
	})
}

func (g *Guard) detect(content string, r *http.Request) []Violation {
	var violations []Violation

	for _, match := range mrnPattern.FindAllString(content, -1) {
		mrn := types.MRN(match)
		if !mrn.IsValid() {
			continue
		}
		violations = append(violations, Violation{
			Field:       FieldMRN,
			MaskedValue: mrn.Masked(),
			Path:        r.URL.Path,
			Method:      r.Method,
		})
	}

	for _, match := range emailPattern.FindAllString(content, -1) {
		violations = append(violations, Violation{
			Field:       FieldEmail,
			MaskedValue: MaskEmail(match),
			Path:        r.URL.Path,
			Method:      r.Method,
		})
	}

	return violations
}

// Redact replaces PHI with redaction markers. Only checksum-valid 10-digit
// runs are treated as MRNs.
func (g *Guard) Redact(content string) string {
	content = mrnPattern.ReplaceAllStringFunc(content, func(match string) string {
		if !types.MRN(match).IsValid() {
			return match
		}
		return "[REDACTED-MRN]"
	})
	return emailPattern.ReplaceAllString(content, "[REDACTED-EMAIL]")
}

func (g *Guard) isExempt(path string) bool {
	for _, exempt := range g.exemptPaths {
		if path == exempt || strings.HasPrefix(path, exempt+"/") {
			return true
		}
	}
	return false
}

func (g *Guard) report(violations []Violation) {
	for _, v := range violations {
		metrics.RecordPrivacyViolation(v.Field)
		g.log.Warn("PHI pattern in response",
			zap.String("field", v.Field),
			zap.String("masked_value", v.MaskedValue),
			zap.String("path", v.Path),
			zap.String("method", v.Method),
			zap.Bool("blocked", g.block))
	}
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
