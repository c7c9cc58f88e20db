package rules_test

import (
	"errors"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/prometheus/promql/parser"

	"github.com/bayneri/slider/internal/alerting"
	"github.com/bayneri/slider/internal/rules"
	"github.com/bayneri/slider/internal/slo"
)

const day = 24 * time.Hour

func checkoutSLO() slo.SLO {
	return slo.SLO{
		Name:        "checkout-latency",
		DisplayName: "Checkout latency",
		Service:     "checkout",
		Labels:      map[string]string{"team": "payments", "cost-center": "42"},
		Indicators: []slo.SLI{{
			Name:       "fast-requests",
			GoodQuery:  `sum(rate(http_request_duration_seconds_bucket{le="0.3"}[{{.window}}]))`,
			TotalQuery: `sum(rate(http_request_duration_seconds_count[{{.window}}]))`,
		}},
		Objectives: []slo.Objective{
			{DisplayName: "p99 under 300ms", Target: 0.999, TimeWindow: 28 * day, IndicatorRef: "fast-requests"},
		},
	}
}

func twoObjectiveSLO() slo.SLO {
	s := checkoutSLO()
	s.Indicators = append(s.Indicators, slo.SLI{
		Name:       "availability",
		GoodQuery:  `sum(rate(http_requests_total{code!~"5.."}[{{.window}}]))`,
		TotalQuery: `sum(rate(http_requests_total[{{.window}}]))`,
	})
	s.Objectives = append(s.Objectives, slo.Objective{
		DisplayName: "available", Target: 0.99, TimeWindow: 7 * day, IndicatorRef: "availability",
	})
	return s
}

var _ = Describe("Synthesizer", func() {
	var synth rules.Synthesizer

	BeforeEach(func() {
		synth = rules.Synthesizer{Policy: alerting.DefaultPolicy()}
	})

	It("should emit recording rules per lookback followed by alerting rules per tier", func() {
		out, err := synth.Synthesize(checkoutSLO())
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(6))

		var names []string
		for _, r := range out {
			names = append(names, r.Name)
		}
		Expect(names).To(Equal([]string{
			"slo:checkout_latency:p99_under_300ms:ratio_rate2h",
			"slo:checkout_latency:p99_under_300ms:ratio_rate6h",
			"slo:checkout_latency:p99_under_300ms:ratio_rate1d",
			"slo:checkout_latency:p99_under_300ms:ratio_rate4d",
			"checkout_latency:p99_under_300ms:page_burn_rate",
			"checkout_latency:p99_under_300ms:ticket_burn_rate",
		}))
		for _, r := range out[:4] {
			Expect(r.Kind).To(Equal(rules.KindRecording))
			Expect(r.For).To(BeZero())
			Expect(r.Annotations).To(BeEmpty())
		}
		for _, r := range out[4:] {
			Expect(r.Kind).To(Equal(rules.KindAlerting))
		}
	})

	It("should produce |objectives| x (lookbacks + tiers) rules", func() {
		s := twoObjectiveSLO()
		out, err := synth.Synthesize(s)
		Expect(err).NotTo(HaveOccurred())

		want := 0
		for _, obj := range s.Objectives {
			windows := synth.Policy.Windows(obj.TimeWindow)
			want += len(alerting.Lookbacks(windows)) + len(windows)
		}
		Expect(out).To(HaveLen(want))
	})

	It("should keep objective blocks contiguous and in declaration order", func() {
		out, err := synth.Synthesize(twoObjectiveSLO())
		Expect(err).NotTo(HaveOccurred())

		var objectives []string
		for _, r := range out {
			o := r.Labels[rules.LabelObjective]
			if len(objectives) == 0 || objectives[len(objectives)-1] != o {
				objectives = append(objectives, o)
			}
		}
		Expect(objectives).To(Equal([]string{"p99 under 300ms", "available"}))
	})

	It("should be idempotent", func() {
		first, err := synth.Synthesize(twoObjectiveSLO())
		Expect(err).NotTo(HaveOccurred())
		second, err := synth.Synthesize(twoObjectiveSLO())
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("should substitute every lookback into the indicator queries", func() {
		out, err := synth.Synthesize(checkoutSLO())
		Expect(err).NotTo(HaveOccurred())
		Expect(out[0].Expression).To(Equal(
			`(sum(rate(http_request_duration_seconds_bucket{le="0.3"}[2h]))) / (sum(rate(http_request_duration_seconds_count[2h])))`))
		for _, r := range out {
			Expect(r.Expression).NotTo(ContainSubstring("{{"))
		}
	})

	It("should reference the recorded series and multiplier in alert expressions", func() {
		out, err := synth.Synthesize(checkoutSLO())
		Expect(err).NotTo(HaveOccurred())
		page := out[4]
		Expect(page.Expression).To(Equal(
			`((1 - slo:checkout_latency:p99_under_300ms:ratio_rate1d{slo="checkout-latency", objective="p99 under 300ms"}) / (1 - 0.999) > 28) and ` +
				`((1 - slo:checkout_latency:p99_under_300ms:ratio_rate2h{slo="checkout-latency", objective="p99 under 300ms"}) / (1 - 0.999) > 28)`))
		Expect(page.For).To(Equal(2 * time.Minute))
		Expect(page.Labels).To(HaveKeyWithValue(rules.LabelSeverity, "page"))
		Expect(page.Annotations).To(HaveKeyWithValue("burn_rate_multiplier", "28"))
		Expect(page.Annotations).To(HaveKeyWithValue("windows", "1d/2h"))

		ticket := out[5]
		Expect(ticket.Expression).To(ContainSubstring(`ratio_rate4d{slo="checkout-latency", objective="p99 under 300ms"}) / (1 - 0.999) > 7`))
		Expect(ticket.Expression).To(ContainSubstring(`ratio_rate6h{slo="checkout-latency", objective="p99 under 300ms"}) / (1 - 0.999) > 7`))
		Expect(ticket.For).To(Equal(30 * time.Minute))
	})

	It("should attach identity labels that win over metadata and extra labels", func() {
		synth.ExtraLabels = map[string]string{"env": "prod", "slo": "ignored"}
		s := checkoutSLO()
		s.Labels["service"] = "ignored"
		out, err := synth.Synthesize(s)
		Expect(err).NotTo(HaveOccurred())

		for _, r := range out {
			Expect(r.Labels).To(HaveKeyWithValue(rules.LabelSLO, "checkout-latency"))
			Expect(r.Labels).To(HaveKeyWithValue(rules.LabelService, "checkout"))
			Expect(r.Labels).To(HaveKeyWithValue(rules.LabelSLOID, rules.SLOID(s)))
			Expect(r.Labels).To(HaveKeyWithValue("env", "prod"))
			Expect(r.Labels).To(HaveKeyWithValue("team", "payments"))
			Expect(r.Labels).To(HaveKeyWithValue("cost_center", "42"))
		}
	})

	It("should not share label maps between rules", func() {
		out, err := synth.Synthesize(checkoutSLO())
		Expect(err).NotTo(HaveOccurred())
		out[0].Labels["mutated"] = "yes"
		Expect(out[1].Labels).NotTo(HaveKey("mutated"))
	})

	It("should wrap rules in a group named after the SLO", func() {
		group, err := synth.Group(checkoutSLO())
		Expect(err).NotTo(HaveOccurred())
		Expect(group.Name).To(Equal("slo-checkout-latency"))
		Expect(group.SLO).To(Equal("checkout-latency"))
		Expect(group.Service).To(Equal("checkout"))
		Expect(group.Rules).To(HaveLen(6))
	})

	It("should keep SLO and objective apart in rule names", func() {
		api := checkoutSLO()
		api.Name = "api"
		api.Objectives[0].DisplayName = "read latency"
		apiRead := checkoutSLO()
		apiRead.Name = "api-read"
		apiRead.Objectives[0].DisplayName = "latency"

		first, err := synth.Synthesize(api)
		Expect(err).NotTo(HaveOccurred())
		second, err := synth.Synthesize(apiRead)
		Expect(err).NotTo(HaveOccurred())
		for i := range first {
			Expect(first[i].Name).NotTo(Equal(second[i].Name))
		}
		Expect(first[0].Name).To(Equal("slo:api:read_latency:ratio_rate2h"))
		Expect(second[0].Name).To(Equal("slo:api_read:latency:ratio_rate2h"))
	})

	It("should select recorded series by SLO identity", func() {
		dashed, err := synth.Synthesize(checkoutSLO())
		Expect(err).NotTo(HaveOccurred())
		s := checkoutSLO()
		s.Name = "checkout_latency"
		underscored, err := synth.Synthesize(s)
		Expect(err).NotTo(HaveOccurred())

		Expect(dashed[0].Name).To(Equal(underscored[0].Name))
		Expect(rules.Selector(dashed[0])).NotTo(Equal(rules.Selector(underscored[0])))
		Expect(dashed[4].Expression).To(ContainSubstring(`slo="checkout-latency"`))
		Expect(underscored[4].Expression).To(ContainSubstring(`slo="checkout_latency"`))
	})

	It("should emit expressions the PromQL parser accepts", func() {
		out, err := synth.Synthesize(twoObjectiveSLO())
		Expect(err).NotTo(HaveOccurred())
		for _, r := range out {
			_, err := parser.ParseExpr(r.Expression)
			Expect(err).NotTo(HaveOccurred(), r.Name)
		}
	})

	DescribeTable("should refuse unvalidated input",
		func(mutate func(*slo.SLO)) {
			s := checkoutSLO()
			mutate(&s)
			_, err := synth.Synthesize(s)
			Expect(errors.Is(err, rules.ErrPreconditionViolation)).To(BeTrue(), fmt.Sprint(err))
		},
		Entry("target of one", func(s *slo.SLO) { s.Objectives[0].Target = 1 }),
		Entry("zero window", func(s *slo.SLO) { s.Objectives[0].TimeWindow = 0 }),
		Entry("dangling reference", func(s *slo.SLO) { s.Objectives[0].IndicatorRef = "nope" }),
		Entry("no objectives", func(s *slo.SLO) { s.Objectives = nil }),
		Entry("broken template", func(s *slo.SLO) { s.Indicators[0].GoodQuery = "rate(x[{{.interval}}])" }),
	)

	It("should refuse an invalid policy", func() {
		synth.Policy = alerting.Policy{}
		_, err := synth.Synthesize(checkoutSLO())
		Expect(errors.Is(err, rules.ErrPreconditionViolation)).To(BeTrue())
	})
})

var _ = Describe("Burn-rate alert expressions", func() {
	var (
		alerts  []rules.MonitoringRule
		windows []alerting.Window
	)
	const target = 0.999

	BeforeEach(func() {
		out, err := rules.Synthesizer{Policy: alerting.DefaultPolicy()}.Synthesize(checkoutSLO())
		Expect(err).NotTo(HaveOccurred())
		alerts = nil
		for _, r := range out {
			if r.Kind == rules.KindAlerting {
				alerts = append(alerts, r)
			}
		}
		windows = alerting.DefaultPolicy().Windows(28 * day)
		Expect(alerts).To(HaveLen(len(windows)))
	})

	series := func(w time.Duration) string {
		return rules.RecordingName("checkout-latency", "p99_under_300ms", w)
	}

	// Ratios are good/total; a burn rate of k corresponds to 1 - k*(1-target).
	ratioAt := func(burn float64) float64 {
		return 1 - burn*(1-target)
	}

	DescribeTable("should fire only when both windows exceed the multiplier",
		func(longBurn, shortBurn float64) {
			for i, w := range windows {
				values := map[string]float64{
					series(w.Long):  ratioAt(longBurn * w.Multiplier),
					series(w.Short): ratioAt(shortBurn * w.Multiplier),
				}
				fired := evaluates(alerts[i].Expression, values)
				Expect(fired).To(Equal(longBurn > 1 && shortBurn > 1), alerts[i].Name)
			}
		},
		Entry("both windows burning", 1.5, 2.0),
		Entry("only the long window burning", 1.5, 0.5),
		Entry("only the short window burning", 0.5, 3.0),
		Entry("neither window burning", 0.2, 0.1),
		Entry("long window recovering", 0.9, 1.2),
	)
})

// evaluates runs a parsed alert expression against one sample per series and
// reports whether any sample survives.
func evaluates(expr string, values map[string]float64) bool {
	node, err := parser.ParseExpr(expr)
	Expect(err).NotTo(HaveOccurred())
	_, present, _ := eval(node, values)
	return present
}

// eval returns the value of n, whether a sample is present, and whether the
// value is a scalar rather than an instant vector.
func eval(n parser.Expr, values map[string]float64) (float64, bool, bool) {
	switch node := n.(type) {
	case *parser.NumberLiteral:
		return node.Val, true, true
	case *parser.ParenExpr:
		return eval(node.Expr, values)
	case *parser.VectorSelector:
		for _, m := range node.LabelMatchers {
			if m.Name == rules.LabelSLO && !m.Matches("checkout-latency") {
				return 0, false, false
			}
		}
		v, ok := values[node.Name]
		return v, ok, false
	case *parser.BinaryExpr:
		lv, lok, lscalar := eval(node.LHS, values)
		rv, rok, rscalar := eval(node.RHS, values)
		scalar := lscalar && rscalar
		if !lok || !rok {
			return 0, false, scalar
		}
		switch node.Op {
		case parser.ADD:
			return lv + rv, true, scalar
		case parser.SUB:
			return lv - rv, true, scalar
		case parser.MUL:
			return lv * rv, true, scalar
		case parser.DIV:
			return lv / rv, true, scalar
		case parser.GTR:
			if node.ReturnBool {
				if lv > rv {
					return 1, true, scalar
				}
				return 0, true, scalar
			}
			kept := lv
			if lscalar {
				kept = rv
			}
			return kept, lv > rv, scalar
		case parser.LAND:
			return lv, true, false
		}
	}
	Fail(fmt.Sprintf("unsupported node %T in %s", n, strings.TrimSpace(n.String())))
	return 0, false, false
}
