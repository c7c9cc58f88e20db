package alerting_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/common/model"

	"github.com/bayneri/slider/internal/alerting"
)

const day = 24 * time.Hour

var _ = Describe("Policy", func() {
	Context("default table", func() {
		It("should be valid", func() {
			Expect(alerting.DefaultPolicy().Validate()).To(Succeed())
		})

		It("should resolve a 28d window into page and ticket tiers", func() {
			windows := alerting.DefaultPolicy().Windows(28 * day)
			Expect(windows).To(HaveLen(2))

			page := windows[0]
			Expect(page.Severity).To(Equal(alerting.SeverityPage))
			Expect(page.Long).To(Equal(day))
			Expect(page.Short).To(Equal(2 * time.Hour))
			Expect(page.Multiplier).To(Equal(28.0))
			Expect(page.For).To(Equal(2 * time.Minute))

			ticket := windows[1]
			Expect(ticket.Severity).To(Equal(alerting.SeverityTicket))
			Expect(ticket.Long).To(Equal(4 * day))
			Expect(ticket.Short).To(Equal(6 * time.Hour))
			Expect(ticket.Multiplier).To(Equal(7.0))
			Expect(ticket.For).To(Equal(30 * time.Minute))
		})

		It("should reference exactly four distinct lookbacks for 28d", func() {
			lookbacks := alerting.Lookbacks(alerting.DefaultPolicy().Windows(28 * day))
			Expect(lookbacks).To(Equal([]time.Duration{2 * time.Hour, 6 * time.Hour, day, 4 * day}))
		})

		It("should truncate uneven windows to whole minutes", func() {
			windows := alerting.DefaultPolicy().Windows(30 * day)
			for _, w := range windows {
				Expect(w.Long % time.Minute).To(BeZero())
				Expect(w.Short % time.Minute).To(BeZero())
				Expect(w.Short).To(BeNumerically("<", w.Long))
			}
		})

		It("should never resolve a window below one minute", func() {
			windows := alerting.DefaultPolicy().Windows(time.Hour)
			for _, w := range windows {
				Expect(w.Short).To(BeNumerically(">=", time.Minute))
			}
		})
	})

	Context("lookbacks", func() {
		It("should not repeat windows shared between rows", func() {
			ws := []alerting.Window{
				{Short: time.Hour, Long: 6 * time.Hour},
				{Short: 6 * time.Hour, Long: day},
			}
			Expect(alerting.Lookbacks(ws)).To(Equal([]time.Duration{time.Hour, 6 * time.Hour, day}))
		})
	})

	DescribeTable("validation",
		func(row alerting.Row, fragment string) {
			err := alerting.Policy{Rows: []alerting.Row{row}}.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(fragment))
		},
		Entry("missing severity", alerting.Row{LongWindowDivisor: 28, ShortWindowDivisor: 12, BudgetConsumed: 1}, "severity is required"),
		Entry("long divisor below one", alerting.Row{Severity: "page", LongWindowDivisor: 0.5, ShortWindowDivisor: 12, BudgetConsumed: 1}, "longWindowDivisor"),
		Entry("short window not shorter", alerting.Row{Severity: "page", LongWindowDivisor: 28, ShortWindowDivisor: 1, BudgetConsumed: 1}, "shortWindowDivisor"),
		Entry("no budget", alerting.Row{Severity: "page", LongWindowDivisor: 28, ShortWindowDivisor: 12}, "budgetConsumed"),
		Entry("negative for", alerting.Row{Severity: "page", LongWindowDivisor: 28, ShortWindowDivisor: 12, BudgetConsumed: 1, For: model.Duration(-time.Minute)}, "for must not be negative"),
	)

	It("should reject an empty table", func() {
		Expect(alerting.Policy{}.Validate()).To(MatchError(ContainSubstring("at least one row")))
	})

	It("should reject duplicated severities", func() {
		policy := alerting.DefaultPolicy()
		policy.Rows[1].Severity = alerting.SeverityPage
		Expect(policy.Validate()).To(MatchError(ContainSubstring("duplicated")))
	})
})

var _ = Describe("Budget", func() {
	It("should exhaust a 28d budget in one day at 28x", func() {
		Expect(alerting.TimeToExhaustion(28*day, 28)).To(Equal(day))
		Expect(alerting.TimeToExhaustion(28*day, 0)).To(BeZero())
	})
})

var _ = Describe("Explain", func() {
	It("should render every severity of the table", func() {
		text := alerting.ExplainBurnRate(alerting.DefaultPolicy(), 28*day)
		Expect(text).To(ContainSubstring("4w objective window"))
		Expect(strings.Count(text, "page")).To(BeNumerically(">=", 1))
		Expect(text).To(ContainSubstring("ticket"))
		Expect(text).To(ContainSubstring("28x"))
	})
})
