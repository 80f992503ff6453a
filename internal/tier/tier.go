// Package tier maps monthly gym check-in counts to the wellness-program
// salary deduction bands and renders the matching notification copy.
package tier

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
)

// DefaultBaseFee is the full monthly Gym Passport subscription fee in rupees.
const DefaultBaseFee = 5500

// Tier is one check-in band: the notification subject/body for the employee
// plus the amount deducted from their salary. Deduction decreases as
// check-ins rise; at 16 or more the company covers the full fee.
type Tier struct {
	Subject   string
	Body      string
	Deduction int
	Coverage  int // percent of the fee covered by the company
}

// band is one row of the fixed threshold table, evaluated top-down.
type band struct {
	minCheckIns int
	coverage    int
	subject     string
	body        string
}

// The five bands form an exact 0/25/50/75/100 percent split of the base fee.
// Boundaries sit at 4, 8, 12 and 16 check-ins, inclusive lower bounds.
var bands = []band{
	{16, 100,
		"Great Job! Your Gym Subscription is Fully Covered",
		`Hi {{ name }},
Awesome work this month! You completed 16 or more check-ins through Gym Passport.
As part of our wellness program, Rs {{ covered }} (100%) of your Gym Passport subscription fee will be covered by the company for this month.
Keep up the great momentum and stay healthy!
Best Regards,
The Fitness Team`},
	{12, 75,
		"Well Done! 75% of Your Gym Fee is Covered",
		`Hi {{ name }},
You made 12 to 15 check-ins through Gym Passport this month — great job staying active!
You qualify to have Rs {{ covered }} (75%) of your Gym Passport subscription fee covered by the company this month. The remaining Rs {{ deduction }} will be deducted from your salary.
Stay consistent and keep moving!
Best Regards,
The Fitness Team`},
	{8, 50,
		"Keep It Up! 50% of Your Gym Fee is Covered",
		`Hi {{ name }},
You logged 8 to 11 check-ins through Gym Passport this month — a solid effort!
You are eligible for Rs {{ covered }} (50%) coverage of your Gym Passport subscription fee. The remaining Rs {{ deduction }} will be deducted from your salary.
You're doing great — let's aim even higher next month!
Best Regards,
The Fitness Team`},
	{4, 25,
		"Progress Made! 25% of Your Gym Fee is Covered",
		`Hi {{ name }},
You made 4 to 7 check-ins through Gym Passport this month.
You qualify for Rs {{ covered }} (25%) coverage of your Gym Passport subscription fee. The remaining Rs {{ deduction }} will be deducted from your salary.
Keep striving for more next month!
Best Regards,
The Fitness Team`},
	{0, 0,
		"Let's Refocus on Fitness Next Month",
		`Hi {{ name }},
We noticed you made fewer than 4 check-ins through Gym Passport this month.
As per the company's wellness policy, 0% of your Gym Passport subscription fee is eligible for coverage, and the full amount of Rs {{ deduction }} will be deducted from your salary.
If you wish to unsubscribe from Gym Passport, you can do so during the first 3 days of the upcoming month.
Every check-in counts!
Best Regards,
The Fitness Team`},
}

// Calculator computes deduction tiers for a fixed base fee.
type Calculator struct {
	baseFee int
	engine  *liquid.Engine

	mu    sync.Mutex
	cache map[string]*liquid.Template
}

// NewCalculator returns a calculator for the given base fee. A zero or
// negative fee falls back to DefaultBaseFee.
func NewCalculator(baseFee int) *Calculator {
	if baseFee <= 0 {
		baseFee = DefaultBaseFee
	}
	return &Calculator{
		baseFee: baseFee,
		engine:  liquid.NewEngine(),
		cache:   make(map[string]*liquid.Template),
	}
}

// BaseFee returns the configured full subscription fee.
func (c *Calculator) BaseFee() int { return c.baseFee }

// Compute maps a check-in count to its tier, rendering the notification copy
// for the given employee name. Pure and total over all non-negative counts;
// negative counts are treated as zero.
func (c *Calculator) Compute(checkIns int, name string) Tier {
	if checkIns < 0 {
		checkIns = 0
	}
	for _, b := range bands {
		if checkIns >= b.minCheckIns {
			deduction := c.baseFee * (100 - b.coverage) / 100
			return Tier{
				Subject:   b.subject,
				Body:      c.render(b.body, name, c.baseFee-deduction, deduction),
				Deduction: deduction,
				Coverage:  b.coverage,
			}
		}
	}
	// Unreachable: the last band's lower bound is 0.
	return Tier{}
}

func (c *Calculator) render(tmpl, name string, covered, deduction int) string {
	t, err := c.template(tmpl)
	if err != nil {
		return tmpl
	}
	out, err := t.RenderString(map[string]interface{}{
		"name":      name,
		"covered":   covered,
		"deduction": deduction,
	})
	if err != nil {
		return tmpl
	}
	return out
}

func (c *Calculator) template(src string) (*liquid.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.cache[src]; ok {
		return t, nil
	}
	t, err := c.engine.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse tier template: %w", err)
	}
	c.cache[src] = t
	return t, nil
}
