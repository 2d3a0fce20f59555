package bridge

import "fmt"

// Progress is a `$/progress` work-done report, rendered into the
// control window as one line (main.rs's WDProgress).
type Progress struct {
	Name       string
	Percentage *uint32
	Message    string
	Title      string
}

// String renders "[pct%] name:message (title)", substituting "?" for
// a missing percentage.
func (p Progress) String() string {
	return fmt.Sprintf("[%s%%] %s:%s (%s)", formatPercentage(p.Percentage), p.Name, p.Message, p.Title)
}

func formatPercentage(pct *uint32) string {
	if pct == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *pct)
}

// progressKey correlates Begin/Report/End notifications for the same
// token, keyed by client name since tokens are only unique per server
// (main.rs: `"{client}-{token:?}"`).
func progressKey(client string, token interface{}) string {
	return fmt.Sprintf("%s-%v", client, token)
}
