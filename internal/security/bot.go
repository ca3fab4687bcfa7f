package security

import "regexp"

var (
	crawlerUA    = regexp.MustCompile(`(?i)bot|crawler|spider|crawling|headless`)
	automationUA = regexp.MustCompile(`(?i)selenium|webdriver|phantomjs`)
)

// Bot signal reasons.
const (
	ReasonEmptyUserAgent      = "empty_user_agent"
	ReasonCrawlerUserAgent    = "crawler_user_agent"
	ReasonNoSessionStorage    = "no_session_storage"
	ReasonNoLocalStorage      = "no_local_storage"
	ReasonZeroViewport        = "zero_viewport"
	ReasonWebdriver           = "webdriver"
	ReasonAutomationUserAgent = "automation_user_agent"
)

// Signals are the environment facts a client reports about itself.
type Signals struct {
	UserAgent      string `json:"user_agent"`
	SessionStorage bool   `json:"session_storage"`
	LocalStorage   bool   `json:"local_storage"`
	OuterWidth     int    `json:"outer_width"`
	OuterHeight    int    `json:"outer_height"`
	Webdriver      bool   `json:"webdriver"`
}

// Verdict is the outcome of Detect. Reasons lists every indicator that fired.
type Verdict struct {
	IsBot   bool     `json:"is_bot"`
	Reasons []string `json:"reasons"`
}

// Detect flags s as a bot when any indicator fires. The verdict is advisory.
func Detect(s Signals) Verdict {
	reasons := []string{}
	add := func(cond bool, reason string) {
		if cond {
			reasons = append(reasons, reason)
		}
	}
	add(s.UserAgent == "", ReasonEmptyUserAgent)
	add(crawlerUA.MatchString(s.UserAgent), ReasonCrawlerUserAgent)
	add(!s.SessionStorage, ReasonNoSessionStorage)
	add(!s.LocalStorage, ReasonNoLocalStorage)
	add(s.OuterWidth == 0 && s.OuterHeight == 0, ReasonZeroViewport)
	add(s.Webdriver, ReasonWebdriver)
	add(automationUA.MatchString(s.UserAgent), ReasonAutomationUserAgent)
	return Verdict{IsBot: len(reasons) > 0, Reasons: reasons}
}
